package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rebootlabs/mastery/internal/engine"
	"github.com/rebootlabs/mastery/internal/notify"
	"github.com/spf13/cobra"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Weak-zone alerts",
}

var alertsPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List suggestions awaiting the instructor's decision",
	RunE: func(cmd *cobra.Command, args []string) error {
		instructor, _ := cmd.Flags().GetString("instructor")
		alertsOnly, _ := cmd.Flags().GetBool("alerts-only")
		return withEngine(cmd, func(ctx context.Context, rt *runtime) error {
			var (
				items []engine.Suggestion
				err   error
			)
			if alertsOnly {
				items, err = rt.engine.PendingWeakZoneAlerts(ctx, instructor)
			} else {
				items, err = rt.engine.PendingSuggestions(ctx, instructor)
			}
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(items)
			}
			if len(items) == 0 {
				fmt.Println("No pending suggestions.")
				return nil
			}
			fmt.Printf("%-12s  %-36s  %-12s  %-16s  %s\n", "Type", "ID", "Student", "Created", "Detail")
			fmt.Println(strings.Repeat("─", 110))
			for _, s := range items {
				fmt.Printf("%-12s  %-36s  %-12s  %-16s  %s\n",
					s.Type, s.ID, truncate(s.StudentID, 12),
					s.CreatedAt.Local().Format("2006-01-02 15:04"), firstLine(s.Detail))
			}
			return nil
		})
	},
}

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a student's alerts in a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, _ := cmd.Flags().GetString("session")
		student, _ := cmd.Flags().GetString("student")
		return withEngine(cmd, func(ctx context.Context, rt *runtime) error {
			alerts, err := rt.engine.Alerts(ctx, session, student)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(alerts)
			}
			if len(alerts) == 0 {
				fmt.Println("No alerts.")
				return nil
			}
			for _, a := range alerts {
				fmt.Printf("%s  %s  %-10s  %s  topic %q\n",
					a.CreatedAt.Local().Format("15:04:05"), a.ID, a.Status, a.TriggerType, a.Detail.Topic)
				if a.Supplement != "" {
					fmt.Printf("    %s\n", strings.ReplaceAll(a.Supplement, "\n", "\n    "))
				}
			}
			return nil
		})
	},
}

var alertsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream engine events from the Redis bus",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, rt *runtime) error {
			if rt.bus == nil {
				return fmt.Errorf("watch needs MASTERY_REDIS_URL")
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			err := rt.bus.Subscribe(ctx, func(ev notify.Event) {
				if jsonOutput(cmd) {
					_ = printJSON(ev)
					return
				}
				fmt.Printf("%s  %-22s  %s\n", ev.At.Local().Format("15:04:05"), ev.Type, string(ev.Data))
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Listening on %s. Ctrl+C to stop.\n", rt.cfg.RedisChannel)
			<-ctx.Done()
			return nil
		})
	},
}

var suggestionCmd = &cobra.Command{
	Use:   "suggestion",
	Short: "Instructor decisions on alerts and review routes",
}

var suggestionActCmd = &cobra.Command{
	Use:   "act",
	Short: "Approve, reject, resolve or modify a suggestion",
	Long: `Apply an instructor decision.

Weak-zone alerts take APPROVE, REJECT or RESOLVE. Suggested review routes
take APPROVE, REJECT or MODIFY; MODIFY needs --items, a JSON file with the
replacement item list.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in := engine.SuggestionAction{}
		typ, _ := cmd.Flags().GetString("type")
		action, _ := cmd.Flags().GetString("action")
		in.Type = strings.ToUpper(typ)
		in.Action = strings.ToUpper(action)
		in.ID, _ = cmd.Flags().GetString("id")
		if file, _ := cmd.Flags().GetString("items"); file != "" {
			if err := readJSONFile(file, &in.Items); err != nil {
				return err
			}
		}
		return withEngine(cmd, func(ctx context.Context, rt *runtime) error {
			if err := rt.engine.ApplySuggestionAction(ctx, in); err != nil {
				return err
			}
			fmt.Printf("%s %s: %s\n", in.Type, in.ID, in.Action)
			return nil
		})
	},
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}

func init() {
	alertsPendingCmd.Flags().String("instructor", "", "Instructor ID")
	alertsPendingCmd.Flags().Bool("alerts-only", false, "Only weak-zone alerts")
	mustFlag(alertsPendingCmd, "instructor")

	alertsListCmd.Flags().String("session", "", "Session ID")
	alertsListCmd.Flags().String("student", "", "Student ID")
	mustFlag(alertsListCmd, "session", "student")

	alertsCmd.AddCommand(alertsPendingCmd, alertsListCmd, alertsWatchCmd)

	suggestionActCmd.Flags().String("type", "", "WEAK_ZONE or REVIEW_ROUTE")
	suggestionActCmd.Flags().String("id", "", "Alert or route ID")
	suggestionActCmd.Flags().String("action", "", "APPROVE, REJECT, RESOLVE or MODIFY")
	suggestionActCmd.Flags().String("items", "", "JSON file with replacement route items (MODIFY)")
	mustFlag(suggestionActCmd, "type", "id", "action")
	suggestionCmd.AddCommand(suggestionActCmd)
}
