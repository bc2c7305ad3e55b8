package cmd

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/rebootlabs/mastery/internal/route"
	"github.com/spf13/cobra"
)

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Post-session review routes",
}

var routeBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build (or fetch) the student's review route for a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		student, _ := cmd.Flags().GetString("student")
		session, _ := cmd.Flags().GetString("session")
		return withEngine(cmd, func(ctx context.Context, rt *runtime) error {
			r, err := rt.engine.BuildRoute(ctx, student, session)
			if err != nil {
				return err
			}
			return showRoute(cmd, r)
		})
	},
}

var routeShowCmd = &cobra.Command{
	Use:   "show <route-id>",
	Short: "Show a review route",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, rt *runtime) error {
			r, err := rt.engine.GetRoute(ctx, args[0])
			if err != nil {
				return err
			}
			return showRoute(cmd, r)
		})
	},
}

var routeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the student's review routes, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		student, _ := cmd.Flags().GetString("student")
		return withEngine(cmd, func(ctx context.Context, rt *runtime) error {
			routes, err := rt.engine.StudentRoutes(ctx, student)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(routes)
			}
			if len(routes) == 0 {
				fmt.Println("No review routes.")
				return nil
			}
			fmt.Printf("%-36s  %-36s  %-10s  %5s  %5s  %8s\n", "Route", "Session", "Status", "Items", "Min", "Progress")
			fmt.Println(strings.Repeat("─", 110))
			for _, r := range routes {
				fmt.Printf("%-36s  %-36s  %-10s  %5d  %5d  %7d%%\n",
					r.ID, r.SessionID, r.Status, len(r.Items), r.TotalEstMinutes, r.Progress())
			}
			return nil
		})
	},
}

var routeCompleteCmd = &cobra.Command{
	Use:   "complete <route-id> <order>",
	Short: "Mark a route item done",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		student, _ := cmd.Flags().GetString("student")
		order, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid order %q: %w", args[1], err)
		}
		return withEngine(cmd, func(ctx context.Context, rt *runtime) error {
			c, err := rt.engine.CompleteRouteItem(ctx, args[0], student, order)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(c)
			}
			fmt.Printf("Completed %v, progress %d%%\n", c.CompletedItems, c.Progress)
			return nil
		})
	},
}

func showRoute(cmd *cobra.Command, r *route.Route) error {
	if jsonOutput(cmd) {
		return printJSON(r)
	}
	fmt.Printf("Route:    %s\n", r.ID)
	fmt.Printf("Student:  %s\n", r.StudentID)
	fmt.Printf("Session:  %s\n", r.SessionID)
	fmt.Printf("Status:   %s\n", r.Status)
	fmt.Printf("Total:    %d min, progress %d%%\n\n", r.TotalEstMinutes, r.Progress())
	if len(r.Items) == 0 {
		fmt.Println("Nothing to review.")
		return nil
	}
	for _, it := range r.Items {
		done := " "
		if slices.Contains(r.CompletedItems, it.Order) {
			done = "✓"
		}
		fmt.Printf("[%s] %2d. %-10s %-40s %2d min\n", done, it.Order, it.Type, truncate(it.Title, 40), it.EstMinutes)
	}
	return nil
}

func init() {
	routeBuildCmd.Flags().String("student", "", "Student ID")
	routeBuildCmd.Flags().String("session", "", "Ended session ID")
	mustFlag(routeBuildCmd, "student", "session")

	routeListCmd.Flags().String("student", "", "Student ID")
	mustFlag(routeListCmd, "student")

	routeCompleteCmd.Flags().String("student", "", "Student ID")
	mustFlag(routeCompleteCmd, "student")

	routeCmd.AddCommand(routeBuildCmd, routeShowCmd, routeListCmd, routeCompleteCmd)
}
