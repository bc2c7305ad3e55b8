package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/rebootlabs/mastery/internal/config"
	"github.com/rebootlabs/mastery/internal/llm"
	"github.com/rebootlabs/mastery/internal/store"
	"github.com/spf13/cobra"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect recorded LLM requests",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")
		verbose, _ := cmd.Flags().GetBool("verbose")

		return withStore(cmd, func(ctx context.Context, s *store.Store) error {
			events, err := s.EventRepo().QueryLLMRequests(ctx, store.QueryOpts{Limit: limit, Purpose: purpose})
			if err != nil {
				return fmt.Errorf("query events: %w", err)
			}
			if jsonOutput(cmd) {
				return printJSON(events)
			}
			if len(events) == 0 {
				fmt.Println("No LLM requests found.")
				return nil
			}

			fmt.Printf("%-5s  %-19s  %-16s  %-28s  %-6s  %-6s  %-7s  %s\n",
				"Seq", "Timestamp", "Purpose", "Model", "In", "Out", "Ms", "OK")
			fmt.Println(strings.Repeat("─", 104))
			for _, e := range events {
				ok := "✓"
				if !e.Success {
					ok = "✗ " + e.ErrorMessage
				}
				fmt.Printf("%-5d  %-19s  %-16s  %-28s  %-6d  %-6d  %-7d  %s\n",
					e.Sequence,
					e.Timestamp.Local().Format("2006-01-02 15:04:05"),
					truncate(e.Purpose, 16),
					truncate(e.Model, 28),
					e.InputTokens,
					e.OutputTokens,
					e.LatencyMs,
					ok,
				)
				if verbose {
					fmt.Printf("       request:  %s\n       response: %s\n",
						truncate(e.RequestBody, 200), truncate(e.ResponseBody, 200))
				}
			}
			return nil
		})
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregated LLM token usage and estimated cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, s *store.Store) error {
			events, err := s.EventRepo().QueryLLMRequests(ctx, store.QueryOpts{})
			if err != nil {
				return fmt.Errorf("query usage: %w", err)
			}
			rows := llm.SummarizeUsage(events)
			if jsonOutput(cmd) {
				return printJSON(rows)
			}
			if len(rows) == 0 {
				fmt.Println("No LLM usage recorded yet.")
				return nil
			}

			fmt.Printf("%-28s  %-16s  %6s  %5s  %10s  %10s  %10s\n",
				"Model", "Purpose", "Calls", "Fail", "Input", "Output", "Cost")
			fmt.Println(strings.Repeat("─", 94))

			var totalCost float64
			var totalCalls, totalIn, totalOut int
			var unknownModels []string
			for _, r := range rows {
				cost := "?"
				if r.CostUSD != nil {
					cost = formatCost(*r.CostUSD)
					totalCost += *r.CostUSD
				} else {
					unknownModels = append(unknownModels, r.Model)
				}
				fmt.Printf("%-28s  %-16s  %6d  %5d  %10d  %10d  %10s\n",
					truncate(r.Model, 28), truncate(r.Purpose, 16), r.Requests, r.Failures,
					r.InputTokens, r.OutputTokens, cost)
				totalCalls += r.Requests
				totalIn += r.InputTokens
				totalOut += r.OutputTokens
			}

			fmt.Println(strings.Repeat("─", 94))
			label := "TOTAL"
			if len(unknownModels) > 0 {
				label = "TOTAL (partial)"
			}
			fmt.Printf("%-28s  %-16s  %6d  %5s  %10d  %10d  %10s\n",
				label, "", totalCalls, "", totalIn, totalOut, formatCost(totalCost))
			if len(unknownModels) > 0 {
				fmt.Printf("\nPricing unavailable for: %s\n", strings.Join(unknownModels, ", "))
			}
			return nil
		})
	},
}

// withStore opens only the store, for commands that read the event log.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, s *store.Store) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer s.Close()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, s)
}

func truncate(s string, max int) string {
	if r := []rune(s); len(r) > max {
		return string(r[:max])
	}
	return s
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of requests to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Filter by purpose (e.g. weakzone-supplement)")
	llmListCmd.Flags().BoolP("verbose", "v", false, "Show request and response bodies")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmStatsCmd)
}
