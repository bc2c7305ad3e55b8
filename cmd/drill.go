package cmd

import (
	"context"

	"github.com/rebootlabs/mastery/internal/app"
	"github.com/rebootlabs/mastery/internal/engine"
	"github.com/spf13/cobra"
)

var reviewsDrillCmd = &cobra.Command{
	Use:   "drill",
	Short: "Work through due review cards in the terminal app",
	RunE: func(cmd *cobra.Command, args []string) error {
		student, _ := cmd.Flags().GetString("student")
		home, _ := cmd.Flags().GetBool("home")
		return withEngine(cmd, func(ctx context.Context, rt *runtime) error {
			return app.Run(ctx, app.Options{
				Service:   rt.engine,
				StudentID: student,
				DrillOnly: !home,
			})
		})
	},
}

func reviewAnswer(itemID, studentID, answer string) engine.ReviewAnswer {
	return engine.ReviewAnswer{ItemID: itemID, StudentID: studentID, Answer: answer}
}

func init() {
	reviewsDrillCmd.Flags().Bool("home", false, "Open the home menu instead of the drill")
}
