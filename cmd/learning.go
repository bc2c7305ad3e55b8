package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rebootlabs/mastery/internal/formative"
	"github.com/rebootlabs/mastery/internal/mastery"
	"github.com/spf13/cobra"
)

var formativeCmd = &cobra.Command{
	Use:   "formative",
	Short: "Grade a formative assessment answer sheet",
	Long: `Grade a formative assessment. The file holds a JSON array of questions:
[{"concept_tag": "...", "question": "...", "correct_answer": "...", "options": [...], "answer": "..."}]`,
	RunE: func(cmd *cobra.Command, args []string) error {
		session, _ := cmd.Flags().GetString("session")
		student, _ := cmd.Flags().GetString("student")
		file, _ := cmd.Flags().GetString("file")

		sub := formative.Submission{SessionID: session, StudentID: student}
		if err := readJSONFile(file, &sub.Questions); err != nil {
			return err
		}
		return withEngine(cmd, func(ctx context.Context, rt *runtime) error {
			res, err := rt.engine.SubmitFormative(ctx, sub)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(res)
			}
			fmt.Printf("Score: %d/%d (%.1f%%)\n", res.Score, res.Total, res.Percentage)
			for _, g := range res.Results {
				mark := "✓"
				if !g.IsCorrect {
					mark = "✗"
				}
				fmt.Printf("  %s %d. %s\n", mark, g.Position, g.Question)
			}
			fmt.Printf("Review items created: %d\n", res.ReviewItemsCreated)
			if len(res.WeakenedSkills) > 0 {
				fmt.Printf("Skills moved back to LEARNING: %s\n", strings.Join(res.WeakenedSkills, ", "))
			}
			return nil
		})
	},
}

var masteryCmd = &cobra.Command{
	Use:   "mastery",
	Short: "Skill-block mastery scores",
}

var masterySyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Recompute the student's skill blocks for an offering",
	RunE: func(cmd *cobra.Command, args []string) error {
		student, _ := cmd.Flags().GetString("student")
		offering, _ := cmd.Flags().GetString("offering")
		return withEngine(cmd, func(ctx context.Context, rt *runtime) error {
			results, err := rt.engine.SyncMastery(ctx, student, offering)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(results)
			}
			if len(results) == 0 {
				fmt.Println("No tracked skills.")
				return nil
			}
			printScoreHeader()
			for _, r := range results {
				printScoreRow(r.SkillName, r.Level, r.Scores)
				if r.Transition != nil {
					fmt.Printf("       %s → %s\n", r.Transition.From, r.Transition.To)
				}
			}
			return nil
		})
	},
}

var masteryBlocksCmd = &cobra.Command{
	Use:   "blocks",
	Short: "List the student's skill blocks",
	RunE: func(cmd *cobra.Command, args []string) error {
		student, _ := cmd.Flags().GetString("student")
		return withEngine(cmd, func(ctx context.Context, rt *runtime) error {
			sum, err := rt.engine.SkillSummary(ctx, student)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(sum)
			}
			if sum.Total == 0 {
				fmt.Println("No skill blocks yet. Run `mastery mastery sync` first.")
				return nil
			}
			for _, c := range sum.Categories {
				name := c.Category
				if name == "" {
					name = "(uncategorized)"
				}
				fmt.Printf("\n%s\n%s\n", name, strings.Repeat("─", 72))
				printScoreHeader()
				for _, b := range c.Earned {
					printScoreRow(b.SkillName, b.Level, b.Scores)
				}
				for _, b := range c.Remaining {
					printScoreRow(b.SkillName, b.Level, b.Scores)
				}
			}
			fmt.Printf("\nEarned %d of %d (%.1f%%)  gap map: %d owned, %d learning, %d gap\n",
				sum.Earned, sum.Total, sum.EarnRate, sum.GapMap.Owned, sum.GapMap.Learning, sum.GapMap.Gap)
			return nil
		})
	},
}

var masteryInterviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Show the interview-prep hint",
	RunE: func(cmd *cobra.Command, args []string) error {
		student, _ := cmd.Flags().GetString("student")
		return withEngine(cmd, func(ctx context.Context, rt *runtime) error {
			hint, err := rt.engine.InterviewHint(ctx, student)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(hint)
			}
			fmt.Printf("%s  earned %d, remaining %d\n", hint.Badge, hint.Earned, hint.Remaining)
			for _, s := range hint.TopRemaining {
				fmt.Printf("  • %s\n", s)
			}
			fmt.Println(hint.Hint)
			return nil
		})
	},
}

func printScoreHeader() {
	fmt.Printf("%-28s  %-5s  %10s  %9s  %10s  %7s  %s\n",
		"Skill", "Lvl", "Checkpoint", "Formative", "Understand", "Total", "Earned")
}

func printScoreRow(name string, level int, s mastery.Scores) {
	earned := ""
	if s.IsEarned {
		earned = "✓"
	}
	fmt.Printf("%-28s  %-5s  %10.1f  %9.1f  %10.1f  %7.1f  %s\n",
		truncate(name, 28), mastery.BadgeFor(level).Emoji, s.Checkpoint, s.Formative, s.Understand, s.Total, earned)
}

var reviewsCmd = &cobra.Command{
	Use:   "reviews",
	Short: "Spaced-repetition review cards",
}

var reviewsDueCmd = &cobra.Command{
	Use:   "due",
	Short: "List the student's due review cards",
	RunE: func(cmd *cobra.Command, args []string) error {
		student, _ := cmd.Flags().GetString("student")
		return withEngine(cmd, func(ctx context.Context, rt *runtime) error {
			cards, err := rt.engine.ListDueReviews(ctx, student)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(cards)
			}
			if len(cards) == 0 {
				fmt.Println("Nothing due.")
				return nil
			}
			fmt.Printf("%-36s  %-24s  %-6s  %-8s  %s\n", "Item", "Concept", "Review", "Label", "Overdue")
			fmt.Println(strings.Repeat("─", 96))
			for _, c := range cards {
				fmt.Printf("%-36s  %-24s  %-6d  %-8s  %s\n",
					c.ItemID, truncate(c.ConceptName, 24), c.ReviewNum, c.Label, c.Overdue.Round(time.Minute))
			}
			return nil
		})
	},
}

var reviewsAnswerCmd = &cobra.Command{
	Use:   "answer <item-id> <answer>",
	Short: "Answer a review card",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		student, _ := cmd.Flags().GetString("student")
		return withEngine(cmd, func(ctx context.Context, rt *runtime) error {
			res, err := rt.engine.SubmitReviewAnswer(ctx, reviewAnswer(args[0], student, strings.Join(args[1:], " ")))
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(res)
			}
			switch {
			case !res.Correct:
				fmt.Printf("Not quite. The answer is %q.\n", res.CorrectAnswer)
			case res.Finished:
				fmt.Println("Correct. Every review of this concept is done.")
			case res.Next != nil:
				fmt.Printf("Correct. Next review (%s) due %s.\n", res.Next.Label, res.Next.DueAt.Local().Format("2006-01-02 15:04"))
			default:
				fmt.Println("Correct.")
			}
			return nil
		})
	},
}

func init() {
	formativeCmd.Flags().String("session", "", "Session ID")
	formativeCmd.Flags().String("student", "", "Student ID")
	formativeCmd.Flags().String("file", "", "JSON file with the answered questions")
	mustFlag(formativeCmd, "session", "student", "file")

	masterySyncCmd.Flags().String("student", "", "Student ID")
	masterySyncCmd.Flags().String("offering", "", "Course offering ID")
	mustFlag(masterySyncCmd, "student", "offering")
	for _, c := range []*cobra.Command{masteryBlocksCmd, masteryInterviewCmd} {
		c.Flags().String("student", "", "Student ID")
		mustFlag(c, "student")
	}
	masteryCmd.AddCommand(masterySyncCmd, masteryBlocksCmd, masteryInterviewCmd)

	for _, c := range []*cobra.Command{reviewsDueCmd, reviewsAnswerCmd, reviewsDrillCmd} {
		c.Flags().String("student", "", "Student ID")
		mustFlag(c, "student")
	}
	reviewsCmd.AddCommand(reviewsDueCmd, reviewsAnswerCmd, reviewsDrillCmd)
}
