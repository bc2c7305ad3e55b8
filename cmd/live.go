package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/rebootlabs/mastery/internal/engine"
	"github.com/rebootlabs/mastery/internal/weakzone"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Move live sessions through WAITING, LIVE and ENDED",
}

var sessionStartCmd = &cobra.Command{
	Use:   "start <session-id>",
	Short: "Start a waiting session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, rt *runtime) error {
			return rt.engine.StartSession(ctx, args[0])
		})
	},
}

var sessionEndCmd = &cobra.Command{
	Use:   "end <session-id>",
	Short: "End a live session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, rt *runtime) error {
			return rt.engine.EndSession(ctx, args[0])
		})
	},
}

var sessionPurgeCmd = &cobra.Command{
	Use:   "purge <session-id>",
	Short: "Delete a session with its events, alerts, routes and submissions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return fmt.Errorf("refusing to purge %s without --yes", args[0])
		}
		return withEngine(cmd, func(ctx context.Context, rt *runtime) error {
			return rt.engine.PurgeSession(ctx, args[0])
		})
	},
}

var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Record a live quiz answer",
	RunE: func(cmd *cobra.Command, args []string) error {
		in := engine.QuizAnswer{}
		in.SessionID, _ = cmd.Flags().GetString("session")
		in.StudentID, _ = cmd.Flags().GetString("student")
		in.QuizID, _ = cmd.Flags().GetString("quiz")
		in.QuestionText, _ = cmd.Flags().GetString("question")
		in.CorrectAnswer, _ = cmd.Flags().GetString("answer")
		in.SubmittedAnswer, _ = cmd.Flags().GetString("submitted")
		return withEngine(cmd, func(ctx context.Context, rt *runtime) error {
			alert, err := rt.engine.RecordQuizAnswer(ctx, in)
			if err != nil {
				return err
			}
			return reportAlert(cmd, in.IsCorrect(), alert)
		})
	},
}

var pulseCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Record an understanding pulse",
	RunE: func(cmd *cobra.Command, args []string) error {
		in := engine.Pulse{}
		in.SessionID, _ = cmd.Flags().GetString("session")
		in.StudentID, _ = cmd.Flags().GetString("student")
		typ, _ := cmd.Flags().GetString("type")
		in.Type = strings.ToUpper(typ)
		return withEngine(cmd, func(ctx context.Context, rt *runtime) error {
			alert, err := rt.engine.RecordPulse(ctx, in)
			if err != nil {
				return err
			}
			return reportAlert(cmd, true, alert)
		})
	},
}

var transcriptCmd = &cobra.Command{
	Use:   "transcript <text>",
	Short: "Append a transcript chunk to a session",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, _ := cmd.Flags().GetString("session")
		return withEngine(cmd, func(ctx context.Context, rt *runtime) error {
			return rt.engine.RecordTranscript(ctx, session, strings.Join(args, " "))
		})
	},
}

// reportAlert prints the alert a live event raised, if any.
func reportAlert(cmd *cobra.Command, correct bool, alert *weakzone.Alert) error {
	if jsonOutput(cmd) {
		return printJSON(map[string]any{"correct": correct, "alert": alert})
	}
	if !correct {
		fmt.Println("Recorded (incorrect).")
	} else {
		fmt.Println("Recorded.")
	}
	if alert != nil {
		fmt.Printf("Weak zone detected: %s [%s] topic %q\n", alert.ID, alert.TriggerType, alert.Detail.Topic)
	}
	return nil
}

func init() {
	sessionPurgeCmd.Flags().Bool("yes", false, "Confirm the purge")
	sessionCmd.AddCommand(sessionStartCmd, sessionEndCmd, sessionPurgeCmd)

	quizCmd.Flags().String("session", "", "Live session ID")
	quizCmd.Flags().String("student", "", "Student ID")
	quizCmd.Flags().String("quiz", "", "Quiz ID")
	quizCmd.Flags().String("question", "", "Question text")
	quizCmd.Flags().String("answer", "", "Correct answer")
	quizCmd.Flags().String("submitted", "", "Submitted answer")
	mustFlag(quizCmd, "session", "student", "quiz", "answer")

	pulseCmd.Flags().String("session", "", "Live session ID")
	pulseCmd.Flags().String("student", "", "Student ID")
	pulseCmd.Flags().String("type", "", "UNDERSTAND or CONFUSED")
	mustFlag(pulseCmd, "session", "student", "type")

	transcriptCmd.Flags().String("session", "", "Live session ID")
	mustFlag(transcriptCmd, "session")
}
