package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/rebootlabs/mastery/internal/engine"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create host records (offerings, sessions, skills, goals, placements)",
}

var seedOfferingCmd = &cobra.Command{
	Use:   "offering",
	Short: "Create a course offering",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")
		title, _ := cmd.Flags().GetString("title")
		instructor, _ := cmd.Flags().GetString("instructor")
		review, _ := cmd.Flags().GetBool("require-review")
		return withEngine(cmd, func(ctx context.Context, rt *runtime) error {
			id, err := rt.engine.CreateOffering(ctx, engine.Offering{
				ID:                 id,
				Title:              title,
				InstructorID:       instructor,
				RequireRouteReview: review,
			})
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		})
	},
}

var seedSessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Create a live session in WAITING state",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")
		offering, _ := cmd.Flags().GetString("offering")
		title, _ := cmd.Flags().GetString("title")
		return withEngine(cmd, func(ctx context.Context, rt *runtime) error {
			id, err := rt.engine.CreateSession(ctx, engine.Session{ID: id, OfferingID: offering, Title: title})
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		})
	},
}

var seedSkillCmd = &cobra.Command{
	Use:   "skill",
	Short: "Create or update a catalog skill",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")
		name, _ := cmd.Flags().GetString("name")
		category, _ := cmd.Flags().GetString("category")
		return withEngine(cmd, func(ctx context.Context, rt *runtime) error {
			return rt.engine.UpsertSkill(ctx, engine.Skill{ID: id, Name: name, Category: category})
		})
	},
}

var seedGoalCmd = &cobra.Command{
	Use:   "goal",
	Short: "Set a student's career goal and its skills",
	RunE: func(cmd *cobra.Command, args []string) error {
		goal, _ := cmd.Flags().GetString("goal")
		student, _ := cmd.Flags().GetString("student")
		skills, _ := cmd.Flags().GetStringSlice("skills")
		return withEngine(cmd, func(ctx context.Context, rt *runtime) error {
			return rt.engine.SetGoal(ctx, goal, student, skills...)
		})
	},
}

var seedPlacementCmd = &cobra.Command{
	Use:   "placement",
	Short: "Record a placement-test result",
	RunE: func(cmd *cobra.Command, args []string) error {
		student, _ := cmd.Flags().GetString("student")
		offering, _ := cmd.Flags().GetString("offering")
		level, _ := cmd.Flags().GetString("level")
		return withEngine(cmd, func(ctx context.Context, rt *runtime) error {
			return rt.engine.AddPlacement(ctx, engine.Placement{
				StudentID:  student,
				OfferingID: offering,
				Level:      strings.ToUpper(level),
			})
		})
	},
}

var seedGapCmd = &cobra.Command{
	Use:   "gap",
	Short: "Set a gap-map entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		student, _ := cmd.Flags().GetString("student")
		skill, _ := cmd.Flags().GetString("skill")
		status, _ := cmd.Flags().GetString("status")
		progress, _ := cmd.Flags().GetInt("progress")
		return withEngine(cmd, func(ctx context.Context, rt *runtime) error {
			return rt.engine.SetGapEntry(ctx, engine.GapEntry{
				StudentID: student,
				SkillID:   skill,
				Status:    strings.ToUpper(status),
				Progress:  progress,
			})
		})
	},
}

func init() {
	seedOfferingCmd.Flags().String("id", "", "Offering ID (generated when empty)")
	seedOfferingCmd.Flags().String("title", "", "Offering title")
	seedOfferingCmd.Flags().String("instructor", "", "Instructor ID")
	seedOfferingCmd.Flags().Bool("require-review", false, "Routes need instructor approval before students see them")

	seedSessionCmd.Flags().String("id", "", "Session ID (generated when empty)")
	seedSessionCmd.Flags().String("offering", "", "Course offering ID")
	seedSessionCmd.Flags().String("title", "", "Session title")
	mustFlag(seedSessionCmd, "offering")

	seedSkillCmd.Flags().String("id", "", "Skill ID")
	seedSkillCmd.Flags().String("name", "", "Skill name")
	seedSkillCmd.Flags().String("category", "", "Skill category")
	mustFlag(seedSkillCmd, "id", "name")

	seedGoalCmd.Flags().String("goal", "", "Career goal ID")
	seedGoalCmd.Flags().String("student", "", "Student ID")
	seedGoalCmd.Flags().StringSlice("skills", nil, "Skill IDs required by the goal")
	mustFlag(seedGoalCmd, "goal", "student")

	seedPlacementCmd.Flags().String("student", "", "Student ID")
	seedPlacementCmd.Flags().String("offering", "", "Course offering ID")
	seedPlacementCmd.Flags().String("level", "", "BEGINNER, INTERMEDIATE or ADVANCED")
	mustFlag(seedPlacementCmd, "student", "level")

	seedGapCmd.Flags().String("student", "", "Student ID")
	seedGapCmd.Flags().String("skill", "", "Skill ID")
	seedGapCmd.Flags().String("status", "GAP", "GAP, LEARNING or OWNED")
	seedGapCmd.Flags().Int("progress", 0, "Progress 0-100")
	mustFlag(seedGapCmd, "student", "skill")

	seedCmd.AddCommand(seedOfferingCmd, seedSessionCmd, seedSkillCmd, seedGoalCmd, seedPlacementCmd, seedGapCmd)
}
