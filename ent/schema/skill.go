package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Skill is a unit of competency.
type Skill struct {
	ent.Schema
}

func (Skill) Annotations() []schema.Annotation {
	return []schema.Annotation{entsql.Annotation{Table: "skills"}}
}

func (Skill) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").Immutable(),
		field.String("name").NotEmpty(),
		field.String("category").Default(""),
	}
}

// CareerGoalSkill links a career goal to a required skill.
type CareerGoalSkill struct {
	ent.Schema
}

func (CareerGoalSkill) Annotations() []schema.Annotation {
	return []schema.Annotation{entsql.Annotation{Table: "career_goal_skills"}}
}

func (CareerGoalSkill) Fields() []ent.Field {
	return []ent.Field{
		field.String("goal_id").NotEmpty(),
		field.String("skill_id").NotEmpty(),
	}
}

func (CareerGoalSkill) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("goal_id", "skill_id").Unique(),
	}
}

// StudentGoal is the career goal a student selected.
type StudentGoal struct {
	ent.Schema
}

func (StudentGoal) Annotations() []schema.Annotation {
	return []schema.Annotation{entsql.Annotation{Table: "student_goals"}}
}

func (StudentGoal) Fields() []ent.Field {
	return []ent.Field{
		field.String("student_id").NotEmpty().Unique(),
		field.String("goal_id").NotEmpty(),
	}
}

// Placement is a placement-test outcome used for the skill block level.
type Placement struct {
	ent.Schema
}

func (Placement) Annotations() []schema.Annotation {
	return []schema.Annotation{entsql.Annotation{Table: "placements"}}
}

func (Placement) Fields() []ent.Field {
	return []ent.Field{
		field.String("student_id").NotEmpty(),
		field.String("course_offering_id").Default(""),
		field.Enum("level").Values("BEGINNER", "INTERMEDIATE", "ADVANCED"),
		field.Time("created_at"),
	}
}

func (Placement) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("student_id", "created_at"),
	}
}
