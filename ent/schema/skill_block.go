package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// SkillBlock is the composite mastery score of one skill for a student in
// a course offering.
type SkillBlock struct {
	ent.Schema
}

func (SkillBlock) Annotations() []schema.Annotation {
	return []schema.Annotation{entsql.Annotation{Table: "skill_blocks"}}
}

func (SkillBlock) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").Immutable(),
		field.String("student_id").NotEmpty(),
		field.String("skill_id").NotEmpty(),
		field.String("course_offering_id").NotEmpty(),
		field.Int("level").Default(2),
		field.Float("checkpoint_score").Default(0),
		field.Float("formative_score").Default(0),
		field.Float("understand_score").Default(0),
		field.Float("total_score").Default(0),
		field.Bool("is_earned").Default(false),
		field.Time("earned_at").Optional().Nillable().
			Comment("Set on the first transition to earned, never cleared"),
		field.Time("updated_at"),
	}
}

func (SkillBlock) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("student_id", "skill_id", "course_offering_id").Unique(),
	}
}
