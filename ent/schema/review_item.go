package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ReviewItem is a spaced-repetition card for one missed concept.
type ReviewItem struct {
	ent.Schema
}

func (ReviewItem) Annotations() []schema.Annotation {
	return []schema.Annotation{entsql.Annotation{Table: "review_items"}}
}

func (ReviewItem) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").Immutable(),
		field.String("student_id").NotEmpty(),
		field.String("concept_name").MaxLen(200).NotEmpty(),
		field.String("source_session_id").Default(""),
		field.Text("review_question"),
		field.String("review_answer").MaxLen(500),
		field.JSON("review_options", []string{}),
		field.JSON("schedule", []map[string]any{}).
			Comment("Five stages: review_num, label, due_at, completed, completed_at"),
		field.Int("current_review").Default(0),
		field.Time("created_at"),
	}
}

func (ReviewItem) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("student_id", "concept_name").Unique(),
		index.Fields("source_session_id"),
	}
}
