package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// FormativeSubmission is a student's graded post-session assessment.
type FormativeSubmission struct {
	ent.Schema
}

func (FormativeSubmission) Annotations() []schema.Annotation {
	return []schema.Annotation{entsql.Annotation{Table: "formative_submissions"}}
}

func (FormativeSubmission) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").Immutable(),
		field.String("session_id").NotEmpty(),
		field.String("student_id").NotEmpty(),
		field.Int("score"),
		field.Int("total"),
		field.Float("percentage"),
		field.Time("submitted_at"),
	}
}

func (FormativeSubmission) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("session_id", "student_id").Unique(),
	}
}

// FormativeAnswer is one graded question of a submission.
type FormativeAnswer struct {
	ent.Schema
}

func (FormativeAnswer) Annotations() []schema.Annotation {
	return []schema.Annotation{entsql.Annotation{Table: "formative_answers"}}
}

func (FormativeAnswer) Fields() []ent.Field {
	return []ent.Field{
		field.String("submission_id").NotEmpty(),
		field.Int("position"),
		field.String("concept_tag").Default(""),
		field.Text("question_text"),
		field.String("correct_answer"),
		field.JSON("options", []string{}),
		field.Bool("is_correct"),
	}
}

func (FormativeAnswer) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("submission_id"),
	}
}
