package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// QuizResponse is one checkpoint-quiz answer given during a live session.
// The mixin timestamp is the response time.
type QuizResponse struct {
	ent.Schema
}

func (QuizResponse) Annotations() []schema.Annotation {
	return []schema.Annotation{entsql.Annotation{Table: "quiz_responses"}}
}

func (QuizResponse) Mixin() []ent.Mixin {
	return []ent.Mixin{EventMixin{}}
}

func (QuizResponse) Fields() []ent.Field {
	return []ent.Field{
		field.String("session_id").NotEmpty(),
		field.String("student_id").NotEmpty(),
		field.String("quiz_id").NotEmpty(),
		field.Text("question_text"),
		field.String("correct_answer"),
		field.String("submitted_answer"),
		field.Bool("is_correct"),
	}
}

func (QuizResponse) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("session_id", "student_id"),
	}
}
