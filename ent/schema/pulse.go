package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Pulse is a real-time understanding signal sent during a live session.
type Pulse struct {
	ent.Schema
}

func (Pulse) Annotations() []schema.Annotation {
	return []schema.Annotation{entsql.Annotation{Table: "pulses"}}
}

func (Pulse) Mixin() []ent.Mixin {
	return []ent.Mixin{EventMixin{}}
}

func (Pulse) Fields() []ent.Field {
	return []ent.Field{
		field.String("session_id").NotEmpty(),
		field.String("student_id").NotEmpty(),
		field.Enum("pulse_type").Values("UNDERSTAND", "CONFUSED"),
	}
}

func (Pulse) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("session_id", "student_id", "pulse_type"),
	}
}
