package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ReviewRoute is the remedial plan assembled for a student after a session.
type ReviewRoute struct {
	ent.Schema
}

func (ReviewRoute) Annotations() []schema.Annotation {
	return []schema.Annotation{entsql.Annotation{Table: "review_routes"}}
}

func (ReviewRoute) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").Immutable(),
		field.String("student_id").NotEmpty(),
		field.String("session_id").NotEmpty(),
		field.JSON("items", []map[string]any{}),
		field.Enum("status").Values("SUGGESTED", "AUTO_APPROVED", "APPROVED", "MODIFIED", "REJECTED"),
		field.JSON("completed_items", []int{}),
		field.Int("total_est_minutes").Default(0),
		field.Time("created_at"),
		field.Time("decided_at").Optional().Nillable(),
	}
}

func (ReviewRoute) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("student_id", "session_id").Unique(),
		index.Fields("status"),
	}
}
