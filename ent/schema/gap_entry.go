package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// GapEntry is the student's skill-ownership ledger row (the gap map).
type GapEntry struct {
	ent.Schema
}

func (GapEntry) Annotations() []schema.Annotation {
	return []schema.Annotation{entsql.Annotation{Table: "gap_map"}}
}

func (GapEntry) Fields() []ent.Field {
	return []ent.Field{
		field.String("student_id").NotEmpty(),
		field.String("skill_id").NotEmpty(),
		field.Enum("status").Values("GAP", "LEARNING", "OWNED"),
		field.Int("progress").Default(0),
		field.Time("updated_at"),
	}
}

func (GapEntry) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("student_id", "skill_id").Unique(),
	}
}
