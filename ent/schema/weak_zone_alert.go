package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// WeakZoneAlert flags a student who appears to be struggling during a
// live session.
type WeakZoneAlert struct {
	ent.Schema
}

func (WeakZoneAlert) Annotations() []schema.Annotation {
	return []schema.Annotation{entsql.Annotation{Table: "weak_zone_alerts"}}
}

func (WeakZoneAlert) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").Immutable(),
		field.String("session_id").NotEmpty(),
		field.String("student_id").NotEmpty(),
		field.Enum("trigger_type").Values("QUIZ_WRONG", "PULSE_CONFUSED", "COMBINED"),
		field.Enum("trigger_family").Values("QUIZ", "PULSE").
			Comment("Cooldown family; PULSE_CONFUSED and COMBINED share PULSE"),
		field.JSON("trigger_detail", map[string]any{}),
		field.Text("ai_suggested_content").Default(""),
		field.Enum("status").Values("DETECTED", "MATERIAL_PUSHED", "DISMISSED", "RESOLVED"),
		field.Time("created_at"),
		field.Time("updated_at"),
	}
}

func (WeakZoneAlert) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("session_id", "student_id", "trigger_family", "created_at"),
		index.Fields("status"),
	}
}
