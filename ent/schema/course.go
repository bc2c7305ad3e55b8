package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// CourseOffering is a run of a course owned by one instructor.
type CourseOffering struct {
	ent.Schema
}

func (CourseOffering) Annotations() []schema.Annotation {
	return []schema.Annotation{entsql.Annotation{Table: "course_offerings"}}
}

func (CourseOffering) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").Immutable(),
		field.String("title"),
		field.String("instructor_id").NotEmpty(),
		field.Bool("require_route_review").Default(false).
			Comment("New review routes start SUGGESTED instead of AUTO_APPROVED"),
		field.Time("created_at"),
	}
}

func (CourseOffering) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("instructor_id"),
	}
}

// LiveSession is one live class of a course offering.
type LiveSession struct {
	ent.Schema
}

func (LiveSession) Annotations() []schema.Annotation {
	return []schema.Annotation{entsql.Annotation{Table: "live_sessions"}}
}

func (LiveSession) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").Immutable(),
		field.String("course_offering_id").NotEmpty(),
		field.String("title").Default(""),
		field.Enum("status").Values("WAITING", "LIVE", "ENDED"),
		field.Time("started_at").Optional().Nillable(),
		field.Time("ended_at").Optional().Nillable(),
		field.Time("created_at"),
	}
}

func (LiveSession) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("course_offering_id", "status"),
	}
}
