package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// TranscriptChunk is a piece of live-session speech-to-text output.
type TranscriptChunk struct {
	ent.Schema
}

func (TranscriptChunk) Annotations() []schema.Annotation {
	return []schema.Annotation{entsql.Annotation{Table: "transcript_chunks"}}
}

func (TranscriptChunk) Mixin() []ent.Mixin {
	return []ent.Mixin{EventMixin{}}
}

func (TranscriptChunk) Fields() []ent.Field {
	return []ent.Field{
		field.String("session_id").NotEmpty(),
		field.Text("text"),
	}
}

func (TranscriptChunk) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("session_id"),
	}
}
