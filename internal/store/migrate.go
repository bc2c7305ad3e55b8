package store

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"

	entschema "github.com/rebootlabs/mastery/ent/schema"
)

// entities lists the ent schemas backing the store. The SQL tables are
// derived from these declarations at startup and migrated with ent's
// schema migrator, so ent/schema stays the single source of truth.
var entities = []ent.Interface{
	entschema.CourseOffering{},
	entschema.LiveSession{},
	entschema.Skill{},
	entschema.CareerGoalSkill{},
	entschema.StudentGoal{},
	entschema.Placement{},
	entschema.QuizResponse{},
	entschema.Pulse{},
	entschema.TranscriptChunk{},
	entschema.FormativeSubmission{},
	entschema.FormativeAnswer{},
	entschema.WeakZoneAlert{},
	entschema.SkillBlock{},
	entschema.GapEntry{},
	entschema.ReviewItem{},
	entschema.ReviewRoute{},
	entschema.LLMRequestEvent{},
}

// Tables returns the SQL table definitions for all entities.
func Tables() ([]*schema.Table, error) {
	tables := make([]*schema.Table, 0, len(entities))
	for _, e := range entities {
		t, err := tableOf(e)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func migrate(ctx context.Context, drv dialect.Driver) error {
	tables, err := Tables()
	if err != nil {
		return err
	}
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	return m.Create(ctx, tables...)
}

// tableOf converts an ent schema declaration into a migration table.
// Schemas without an explicit "id" field get an auto-increment integer key.
func tableOf(e ent.Interface) (*schema.Table, error) {
	name := tableName(e)
	if name == "" {
		return nil, fmt.Errorf("schema %s has no table annotation", reflect.TypeOf(e).Name())
	}
	t := schema.NewTable(name)

	var fields []ent.Field
	var indexes []ent.Index
	for _, m := range e.Mixin() {
		fields = append(fields, m.Fields()...)
		indexes = append(indexes, m.Indexes()...)
	}
	fields = append(fields, e.Fields()...)
	indexes = append(indexes, e.Indexes()...)

	hasID := false
	for _, f := range fields {
		if f.Descriptor().Name == "id" {
			hasID = true
		}
	}
	if !hasID {
		t.AddPrimary(&schema.Column{Name: "id", Type: field.TypeInt, Increment: true})
	}

	for _, f := range fields {
		d := f.Descriptor()
		if d.Err != nil {
			return nil, fmt.Errorf("%s.%s: %w", name, d.Name, d.Err)
		}
		c := &schema.Column{
			Name:     d.Name,
			Type:     d.Info.Type,
			Size:     int64(d.Size),
			Unique:   d.Unique,
			Nullable: d.Optional,
		}
		for _, ev := range d.Enums {
			c.Enums = append(c.Enums, ev.V)
		}
		if d.Default != nil && reflect.TypeOf(d.Default).Kind() != reflect.Func {
			c.Default = d.Default
		}
		if d.Name == "id" {
			t.AddPrimary(c)
			continue
		}
		t.AddColumn(c)
	}

	for _, idx := range indexes {
		d := idx.Descriptor()
		idxName := strings.TrimSuffix(name, "s") + "_" + strings.Join(d.Fields, "_")
		if d.StorageKey != "" {
			idxName = d.StorageKey
		}
		t.AddIndex(idxName, d.Unique, d.Fields)
	}
	return t, nil
}

func tableName(e ent.Interface) string {
	for _, a := range e.Annotations() {
		switch ant := a.(type) {
		case entsql.Annotation:
			return ant.Table
		case *entsql.Annotation:
			return ant.Table
		}
	}
	return ""
}
