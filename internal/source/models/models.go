// Package models drafts a schema from Go types registered at compile time.
//
// Struct fields are described by a db tag:
//
//	type User struct {
//		ID      int64   `db:"id,pk,auto"`
//		Email   string  `db:"email,unique,type=varchar(255)"`
//		GroupID *int64  `db:"group_id,fk=groups.id"`
//		Secret  string  `db:"-"`
//	}
//
// Untagged exported fields map to their snake_case name. Pointer fields are
// nullable.
package models

import (
	"context"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/cockroachdb/errors"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/tordrt/schemagraph/internal/introspect"
	"github.com/tordrt/schemagraph/internal/naming"
	"github.com/tordrt/schemagraph/internal/schema"
)

// Config configures a Source
type Config struct {
	Logger     logger.Logger
	Convention *naming.Convention
}

// Source is a registry of tables bound to models
type Source struct {
	logger     logger.Logger
	convention *naming.Convention
	tables     *schema.Schema
	errors     []error
}

// New creates an empty model registry
func New(config Config) *Source {
	conv := config.Convention
	if conv == nil {
		conv = naming.Default()
	}
	return &Source{
		logger:     config.Logger.WithPrefix("[models]"),
		convention: conv,
		tables:     schema.New(),
	}
}

// Bind attaches a model identifier to a table
func (s *Source) Bind(table, model string) *Source {
	s.add(&schema.Table{Name: table, Model: model})
	return s
}

// Register reflects the fields of a struct into a table and binds the
// struct's type name as its model. An invalid value is recorded as an error.
func (s *Source) Register(table string, v any) *Source {
	t, err := tableFromStruct(table, v)
	if err != nil {
		s.errors = append(s.errors, errors.Wrapf(err, "failed to register %s", table))
		return s
	}
	s.add(t)
	return s
}

func (s *Source) add(t *schema.Table) {
	s.tables = schema.Merge(s.tables, schema.New(t))
}

// Draft returns the registered tables with relations inferred from their
// declared foreign keys and names
func (s *Source) Draft(ctx context.Context) (*schema.Schema, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result := s.tables.Clone()
	introspect.Infer(result, s.convention)
	s.logger.Debug("drafted %d model tables", result.Len())
	return result, nil
}

// Errors returns and clears the registration errors
func (s *Source) Errors() []error {
	errs := s.errors
	s.errors = nil
	return errs
}

var timeType = reflect.TypeOf(time.Time{})

func tableFromStruct(name string, v any) (*schema.Table, error) {
	rt := reflect.TypeOf(v)
	for rt != nil && rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt == nil || rt.Kind() != reflect.Struct {
		return nil, errors.Newf("expected a struct, got %T", v)
	}

	t := &schema.Table{Name: name, Model: rt.String()}
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := sf.Tag.Get("db")
		if tag == "-" {
			continue
		}
		field, fk, err := parseField(sf, tag)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", sf.Name)
		}
		t.SetField(field)
		if fk != nil {
			t.SetForeignKey(*fk)
		}
	}
	return t, nil
}

func parseField(sf reflect.StructField, tag string) (schema.Field, *schema.ForeignKey, error) {
	parts := strings.Split(tag, ",")
	field := schema.Field{Name: parts[0]}
	if field.Name == "" {
		field.Name = SnakeCase(sf.Name)
	}

	ft := sf.Type
	if ft.Kind() == reflect.Pointer {
		field.Nullable = true
		ft = ft.Elem()
	}
	field.Type = columnType(ft)

	var fk *schema.ForeignKey
	for _, opt := range parts[1:] {
		key, value, _ := strings.Cut(strings.TrimSpace(opt), "=")
		switch key {
		case "pk":
			field.PrimaryKey = true
			field.Nullable = false
		case "auto":
			field.AutoIncrement = true
		case "unique":
			field.Unique = true
		case "nullable":
			field.Nullable = true
		case "type":
			field.Type = value
		case "default":
			def := value
			field.DefaultValue = &def
		case "fk":
			table, column, _ := strings.Cut(value, ".")
			if table == "" {
				return field, nil, errors.Newf("invalid foreign key %q", value)
			}
			fk = &schema.ForeignKey{
				Name:          field.Name + "_fk",
				Column:        field.Name,
				ForeignTable:  table,
				ForeignColumn: column,
			}
		case "":
		default:
			return field, nil, errors.Newf("unknown db tag option %q", key)
		}
	}
	return field, fk, nil
}

func columnType(t reflect.Type) string {
	if t == timeType {
		return "timestamp"
	}
	switch t.Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "real"
	case reflect.String:
		return "text"
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return "blob"
		}
		return "json"
	case reflect.Map, reflect.Struct:
		return "json"
	default:
		return t.String()
	}
}

// SnakeCase converts a Go identifier to snake_case, keeping acronyms
// together: UserID becomes user_id.
func SnakeCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
