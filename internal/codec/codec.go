// Package codec serializes schemas to JSON, YAML, TOML and msgpack.
package codec

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/tordrt/schemagraph/internal/schema"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Format is a serialization format
type Format string

const (
	JSON    Format = "json"
	YAML    Format = "yaml"
	TOML    Format = "toml"
	MsgPack Format = "msgpack"
)

// ErrUnknownFormat is returned for a format or file extension with no codec
var ErrUnknownFormat = errors.New("unknown serialization format")

// Document is the on-disk form of a schema
type Document struct {
	Tables []schema.Table `json:"tables" yaml:"tables" toml:"tables" msgpack:"tables"`
}

// FormatFromPath picks the format from a file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	case ".msgpack", ".mp":
		return MsgPack, nil
	default:
		return "", errors.Wrapf(ErrUnknownFormat, "extension of %q", path)
	}
}

// NewDocument copies every table a container resolves into a Document
func NewDocument(c schema.TableContainer) Document {
	var doc Document
	for _, t := range schema.Materialize(c).Tables() {
		doc.Tables = append(doc.Tables, *t)
	}
	return doc
}

// Schema builds a schema from the document tables
func (d Document) Schema() *schema.Schema {
	s := schema.New()
	for i := range d.Tables {
		t := d.Tables[i]
		s.Add(&t)
	}
	return s
}

// Marshal encodes a schema in the given format
func Marshal(f Format, c schema.TableContainer) ([]byte, error) {
	return marshalValue(f, NewDocument(c))
}

// Unmarshal decodes a schema in the given format
func Unmarshal(f Format, data []byte) (*schema.Schema, error) {
	var doc Document
	if err := unmarshalValue(f, data, &doc); err != nil {
		return nil, err
	}
	return doc.Schema(), nil
}

// MarshalTable encodes a single table as msgpack
func MarshalTable(t *schema.Table) ([]byte, error) {
	return msgpack.Marshal(t)
}

// UnmarshalTable decodes a single msgpack table
func UnmarshalTable(data []byte) (*schema.Table, error) {
	var t schema.Table
	if err := msgpack.Unmarshal(data, &t); err != nil {
		return nil, errors.Wrap(err, "failed to decode table")
	}
	return &t, nil
}

// Generic decodes data into plain JSON values (maps, slices, strings,
// json.Number, bools and nil) regardless of the source format, suitable for
// JSON Schema validation.
func Generic(f Format, data []byte) (any, error) {
	var raw []byte
	switch f {
	case JSON:
		raw = data
	case YAML, TOML:
		var v any
		if f == YAML {
			if err := yaml.Unmarshal(data, &v); err != nil {
				return nil, errors.Wrap(err, "failed to decode yaml")
			}
		} else {
			m := make(map[string]any)
			if err := toml.Unmarshal(data, &m); err != nil {
				return nil, errors.Wrap(err, "failed to decode toml")
			}
			v = m
		}
		buf, err := json.Marshal(v)
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert to json")
		}
		raw = buf
	default:
		return nil, errors.Wrapf(ErrUnknownFormat, "%q", f)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errors.Wrap(err, "failed to decode json")
	}
	return v, nil
}

func marshalValue(f Format, v any) ([]byte, error) {
	switch f {
	case JSON:
		return json.MarshalIndent(v, "", "  ")
	case YAML:
		return yaml.Marshal(v)
	case TOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(v); err != nil {
			return nil, errors.Wrap(err, "failed to encode toml")
		}
		return buf.Bytes(), nil
	case MsgPack:
		return msgpack.Marshal(v)
	default:
		return nil, errors.Wrapf(ErrUnknownFormat, "%q", f)
	}
}

func unmarshalValue(f Format, data []byte, v any) error {
	var err error
	switch f {
	case JSON:
		err = json.Unmarshal(data, v)
	case YAML:
		err = yaml.Unmarshal(data, v)
	case TOML:
		err = toml.Unmarshal(data, v)
	case MsgPack:
		err = msgpack.Unmarshal(data, v)
	default:
		return errors.Wrapf(ErrUnknownFormat, "%q", f)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to decode %s", f)
	}
	return nil
}
