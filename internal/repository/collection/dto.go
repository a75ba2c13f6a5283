package collection

import (
	"fmt"
	"strconv"

	jsoniter "github.com/json-iterator/go"

	"github.com/kailas-cloud/fedsearch/internal/domain/collection"
	"github.com/kailas-cloud/fedsearch/internal/domain/collection/field"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// fieldRow is the JSON-serializable representation of a field for HSET.
type fieldRow struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Required bool     `json:"required,omitempty"`
	Default  any      `json:"default,omitempty"`
	Enum     []string `json:"enum,omitempty"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
}

func toRow(f field.Field) fieldRow {
	row := fieldRow{
		Name:     f.Name(),
		Type:     string(f.FieldType()),
		Required: f.Required(),
		Default:  f.Default(),
		Enum:     f.EnumValues(),
	}
	// Binary defaults round-trip as text; toBytes reads strings byte for byte.
	if b, ok := row.Default.([]byte); ok {
		row.Default = string(b)
	}
	if v, ok := f.Min(); ok {
		row.Min = &v
	}
	if v, ok := f.Max(); ok {
		row.Max = &v
	}
	return row
}

// fromRow re-validates the row so stored defaults are coerced again.
func fromRow(r fieldRow) (field.Field, error) {
	var opts []field.Option
	if r.Required {
		opts = append(opts, field.Required())
	}
	if r.Default != nil {
		opts = append(opts, field.WithDefault(r.Default))
	}
	if len(r.Enum) > 0 {
		opts = append(opts, field.WithEnum(r.Enum...))
	}
	if r.Min != nil {
		opts = append(opts, field.WithMin(*r.Min))
	}
	if r.Max != nil {
		opts = append(opts, field.WithMax(*r.Max))
	}
	return field.New(r.Name, field.Type(r.Type), opts...)
}

// collectionToHash converts a domain Collection to a map for HSET.
func collectionToHash(col collection.Collection) (map[string]string, error) {
	rows := make([]fieldRow, len(col.Fields()))
	for i, f := range col.Fields() {
		rows[i] = toRow(f)
	}
	fieldsJSON, err := json.MarshalToString(rows)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}
	return map[string]string{
		"name":         col.Name(),
		"display_name": col.DisplayName(),
		"fields_json":  fieldsJSON,
		"created_at":   strconv.FormatInt(col.CreatedAt(), 10),
		"version":      strconv.Itoa(col.Version()),
	}, nil
}

// collectionFromHash hydrates a domain Collection from an HGETALL result map.
func collectionFromHash(m map[string]string) (collection.Collection, error) {
	createdAt, err := strconv.ParseInt(m["created_at"], 10, 64)
	if err != nil {
		return collection.Collection{}, fmt.Errorf("invalid created_at: %w", err)
	}

	var rows []fieldRow
	if s := m["fields_json"]; s != "" {
		if err := json.UnmarshalFromString(s, &rows); err != nil {
			return collection.Collection{}, fmt.Errorf("unmarshal fields: %w", err)
		}
	}

	fields := make([]field.Field, 0, len(rows))
	for _, r := range rows {
		f, err := fromRow(r)
		if err != nil {
			return collection.Collection{}, fmt.Errorf("hydrate field: %w", err)
		}
		fields = append(fields, f)
	}

	version := 1
	if s := m["version"]; s != "" {
		if parsed, err := strconv.Atoi(s); err == nil {
			version = parsed
		}
	}

	return collection.Reconstruct(m["name"], m["display_name"], fields, version, createdAt), nil
}
