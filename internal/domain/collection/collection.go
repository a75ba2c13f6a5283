package collection

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/kailas-cloud/fedsearch/internal/domain/collection/field"
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Collection is the metadata aggregate of a dynamic collection (immutable value object).
type Collection struct {
	name        string
	displayName string
	fields      []field.Field
	version     int
	createdAt   int64
}

// FieldError reports which field rejected a record value.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return fmt.Sprintf("field %q: %v", e.Field, e.Err) }
func (e *FieldError) Unwrap() error { return e.Err }

// ValidateName checks the collection identifier.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("collection name is required")
	}
	if len(name) > 64 {
		return fmt.Errorf("collection name too long (max 64)")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("collection name must start with a letter or underscore and contain only letters, digits and underscores")
	}
	return nil
}

func validateFields(fields []field.Field) error {
	if len(fields) > 256 {
		return fmt.Errorf("too many fields (max 256)")
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f.Name()] {
			return fmt.Errorf("duplicate field name: %s", f.Name())
		}
		seen[f.Name()] = true
	}
	return nil
}

// New validates and creates a Collection at version 1.
// An empty displayName falls back to the name.
func New(name, displayName string, fields []field.Field) (Collection, error) {
	if err := ValidateName(name); err != nil {
		return Collection{}, err
	}
	if err := validateFields(fields); err != nil {
		return Collection{}, err
	}
	if displayName == "" {
		displayName = name
	}

	return Collection{
		name:        name,
		displayName: displayName,
		fields:      fields,
		version:     1,
		createdAt:   time.Now().UnixMilli(),
	}, nil
}

// Reconstruct creates a Collection without validation (storage hydration).
func Reconstruct(name, displayName string, fields []field.Field, version int, createdAt int64) Collection {
	return Collection{
		name:        name,
		displayName: displayName,
		fields:      fields,
		version:     version,
		createdAt:   createdAt,
	}
}

// Name returns the collection identifier.
func (c Collection) Name() string { return c.name }

// DisplayName returns the operator-facing label.
func (c Collection) DisplayName() string { return c.displayName }

// Fields returns the field definitions.
func (c Collection) Fields() []field.Field { return c.fields }

// Version increments on every schema change.
func (c Collection) Version() int { return c.version }

// CreatedAt returns the creation timestamp (unix millis).
func (c Collection) CreatedAt() int64 { return c.createdAt }

// FieldByName looks up a field by name.
func (c Collection) FieldByName(name string) (field.Field, bool) {
	for _, f := range c.fields {
		if f.Name() == name {
			return f, true
		}
	}
	return field.Field{}, false
}

// WithField returns a copy with f appended and the version bumped.
func (c Collection) WithField(f field.Field) (Collection, error) {
	if _, exists := c.FieldByName(f.Name()); exists {
		return Collection{}, fmt.Errorf("duplicate field name: %s", f.Name())
	}
	next := c
	next.fields = append(append([]field.Field(nil), c.fields...), f)
	next.version = c.version + 1
	return next, nil
}

// Coerce converts a raw record to the declared field types. Keys without a
// field definition pass through untouched. The input map is not modified.
func (c Collection) Coerce(record map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(record)+len(c.fields))
	for k, v := range record {
		out[k] = v
	}

	var errs []error
	for _, f := range c.fields {
		raw, present := record[f.Name()]
		v, keep, err := f.Value(raw, present)
		if err != nil {
			errs = append(errs, &FieldError{Field: f.Name(), Err: err})
			continue
		}
		if keep {
			out[f.Name()] = v
		} else {
			delete(out, f.Name())
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}
