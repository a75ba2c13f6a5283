package field

import (
	"fmt"
	"strings"
)

var reservedFieldNames = map[string]bool{
	"_id": true, "__v": true,
}

// Field is an immutable value object describing one field of a collection.
type Field struct {
	name         string
	fieldType    Type
	required     bool
	defaultValue any
	enumValues   []string
	min          *float64
	max          *float64
}

// Option configures optional field constraints.
type Option func(*Field)

// Required marks the field as mandatory.
func Required() Option { return func(f *Field) { f.required = true } }

// WithDefault sets the value used when a record omits the field.
func WithDefault(v any) Option { return func(f *Field) { f.defaultValue = v } }

// WithEnum restricts String values to the given set.
func WithEnum(values ...string) Option {
	return func(f *Field) { f.enumValues = append([]string(nil), values...) }
}

// WithMin sets the lower bound. Dates compare as unix milliseconds.
func WithMin(v float64) Option { return func(f *Field) { f.min = &v } }

// WithMax sets the upper bound. Dates compare as unix milliseconds.
func WithMax(v float64) Option { return func(f *Field) { f.max = &v } }

// New validates and creates a Field.
func New(name string, ft Type, opts ...Option) (Field, error) {
	if name == "" {
		return Field{}, fmt.Errorf("field name is required")
	}
	if len(name) > 64 {
		return Field{}, fmt.Errorf("field name %q too long (max 64)", name)
	}
	if reservedFieldNames[name] {
		return Field{}, fmt.Errorf("field name %q is reserved", name)
	}
	if strings.HasPrefix(name, "$") || strings.Contains(name, ".") {
		return Field{}, fmt.Errorf("field name %q must not start with '$' or contain '.'", name)
	}
	if !ft.IsValid() {
		return Field{}, fmt.Errorf("invalid field type %q for %q", ft, name)
	}

	f := Field{name: name, fieldType: ft}
	for _, opt := range opts {
		opt(&f)
	}

	if len(f.enumValues) > 0 && ft != String {
		return Field{}, fmt.Errorf("field %q: enum values are only allowed on String fields", name)
	}
	if (f.min != nil || f.max != nil) && !ft.supportsRange() {
		return Field{}, fmt.Errorf("field %q: min/max are only allowed on Number, Decimal and Date fields", name)
	}
	if f.min != nil && f.max != nil && *f.min > *f.max {
		return Field{}, fmt.Errorf("field %q: min %v is greater than max %v", name, *f.min, *f.max)
	}
	if f.defaultValue != nil {
		v, err := f.coerce(f.defaultValue)
		if err != nil {
			return Field{}, fmt.Errorf("field %q: invalid default: %w", name, err)
		}
		f.defaultValue = v
	}
	return f, nil
}

// Reconstruct creates a Field without validation (storage hydration).
func Reconstruct(name string, ft Type, opts ...Option) Field {
	f := Field{name: name, fieldType: ft}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// Name returns the field name.
func (f Field) Name() string { return f.name }

// FieldType returns the field's storage type.
func (f Field) FieldType() Type { return f.fieldType }

// Required reports whether the field must be present.
func (f Field) Required() bool { return f.required }

// Default returns the default value, or nil.
func (f Field) Default() any { return f.defaultValue }

// EnumValues returns the allowed values for String fields.
func (f Field) EnumValues() []string { return f.enumValues }

// Min returns the lower bound, if any.
func (f Field) Min() (float64, bool) {
	if f.min == nil {
		return 0, false
	}
	return *f.min, true
}

// Max returns the upper bound, if any.
func (f Field) Max() (float64, bool) {
	if f.max == nil {
		return 0, false
	}
	return *f.max, true
}
