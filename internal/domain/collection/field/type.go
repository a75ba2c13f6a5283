package field

import (
	"fmt"
	"strings"
)

// Type is the storage type of a field. The set is closed: values outside it
// are rejected by ParseType and New.
type Type string

// Field types.
const (
	String  Type = "String"
	Number  Type = "Number"
	Boolean Type = "Boolean"
	Date    Type = "Date"
	Binary  Type = "Binary"
	Mixed   Type = "Mixed"
	ID      Type = "Id"
	Decimal Type = "Decimal"
	Map     Type = "Map"
	Array   Type = "Array"
)

var allTypes = []Type{String, Number, Boolean, Date, Binary, Mixed, ID, Decimal, Map, Array}

// legacy names used by older schema definitions
var typeAliases = map[string]Type{
	"buffer":     Binary,
	"objectid":   ID,
	"decimal128": Decimal,
}

// ParseType resolves a type name case-insensitively, including legacy aliases.
func ParseType(s string) (Type, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, t := range allTypes {
		if strings.ToLower(string(t)) == key {
			return t, nil
		}
	}
	if t, ok := typeAliases[key]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown field type %q", s)
}

// IsValid reports whether t is one of the known types.
func (t Type) IsValid() bool {
	for _, known := range allTypes {
		if t == known {
			return true
		}
	}
	return false
}

// supportsRange reports whether min/max apply to the type.
func (t Type) supportsRange() bool {
	return t == Number || t == Decimal || t == Date
}
