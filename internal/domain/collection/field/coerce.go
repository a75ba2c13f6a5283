package field

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"math/big"
	"slices"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrRequired signals a required field with neither a value nor a default.
var ErrRequired = errors.New("value is required")

// DecimalValue is a validated decimal literal kept as text to preserve precision.
type DecimalValue string

// ObjectIDValue is a validated 24-character hex object id.
type ObjectIDValue string

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Value coerces a raw record value to the field type.
// present reports whether the record carried the key at all. The returned
// keep is false when the field should be left out of the stored document.
func (f Field) Value(raw any, present bool) (v any, keep bool, err error) {
	if isMissing(raw, present, f.fieldType) {
		if f.defaultValue != nil {
			return f.defaultValue, true, nil
		}
		if f.required {
			return nil, false, ErrRequired
		}
		return nil, false, nil
	}

	v, err = f.coerce(raw)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func isMissing(raw any, present bool, ft Type) bool {
	if !present || raw == nil {
		return true
	}
	if s, ok := raw.(string); ok && ft != String && ft != Mixed && strings.TrimSpace(s) == "" {
		return true
	}
	return false
}

func (f Field) coerce(raw any) (any, error) {
	switch f.fieldType {
	case String:
		return f.coerceString(raw)
	case Number:
		n, err := toFloat(raw)
		if err != nil {
			return nil, err
		}
		return n, f.checkRange(n)
	case Decimal:
		return f.coerceDecimal(raw)
	case Boolean:
		return toBool(raw)
	case Date:
		d, err := toTime(raw)
		if err != nil {
			return nil, err
		}
		return d, f.checkRange(float64(d.UnixMilli()))
	case Binary:
		return toBytes(raw)
	case ID:
		return toObjectID(raw)
	case Map:
		return toMap(raw)
	case Array:
		return toSlice(raw), nil
	case Mixed:
		return raw, nil
	default:
		return nil, fmt.Errorf("unsupported field type %q", f.fieldType)
	}
}

func (f Field) coerceString(raw any) (any, error) {
	var s string
	switch t := raw.(type) {
	case string:
		s = t
	case bool:
		s = strconv.FormatBool(t)
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	default:
		return nil, fmt.Errorf("cannot cast %T to String", raw)
	}
	if len(f.enumValues) > 0 && !slices.Contains(f.enumValues, s) {
		return nil, fmt.Errorf("%q is not one of %v", s, f.enumValues)
	}
	return s, nil
}

func (f Field) coerceDecimal(raw any) (any, error) {
	var text string
	switch t := raw.(type) {
	case string:
		text = strings.TrimSpace(t)
	default:
		n, err := toFloat(raw)
		if err != nil {
			return nil, err
		}
		text = strconv.FormatFloat(n, 'f', -1, 64)
	}
	r, ok := new(big.Rat).SetString(text)
	if !ok {
		return nil, fmt.Errorf("cannot cast %q to Decimal", text)
	}
	n, _ := r.Float64()
	if err := f.checkRange(n); err != nil {
		return nil, err
	}
	return DecimalValue(text), nil
}

func (f Field) checkRange(n float64) error {
	if f.min != nil && n < *f.min {
		return fmt.Errorf("%v is less than minimum %v", n, *f.min)
	}
	if f.max != nil && n > *f.max {
		return fmt.Errorf("%v is greater than maximum %v", n, *f.max)
	}
	return nil
}

func toFloat(raw any) (float64, error) {
	switch t := raw.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("cannot cast %q to Number", t)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("cannot cast %T to Number", raw)
	}
}

func toBool(raw any) (bool, error) {
	switch t := raw.(type) {
	case bool:
		return t, nil
	case float64:
		if t == 0 || t == 1 {
			return t == 1, nil
		}
	case int:
		if t == 0 || t == 1 {
			return t == 1, nil
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes", "on":
			return true, nil
		case "false", "0", "no", "off":
			return false, nil
		}
	}
	return false, fmt.Errorf("cannot cast %v to Boolean", raw)
}

func toTime(raw any) (time.Time, error) {
	switch t := raw.(type) {
	case time.Time:
		return t, nil
	case float64:
		return time.UnixMilli(int64(t)).UTC(), nil
	case int64:
		return time.UnixMilli(t).UTC(), nil
	case int:
		return time.UnixMilli(int64(t)).UTC(), nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if d, err := time.Parse(layout, s); err == nil {
				return d.UTC(), nil
			}
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC(), nil
		}
		return time.Time{}, fmt.Errorf("cannot cast %q to Date", t)
	}
	return time.Time{}, fmt.Errorf("cannot cast %T to Date", raw)
}

func toBytes(raw any) ([]byte, error) {
	switch t := raw.(type) {
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	}
	return nil, fmt.Errorf("cannot cast %T to Binary", raw)
}

func toObjectID(raw any) (ObjectIDValue, error) {
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("cannot cast %T to Id", raw)
	}
	s = strings.TrimSpace(s)
	if len(s) != 24 {
		return "", fmt.Errorf("cannot cast %q to Id: want 24 hex characters", s)
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", fmt.Errorf("cannot cast %q to Id: %w", s, err)
	}
	return ObjectIDValue(strings.ToLower(s)), nil
}

func toMap(raw any) (map[string]any, error) {
	switch t := raw.(type) {
	case map[string]any:
		return t, nil
	case string:
		var m map[string]any
		if err := json.UnmarshalFromString(strings.TrimSpace(t), &m); err != nil || m == nil {
			return nil, fmt.Errorf("cannot cast %q to Map", t)
		}
		return m, nil
	}
	return nil, fmt.Errorf("cannot cast %T to Map", raw)
}

func toSlice(raw any) []any {
	switch t := raw.(type) {
	case []any:
		return t
	case string:
		s := strings.TrimSpace(t)
		if strings.HasPrefix(s, "[") {
			var out []any
			if err := json.UnmarshalFromString(s, &out); err == nil {
				return out
			}
		}
	}
	return []any{raw}
}
