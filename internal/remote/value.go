package remote

import (
	"strconv"
	"time"
)

// Value is one typed field value in the remote store's wire format. Exactly
// one member is set.
type Value struct {
	StringValue    *string     `json:"stringValue,omitempty"`
	IntegerValue   *string     `json:"integerValue,omitempty"`
	DoubleValue    *float64    `json:"doubleValue,omitempty"`
	BooleanValue   *bool       `json:"booleanValue,omitempty"`
	TimestampValue *time.Time  `json:"timestampValue,omitempty"`
	NullValue      *string     `json:"nullValue,omitempty"`
	ArrayValue     *ArrayValue `json:"arrayValue,omitempty"`
	MapValue       *MapValue   `json:"mapValue,omitempty"`
}

// ArrayValue wraps a list of values.
type ArrayValue struct {
	Values []Value `json:"values,omitempty"`
}

// MapValue wraps a nested field map.
type MapValue struct {
	Fields map[string]Value `json:"fields,omitempty"`
}

// Go converts a wire value to its plain Go form. Unset and null values
// yield nil.
func (v Value) Go() any {
	switch {
	case v.StringValue != nil:
		return *v.StringValue
	case v.IntegerValue != nil:
		n, err := strconv.ParseInt(*v.IntegerValue, 10, 64)
		if err != nil {
			return nil
		}
		return n
	case v.DoubleValue != nil:
		return *v.DoubleValue
	case v.BooleanValue != nil:
		return *v.BooleanValue
	case v.TimestampValue != nil:
		return *v.TimestampValue
	case v.ArrayValue != nil:
		out := make([]any, 0, len(v.ArrayValue.Values))
		for _, item := range v.ArrayValue.Values {
			out = append(out, item.Go())
		}
		return out
	case v.MapValue != nil:
		return goFields(v.MapValue.Fields)
	default:
		return nil
	}
}

// FromGo converts a plain Go value to its wire form. Unsupported types
// degrade to null.
func FromGo(v any) Value {
	switch t := v.(type) {
	case string:
		return Value{StringValue: &t}
	case bool:
		return Value{BooleanValue: &t}
	case int:
		s := strconv.FormatInt(int64(t), 10)
		return Value{IntegerValue: &s}
	case int64:
		s := strconv.FormatInt(t, 10)
		return Value{IntegerValue: &s}
	case float64:
		return Value{DoubleValue: &t}
	case time.Time:
		return Value{TimestampValue: &t}
	case []any:
		values := make([]Value, 0, len(t))
		for _, item := range t {
			values = append(values, FromGo(item))
		}
		return Value{ArrayValue: &ArrayValue{Values: values}}
	case map[string]any:
		return Value{MapValue: &MapValue{Fields: FieldsFromGo(t)}}
	default:
		null := "NULL_VALUE"
		return Value{NullValue: &null}
	}
}

// FieldsFromGo converts a plain field map to wire form.
func FieldsFromGo(fields map[string]any) map[string]Value {
	out := make(map[string]Value, len(fields))
	for k, v := range fields {
		out[k] = FromGo(v)
	}
	return out
}

func goFields(fields map[string]Value) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v.Go()
	}
	return out
}
