package rogbus

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/godbus/dbus/v5"
)

// godbus hands structs back as []any, arrays as typed slices and dicts as
// typed maps. The helpers below accept all of those plus the plain Go
// values tests and variants produce.

func unwrap(v any) any {
	for {
		variant, ok := v.(dbus.Variant)
		if !ok {
			return v
		}
		v = variant.Value()
	}
}

func asBool(v any) (bool, bool) {
	switch x := unwrap(v).(type) {
	case bool:
		return x, true
	case string:
		b, err := strconv.ParseBool(x)
		return b, err == nil
	}
	if n, ok := asUint(v); ok {
		return n != 0, true
	}
	return false, false
}

func asUint(v any) (uint64, bool) {
	rv := reflect.ValueOf(unwrap(v))
	switch rv.Kind() {
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return rv.Uint(), true
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		if rv.Int() < 0 {
			return 0, false
		}
		return uint64(rv.Int()), true
	case reflect.Float32, reflect.Float64:
		if rv.Float() < 0 {
			return 0, false
		}
		return uint64(rv.Float()), true
	}
	return 0, false
}

func asString(v any) (string, bool) {
	switch x := unwrap(v).(type) {
	case string:
		return x, true
	case dbus.ObjectPath:
		return string(x), true
	}
	return "", false
}

func asList(v any) ([]any, bool) {
	v = unwrap(v)
	if l, ok := v.([]any); ok {
		return l, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func asMap(v any) (map[string]any, bool) {
	v = unwrap(v)
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// tuple returns v as a list of at least min elements.
func tuple(typ string, v any, min int) ([]any, error) {
	l, ok := asList(v)
	if !ok {
		return nil, &DecodeError{Type: typ, Detail: fmt.Sprintf("expected tuple, got %T", unwrap(v))}
	}
	if len(l) < min {
		return nil, &DecodeError{Type: typ, Detail: fmt.Sprintf("expected %d fields, got %d", min, len(l))}
	}
	return l, nil
}

// at returns element i of l, or nil past the end.
func at(l []any, i int) any {
	if i < len(l) {
		return l[i]
	}
	return nil
}

func boolAt(l []any, i int) bool {
	b, _ := asBool(at(l, i))
	return b
}

func stringAt(l []any, i int) string {
	s, _ := asString(at(l, i))
	return s
}

func stringsAt(l []any, i int) []string {
	items, ok := asList(at(l, i))
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := asString(item); ok {
			out = append(out, s)
		}
	}
	return out
}

// first returns the first element of a reply or signal body.
func first(typ string, body []any) (any, error) {
	if len(body) == 0 {
		return nil, &DecodeError{Type: typ, Detail: "empty body"}
	}
	return body[0], nil
}

func DecodeBool(v any) (bool, error) {
	b, ok := asBool(v)
	if !ok {
		return false, &DecodeError{Type: "bool", Detail: fmt.Sprintf("got %T", unwrap(v))}
	}
	return b, nil
}

func DecodeUint8(v any) (uint8, error) {
	n, ok := asUint(v)
	if !ok || n > 255 {
		return 0, &DecodeError{Type: "uint8", Detail: fmt.Sprintf("got %v", unwrap(v))}
	}
	return uint8(n), nil
}
