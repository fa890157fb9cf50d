package intercept

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// CanonicalJSON serializes v the same way the Python original's
// `_serialize_request` does: map keys sorted at every depth, with any
// value that isn't already a JSON-native type coerced to its string
// form (the `default=str` fallback json.dumps uses). encoding/json
// already sorts map[string]any keys on Marshal, so the coercion pass
// below exists solely to stabilize the values that stdlib json cannot
// marshal on its own (time.Time, []byte, custom structs without tags,
// etc.) — it recurses first so nested maps/slices are stabilized too.
func CanonicalJSON(v any) ([]byte, error) {
	stabilized := stabilize(v)
	return json.Marshal(stabilized)
}

func stabilize(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = stabilize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = stabilize(item)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		keys := rv.MapKeys()
		strKeys := make([]string, 0, len(keys))
		byKey := make(map[string]reflect.Value, len(keys))
		for _, k := range keys {
			s := fmt.Sprintf("%v", k.Interface())
			strKeys = append(strKeys, s)
			byKey[s] = k
		}
		sort.Strings(strKeys)
		out := make(map[string]any, len(keys))
		for _, s := range strKeys {
			out[s] = stabilize(rv.MapIndex(byKey[s]).Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = stabilize(rv.Index(i).Interface())
		}
		return out
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return stabilize(rv.Elem().Interface())
	case reflect.Struct:
		// json.Marshal already handles tagged structs deterministically
		// (field declaration order, not map iteration order), so only
		// fall back to string coercion when it can't be marshaled at all.
		if _, err := json.Marshal(v); err == nil {
			return v
		}
		return fmt.Sprintf("%v", v)
	default:
		if _, err := json.Marshal(v); err == nil {
			return v
		}
		return fmt.Sprintf("%v", v)
	}
}
