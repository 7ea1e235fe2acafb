package tools

import (
	"reflect"
	"sort"
	"strings"
)

// BuildSchema derives an object JSON Schema from a struct's json and
// jsonschema tags. Supported jsonschema attributes: description=...,
// required, enum=a|b, default=...
//
//	type Args struct {
//	    Query string `json:"query" jsonschema:"description=Search query,required"`
//	}
func BuildSchema(v any) map[string]any {
	t := reflect.TypeOf(v)
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return objectSchema(t)
}

func objectSchema(t reflect.Type) map[string]any {
	props := make(map[string]any)
	var required []string

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag := f.Tag.Get("json"); tag != "" {
			head, _, _ := strings.Cut(tag, ",")
			if head == "-" {
				continue
			}
			if head != "" {
				name = head
			}
		}

		prop := typeSchema(f.Type)
		for _, attr := range strings.Split(f.Tag.Get("jsonschema"), ",") {
			attr = strings.TrimSpace(attr)
			switch {
			case attr == "required":
				required = append(required, name)
			case strings.HasPrefix(attr, "description="):
				prop["description"] = strings.TrimPrefix(attr, "description=")
			case strings.HasPrefix(attr, "default="):
				prop["default"] = strings.TrimPrefix(attr, "default=")
			case strings.HasPrefix(attr, "enum="):
				var vals []any
				for _, v := range strings.Split(strings.TrimPrefix(attr, "enum="), "|") {
					vals = append(vals, v)
				}
				prop["enum"] = vals
			}
		}
		props[name] = prop
	}

	schema := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func typeSchema(t reflect.Type) map[string]any {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return map[string]any{"type": "string"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.Slice, reflect.Array:
		return map[string]any{"type": "array", "items": typeSchema(t.Elem())}
	case reflect.Struct:
		return objectSchema(t)
	default:
		return map[string]any{"type": "object"}
	}
}

// ParamNames lists the property names of an object schema, sorted.
func ParamNames(schema map[string]any) []string {
	props, _ := schema["properties"].(map[string]any)
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
