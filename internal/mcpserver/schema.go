package mcpserver

import (
	"reflect"
	"strings"
)

// schemaFromStruct builds a minimal JSON Schema object describing t's
// exported fields from its json/jsonschema struct tags. Used only by the
// HTTP+SSE transport's tools/list response; the stdio transport registers
// every tool with a generic map[string]any argument type, so these tags
// play no part in its schema.
func schemaFromStruct(t reflect.Type) map[string]any {
	props := map[string]any{}
	var required []string

	if t != nil && t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			tag := f.Tag.Get("json")
			name := strings.Split(tag, ",")[0]
			if name == "" {
				name = f.Name
			}
			if name == "-" {
				continue
			}

			entry := map[string]any{"type": jsonTypeOf(f.Type)}
			if desc := f.Tag.Get("jsonschema"); desc != "" {
				entry["description"] = desc
			}
			props[name] = entry

			if !strings.Contains(tag, ",omitempty") {
				required = append(required, name)
			}
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func jsonTypeOf(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	default:
		return "object"
	}
}
