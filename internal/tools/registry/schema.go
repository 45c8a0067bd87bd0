package registry

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// SchemaFor reflects v (a struct or pointer to one) into an inline JSON
// schema object suitable for function-calling APIs.
func SchemaFor(v any) map[string]interface{} {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	b, err := json.Marshal(r.Reflect(v))
	if err != nil {
		panic("registry: marshal schema: " + err.Error())
	}

	var schema map[string]interface{}
	if err := json.Unmarshal(b, &schema); err != nil {
		panic("registry: decode schema: " + err.Error())
	}
	delete(schema, "$schema")
	delete(schema, "$id")
	return schema
}

// RequireFields returns a copy of schema with fields appended to "required"
func RequireFields(schema map[string]interface{}, fields ...string) map[string]interface{} {
	out := make(map[string]interface{}, len(schema))
	for k, v := range schema {
		out[k] = v
	}

	var required []interface{}
	if existing, ok := schema["required"].([]interface{}); ok {
		required = append(required, existing...)
	}
	for _, f := range fields {
		if !containsString(required, f) {
			required = append(required, f)
		}
	}
	out["required"] = required
	return out
}

// OmitFields returns a copy of schema without the given properties
func OmitFields(schema map[string]interface{}, fields ...string) map[string]interface{} {
	out := make(map[string]interface{}, len(schema))
	for k, v := range schema {
		out[k] = v
	}

	if props, ok := schema["properties"].(map[string]interface{}); ok {
		kept := make(map[string]interface{}, len(props))
		for name, prop := range props {
			kept[name] = prop
		}
		for _, f := range fields {
			delete(kept, f)
		}
		out["properties"] = kept
	}

	if existing, ok := schema["required"].([]interface{}); ok {
		var required []interface{}
		for _, r := range existing {
			if name, ok := r.(string); !ok || !containsString(toInterfaces(fields), name) {
				required = append(required, r)
			}
		}
		out["required"] = required
	}
	return out
}

func toInterfaces(list []string) []interface{} {
	out := make([]interface{}, len(list))
	for i, s := range list {
		out[i] = s
	}
	return out
}

func containsString(list []interface{}, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
