package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// coerceArguments decodes raw model arguments and brings them in line with
// schema: required fields must be present, values are converted to their
// declared type where that is lossless, and defaults fill missing optionals.
// Properties the schema doesn't declare pass through untouched.
func coerceArguments(toolName string, schema jsonschema.Definition, defaults map[string]any, raw string) (map[string]any, error) {
	args := map[string]any{}

	trimmed := strings.TrimSpace(raw)
	if trimmed != "" && trimmed != "null" {
		decoder := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
		decoder.UseNumber()
		if err := decoder.Decode(&args); err != nil {
			return nil, &SchemaError{Tool: toolName, Reason: "arguments must be a JSON object"}
		}
		if args == nil {
			args = map[string]any{}
		}
	}

	for key, value := range defaults {
		if current, ok := args[key]; !ok || current == nil {
			args[key] = value
		}
	}

	for _, field := range schema.Required {
		if value, ok := args[field]; !ok || value == nil {
			return nil, &SchemaError{Tool: toolName, Field: field, Reason: "is required"}
		}
	}

	for key, value := range args {
		prop, declared := schema.Properties[key]
		if !declared || value == nil {
			continue
		}

		coerced, err := coerceValue(prop, value)
		if err != nil {
			return nil, &SchemaError{Tool: toolName, Field: key, Reason: err.Error()}
		}
		args[key] = coerced
	}

	return args, nil
}

func coerceValue(def jsonschema.Definition, value any) (any, error) {
	var (
		result any
		err    error
	)

	switch def.Type {
	case jsonschema.String:
		result, err = toString(value)
	case jsonschema.Number:
		result, err = toNumber(value)
	case jsonschema.Integer:
		result, err = toInteger(value)
	case jsonschema.Boolean:
		result, err = toBoolean(value)
	case jsonschema.Array:
		result, err = toArray(def, value)
	case jsonschema.Object:
		result, err = toObject(def, value)
	default:
		result = value
	}
	if err != nil {
		return nil, err
	}

	if len(def.Enum) > 0 {
		text := fmt.Sprint(result)
		if !slices.Contains(def.Enum, text) {
			return nil, fmt.Errorf("must be one of %s, got %q", strings.Join(def.Enum, ", "), text)
		}
	}

	return result, nil
}

func toString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	}
	return "", fmt.Errorf("expected string but got %s", describe(value))
}

func toNumber(value any) (float64, error) {
	var f float64
	switch v := value.(type) {
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("expected number but got %s", v)
		}
		f = parsed
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("expected number but got %q", v)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("expected number but got %s", describe(value))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("expected a finite number but got %v", value)
	}
	return f, nil
}

func toInteger(value any) (int64, error) {
	f, err := toNumber(value)
	if err != nil {
		return 0, fmt.Errorf("expected integer but got %s", describe(value))
	}
	if math.Trunc(f) != f {
		return 0, fmt.Errorf("expected integer but got %v", f)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("integer %v is out of range", f)
	}
	return int64(f), nil
}

func toBoolean(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("expected boolean but got %q", v)
		}
		return b, nil
	}
	return false, fmt.Errorf("expected boolean but got %s", describe(value))
}

func toArray(def jsonschema.Definition, value any) ([]any, error) {
	items, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("expected array but got %s", describe(value))
	}
	if def.Items == nil {
		return items, nil
	}

	out := make([]any, len(items))
	for i, item := range items {
		coerced, err := coerceValue(*def.Items, item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out[i] = coerced
	}
	return out, nil
}

func toObject(def jsonschema.Definition, value any) (map[string]any, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected object but got %s", describe(value))
	}

	for _, field := range def.Required {
		if _, ok := obj[field]; !ok {
			return nil, fmt.Errorf("missing nested field %q", field)
		}
	}
	for key, nested := range obj {
		prop, declared := def.Properties[key]
		if !declared || nested == nil {
			continue
		}
		coerced, err := coerceValue(prop, nested)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		obj[key] = coerced
	}
	return obj, nil
}

func describe(value any) string {
	switch value.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case json.Number, float64, int, int64:
		return "number"
	case bool:
		return "boolean"
	case string:
		return "string"
	}
	return fmt.Sprintf("%T", value)
}
