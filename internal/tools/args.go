package tools

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/buger/jsonparser"

	"github.com/agentic-research/yxflow/internal/workflow"
)

// Args are the arguments of one call, keyed by parameter name. Values are
// what a JSON decoder produces (string, float64, json.Number, bool, []any,
// map[string]any); object and array parameters may also arrive as JSON text.
type Args map[string]any

// ParseArgs reads a JSON object of arguments. Nested objects and arrays are
// kept as JSON text so their key order reaches the tool unchanged. Empty
// input yields no arguments.
func ParseArgs(data []byte) (Args, error) {
	args := Args{}
	if len(bytes.TrimSpace(data)) == 0 {
		return args, nil
	}
	_, typ, _, err := jsonparser.Get(data)
	if err != nil || typ != jsonparser.Object {
		return nil, workflow.Errorf(workflow.ErrFormat, "arguments must be a JSON object")
	}
	err = jsonparser.ObjectEach(data, func(key, value []byte, typ jsonparser.ValueType, _ int) error {
		k, err := jsonparser.ParseString(key)
		if err != nil {
			return err
		}
		switch typ {
		case jsonparser.String:
			s, err := jsonparser.ParseString(value)
			if err != nil {
				return err
			}
			args[k] = s
		case jsonparser.Number:
			args[k] = json.Number(string(value))
		case jsonparser.Boolean:
			b, err := jsonparser.ParseBoolean(value)
			if err != nil {
				return err
			}
			args[k] = b
		case jsonparser.Null:
			args[k] = nil
		default:
			args[k] = string(value)
		}
		return nil
	})
	if err != nil {
		return nil, workflow.Errorf(workflow.ErrFormat, "invalid arguments: %w", err)
	}
	return args, nil
}

func (a Args) value(name string) (any, bool) {
	v, ok := a[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func invalid(name, want string) error {
	return workflow.Errorf(workflow.ErrInvalidArgument, "argument %q must be %s", name, want)
}

// String returns a string argument, or "" when absent.
func (a Args) String(name string) (string, error) {
	v, ok := a.value(name)
	if !ok {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", invalid(name, "a string")
	}
	return s, nil
}

// OptionalString is String that tells an empty string apart from an absent
// argument: it returns nil only when the argument is missing or null.
func (a Args) OptionalString(name string) (*string, error) {
	if _, ok := a.value(name); !ok {
		return nil, nil
	}
	s, err := a.String(name)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// RequiredString is String for a parameter that must be present and non-empty.
func (a Args) RequiredString(name string) (string, error) {
	s, err := a.String(name)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", workflow.Errorf(workflow.ErrInvalidArgument, "missing required argument %q", name)
	}
	return s, nil
}

// Int returns an integer argument, or nil when absent. Integral floats and
// numeric strings are accepted.
func (a Args) Int(name string) (*int, error) {
	v, ok := a.value(name)
	if !ok {
		return nil, nil
	}
	n, ok := toInt(v)
	if !ok {
		return nil, invalid(name, "an integer")
	}
	return &n, nil
}

// RequiredInt is Int for a parameter that must be present.
func (a Args) RequiredInt(name string) (int, error) {
	n, err := a.Int(name)
	if err != nil {
		return 0, err
	}
	if n == nil {
		return 0, workflow.Errorf(workflow.ErrInvalidArgument, "missing required argument %q", name)
	}
	return *n, nil
}

// Bool returns a boolean argument, or def when absent.
func (a Args) Bool(name string, def bool) (bool, error) {
	v, ok := a.value(name)
	if !ok {
		return def, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(b)); err == nil {
			return parsed, nil
		}
	}
	return false, invalid(name, "a boolean")
}

// Ints returns an integer list argument, or nil when absent. The list may be
// given as an array or as JSON text.
func (a Args) Ints(name string) ([]int, error) {
	v, ok := a.value(name)
	if !ok {
		return nil, nil
	}
	switch list := v.(type) {
	case []int:
		return list, nil
	case []any:
		out := make([]int, 0, len(list))
		for _, item := range list {
			n, ok := toInt(item)
			if !ok {
				return nil, invalid(name, "a list of integers")
			}
			out = append(out, n)
		}
		return out, nil
	case string:
		var out []int
		var bad bool
		_, err := jsonparser.ArrayEach([]byte(list), func(value []byte, typ jsonparser.ValueType, _ int, _ error) {
			n, perr := strconv.Atoi(string(value))
			if typ != jsonparser.Number || perr != nil {
				bad = true
				return
			}
			out = append(out, n)
		})
		if err != nil || bad {
			return nil, invalid(name, "a list of integers")
		}
		return out, nil
	}
	return nil, invalid(name, "a list of integers")
}

// JSON returns an object or array argument as JSON text, or nil when absent.
// Text is passed through untouched so key order survives; structured values
// are re-encoded, which sorts object keys.
func (a Args) JSON(name string) ([]byte, error) {
	v, ok := a.value(name)
	if !ok {
		return nil, nil
	}
	if s, ok := v.(string); ok {
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		return []byte(s), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, invalid(name, "JSON")
	}
	return data, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	}
	return 0, false
}
