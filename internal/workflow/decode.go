package workflow

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/buger/jsonparser"

	"github.com/agentic-research/yxflow/api"
)

// DecodeFields decodes a JSON object into an ordered mapping, keeping keys in
// document order. Numbers keep their literal text, booleans become
// True/False and null becomes "".
func DecodeFields(data []byte) (*api.Fields, error) {
	value, typ, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, Errorf(ErrFormat, "invalid JSON: %w", err)
	}
	if typ != jsonparser.Object {
		return nil, Errorf(ErrFormat, "expected a JSON object, got %s", typ)
	}
	return decodeObject(value)
}

func decodeObject(data []byte) (*api.Fields, error) {
	f := api.NewFields()
	err := jsonparser.ObjectEach(data, func(key, value []byte, typ jsonparser.ValueType, _ int) error {
		k, err := jsonparser.ParseString(key)
		if err != nil {
			return err
		}
		v, err := decodeValue(value, typ)
		if err != nil {
			return err
		}
		f.Set(k, v)
		return nil
	})
	if err != nil {
		return nil, Errorf(ErrFormat, "invalid JSON object: %w", err)
	}
	return f, nil
}

func decodeArray(data []byte) ([]any, error) {
	items := []any{}
	var firstErr error
	_, err := jsonparser.ArrayEach(data, func(value []byte, typ jsonparser.ValueType, _ int, err error) {
		if firstErr != nil {
			return
		}
		if err != nil {
			firstErr = err
			return
		}
		v, err := decodeValue(value, typ)
		if err != nil {
			firstErr = err
			return
		}
		items = append(items, v)
	})
	if err == nil {
		err = firstErr
	}
	if err != nil {
		return nil, Errorf(ErrFormat, "invalid JSON array: %w", err)
	}
	return items, nil
}

func decodeValue(value []byte, typ jsonparser.ValueType) (any, error) {
	switch typ {
	case jsonparser.Object:
		return decodeObject(value)
	case jsonparser.Array:
		return decodeArray(value)
	case jsonparser.String:
		return jsonparser.ParseString(value)
	case jsonparser.Number:
		return string(value), nil
	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(value)
		if err != nil {
			return nil, err
		}
		return ScalarText(b), nil
	case jsonparser.Null:
		return "", nil
	}
	return nil, Errorf(ErrFormat, "unsupported JSON value %q", value)
}

// FieldsFromValue converts an already-decoded JSON value (as produced by
// encoding/json) into a mapping. Go maps carry no order, so keys are
// sorted. A JSON string is decoded as JSON text, which keeps its order.
func FieldsFromValue(v any) (*api.Fields, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case *api.Fields:
		return t, nil
	case string:
		return DecodeFields([]byte(t))
	case map[string]any:
		f := api.NewFields()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			val, err := normalizeValue(t[k])
			if err != nil {
				return nil, err
			}
			f.Set(k, val)
		}
		return f, nil
	}
	return nil, Errorf(ErrFormat, "expected a JSON object, got %T", v)
}

func normalizeValue(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		return FieldsFromValue(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			n, err := normalizeValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case json.Number:
		return t.String(), nil
	}
	return ScalarText(v), nil
}

// DecodeToolSpecs decodes a JSON array of tool descriptors:
// {tool_id?, plugin?, position?: {x, y}, configuration?, annotation?}.
func DecodeToolSpecs(data []byte) ([]api.ToolSpec, error) {
	raw, err := objectsOf(data)
	if err != nil {
		return nil, err
	}
	specs := make([]api.ToolSpec, 0, len(raw))
	for i, obj := range raw {
		var spec api.ToolSpec
		if id, ok, err := intField(obj, "tool_id"); err != nil {
			return nil, Errorf(ErrFormat, "tool %d: %w", i+1, err)
		} else if ok {
			spec.ToolID = &id
		}
		spec.Plugin, _ = jsonparser.GetString(obj, "plugin")
		spec.Annotation, _ = jsonparser.GetString(obj, "annotation")
		if pos, typ, _, err := jsonparser.Get(obj, "position"); err == nil && typ == jsonparser.Object {
			spec.Position = &api.Position{X: 100 * float64(i+1), Y: 100}
			if x, err := jsonparser.GetFloat(pos, "x"); err == nil {
				spec.Position.X = x
			}
			if y, err := jsonparser.GetFloat(pos, "y"); err == nil {
				spec.Position.Y = y
			}
		}
		if cfg, typ, _, err := jsonparser.Get(obj, "configuration"); err == nil && typ == jsonparser.Object {
			fields, err := decodeObject(cfg)
			if err != nil {
				return nil, Errorf(ErrFormat, "tool %d configuration: %w", i+1, err)
			}
			spec.Configuration = fields
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// DecodeEdgeSpecs decodes a JSON array of edge descriptors:
// {origin, destination, origin_connection|origin_port?, destination_connection|destination_port?}.
func DecodeEdgeSpecs(data []byte) ([]api.EdgeSpec, error) {
	raw, err := objectsOf(data)
	if err != nil {
		return nil, err
	}
	edges := make([]api.EdgeSpec, 0, len(raw))
	for i, obj := range raw {
		origin, ok, err := intField(obj, "origin")
		if err != nil || !ok {
			return nil, Errorf(ErrFormat, "connection %d: origin tool id required", i+1)
		}
		dest, ok, err := intField(obj, "destination")
		if err != nil || !ok {
			return nil, Errorf(ErrFormat, "connection %d: destination tool id required", i+1)
		}
		edges = append(edges, api.EdgeSpec{
			Origin:          origin,
			Destination:     dest,
			OriginPort:      firstString(obj, "origin_connection", "origin_port"),
			DestinationPort: firstString(obj, "destination_connection", "destination_port"),
		})
	}
	return edges, nil
}

func objectsOf(data []byte) ([][]byte, error) {
	value, typ, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, Errorf(ErrFormat, "invalid JSON: %w", err)
	}
	if typ != jsonparser.Array {
		return nil, Errorf(ErrFormat, "expected a JSON array, got %s", typ)
	}
	var objs [][]byte
	var bad error
	_, err = jsonparser.ArrayEach(value, func(item []byte, typ jsonparser.ValueType, _ int, err error) {
		if bad != nil {
			return
		}
		if err != nil {
			bad = err
			return
		}
		if typ != jsonparser.Object {
			bad = Errorf(ErrFormat, "expected an object in array, got %s", typ)
			return
		}
		objs = append(objs, item)
	})
	if err == nil {
		err = bad
	}
	if err != nil {
		return nil, Errorf(ErrFormat, "invalid JSON array: %w", err)
	}
	return objs, nil
}

// intField reads an integer that may be given as a number or a numeric string.
func intField(obj []byte, key string) (int, bool, error) {
	value, typ, _, err := jsonparser.Get(obj, key)
	if err != nil || typ == jsonparser.Null {
		return 0, false, nil
	}
	switch typ {
	case jsonparser.Number:
		n, err := strconv.ParseFloat(string(value), 64)
		if err != nil || n != float64(int(n)) {
			return 0, false, Errorf(ErrFormat, "%s: %q is not an integer", key, value)
		}
		return int(n), true, nil
	case jsonparser.String:
		n, err := strconv.Atoi(string(value))
		if err != nil {
			return 0, false, Errorf(ErrFormat, "%s: %q is not an integer", key, value)
		}
		return n, true, nil
	}
	return 0, false, Errorf(ErrFormat, "%s: expected an integer", key)
}

func firstString(obj []byte, keys ...string) string {
	for _, k := range keys {
		if s, err := jsonparser.GetString(obj, k); err == nil && s != "" {
			return s
		}
	}
	return ""
}
