package workflow

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/agentic-research/yxflow/api"
)

// ApplyFields writes f under parent: scalars become leaf elements, mappings
// become child elements, lists become repeated siblings, "@key" sets an
// attribute on parent and "_text" sets parent's own text.
func ApplyFields(parent *etree.Element, f *api.Fields) {
	if f == nil {
		return
	}
	for pair := f.Oldest(); pair != nil; pair = pair.Next() {
		key, value := pair.Key, pair.Value
		switch {
		case strings.HasPrefix(key, api.AttrPrefix):
			parent.CreateAttr(strings.TrimPrefix(key, api.AttrPrefix), ScalarText(value))
		case key == api.TextKey:
			parent.SetText(ScalarText(value))
		default:
			applyValue(parent, key, value)
		}
	}
}

func applyValue(parent *etree.Element, tag string, value any) {
	switch v := value.(type) {
	case *api.Fields:
		ApplyFields(parent.CreateElement(tag), v)
	case []any:
		for _, item := range v {
			if sub, ok := item.(*api.Fields); ok {
				ApplyFields(parent.CreateElement(tag), sub)
				continue
			}
			parent.CreateElement(tag).SetText(ScalarText(item))
		}
	default:
		parent.CreateElement(tag).SetText(ScalarText(v))
	}
}

// ReadFields is the inverse of ApplyFields. An element without attributes
// or child elements reads as its text; anything else reads as a mapping.
// Repeated child tags collect into a list.
func ReadFields(el *etree.Element) *api.Fields {
	f := api.NewFields()
	for _, a := range el.Attr {
		f.Set(api.AttrPrefix+a.FullKey(), a.Value)
	}
	if text := el.Text(); strings.TrimSpace(text) != "" {
		f.Set(api.TextKey, text)
	}
	for _, child := range el.ChildElements() {
		tag := child.FullTag()
		value := readValue(child)
		existing, ok := f.Get(tag)
		if !ok {
			f.Set(tag, value)
			continue
		}
		if list, isList := existing.([]any); isList {
			f.Set(tag, append(list, value))
		} else {
			f.Set(tag, []any{existing, value})
		}
	}
	return f
}

func readValue(el *etree.Element) any {
	if len(el.Attr) == 0 && len(el.ChildElements()) == 0 {
		return el.Text()
	}
	return ReadFields(el)
}

// ScalarText renders a scalar the way workflow files spell it: booleans as
// True/False, numbers without exponent, nil as "".
func ScalarText(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		if s {
			return "True"
		}
		return "False"
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	}
	return fmt.Sprint(v)
}
