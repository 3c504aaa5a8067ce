package coercion

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

// DecodeJSON decodes one JSON value into target. Values the JSON decoder
// rejects (quoted numbers, non-RFC 3339 dates, bare words) go through Coerce.
func (c *Coercer) DecodeJSON(target reflect.Type, data []byte) (any, error) {
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return c.Coerce(target, string(data))
	}
	if bytes.Equal(data, []byte("null")) {
		if nullable(target) {
			return reflect.Zero(target).Interface(), nil
		}
		return nil, errors.Wrapf(ErrCoercion, "null to %s", target)
	}
	ptr := reflect.New(target)
	if err := json.Unmarshal(data, ptr.Interface()); err == nil {
		return ptr.Elem().Interface(), nil
	}
	// Numbers read into text keep their literal digits.
	dec := json.NewDecoder(bytes.NewReader(data))
	if target.Kind() == reflect.String {
		dec.UseNumber()
	}
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, errors.Wrapf(ErrCoercion, "%s to %s: %v", data, target, err)
	}
	if n, ok := generic.(json.Number); ok {
		generic = n.String()
	}
	return c.Coerce(target, generic)
}

// DecodeCollection reads text as a JSON array of elem. A single JSON value
// or a bare word is read as a one-element collection.
func (c *Coercer) DecodeCollection(elem reflect.Type, text string) (reflect.Value, error) {
	trimmed := strings.TrimSpace(text)
	var items []json.RawMessage
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
			return reflect.Value{}, errors.Wrapf(ErrCoercion, "collection of %s: %v", elem, err)
		}
	} else if trimmed != "" {
		items = []json.RawMessage{json.RawMessage(trimmed)}
	}

	out := reflect.MakeSlice(reflect.SliceOf(elem), 0, len(items))
	for i, item := range items {
		v, err := c.DecodeJSON(elem, item)
		if err != nil {
			return reflect.Value{}, errors.Wrapf(err, "item %d", i)
		}
		out = reflect.Append(out, valueOf(elem, v))
	}
	return out, nil
}

func (c *Coercer) coerceItems(elem reflect.Type, items []any) (reflect.Value, error) {
	out := reflect.MakeSlice(reflect.SliceOf(elem), 0, len(items))
	for i, item := range items {
		v, err := c.Coerce(elem, item)
		if err != nil {
			return reflect.Value{}, errors.Wrapf(err, "item %d", i)
		}
		out = reflect.Append(out, valueOf(elem, v))
	}
	return out, nil
}

// valueOf keeps nil items of nullable element types typed.
func valueOf(t reflect.Type, v any) reflect.Value {
	if v == nil {
		return reflect.Zero(t)
	}
	return reflect.ValueOf(v)
}
