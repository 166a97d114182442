package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// envelope is the wrapper the API may put around any payload.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// DecodeList accepts either a bare JSON array or an object whose "data" field is an
// array. Anything else (no "data", a non-array "data", null, an empty body) decodes to
// an empty list instead of an error. Elements that do not fit T are skipped.
func DecodeList[T any](body []byte) ([]T, error) {
	raw := bytes.TrimSpace(body)
	if len(raw) == 0 {
		return []T{}, nil
	}

	switch raw[0] {
	case '[':
		return decodeArray[T](raw)
	case '{':
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.Debugf("upstream: response is not a JSON object: %v", err)
			return []T{}, nil
		}
		data := bytes.TrimSpace(env.Data)
		if len(data) == 0 || data[0] != '[' {
			log.Debugf("upstream: response has no list payload, using empty list")
			return []T{}, nil
		}
		return decodeArray[T](data)
	default:
		log.Debugf("upstream: unexpected response payload, using empty list")
		return []T{}, nil
	}
}

// decodeArray decodes each element on its own. An element that does not fit T is
// logged and skipped so one malformed record never hides the rest of the listing.
func decodeArray[T any](raw []byte) ([]T, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("failed to decode list payload: %w", err)
	}
	items := make([]T, 0, len(elems))
	for i, elem := range elems {
		var item T
		if err := json.Unmarshal(elem, &item); err != nil {
			log.Warnf("upstream: skipping list element %d: %v", i, err)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// DecodeOne accepts a bare object or an object whose "data" field is an object.
// A "data" field holding anything else is ignored and the outer object is used.
func DecodeOne[T any](body []byte) (T, error) {
	var out T
	raw := bytes.TrimSpace(body)
	if len(raw) == 0 || raw[0] != '{' {
		return out, fmt.Errorf("expected a JSON object")
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil {
		data := bytes.TrimSpace(env.Data)
		if len(data) > 0 && data[0] == '{' {
			raw = data
		}
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("failed to decode object payload: %w", err)
	}
	return out, nil
}

// DecodeMany accepts a list or a single object, either of them optionally wrapped in
// "data". Upload responses come back in every one of these shapes.
func DecodeMany[T any](body []byte) ([]T, error) {
	raw := bytes.TrimSpace(body)
	if len(raw) == 0 {
		return []T{}, nil
	}
	if raw[0] == '{' {
		var env envelope
		if err := json.Unmarshal(raw, &env); err == nil {
			data := bytes.TrimSpace(env.Data)
			if len(data) > 0 && data[0] == '[' {
				return decodeArray[T](data)
			}
		}
		one, err := DecodeOne[T](raw)
		if err != nil {
			return nil, err
		}
		return []T{one}, nil
	}
	return DecodeList[T](raw)
}

// DecodeID reads an identifier the API sends either as a JSON number or a string.
// null decodes to "".
func DecodeID(b []byte) (string, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return "", nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return "", fmt.Errorf("id must be a number or a string: %w", err)
	}
	return n.String(), nil
}
