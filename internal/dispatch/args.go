package dispatch

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrMalformedArgs is returned for an argument payload that is not valid JSON.
	ErrMalformedArgs = errors.New("invalid JSON string in args")
	// ErrArgsNotArray is returned for valid JSON that is not an array.
	ErrArgsNotArray = errors.New("'args' must be an array")
	// ErrMalformedTransient is returned for transient data that is not a JSON object.
	ErrMalformedTransient = errors.New("invalid JSON in transient data")
)

// ParseArgsString parses a query-string argument payload such as
// `["CAR1"]`. Only a payload that is not valid JSON is retried with single
// quotes read as double quotes, so `['CAR1']` is accepted too.
func ParseArgsString(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{}, nil
	}
	if json.Valid([]byte(s)) {
		return parseArray(json.RawMessage(s))
	}
	normalized := strings.Replace(s, "'", "\"", -1)
	if !json.Valid([]byte(normalized)) {
		return nil, errors.Wrapf(ErrMalformedArgs, "%s", s)
	}
	return parseArray(json.RawMessage(normalized))
}

// ParseArgs parses a JSON body argument payload. The payload is either an
// array or a JSON string holding an array.
func ParseArgs(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []string{}, nil
	}
	if !json.Valid(raw) {
		return nil, errors.Wrapf(ErrMalformedArgs, "%s", raw)
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, errors.Wrapf(ErrMalformedArgs, "%s", raw)
		}
		return ParseArgsString(s)
	}
	return parseArray(raw)
}

// parseArray expects valid JSON. Non-string elements are forwarded as
// their JSON text.
func parseArray(raw json.RawMessage) ([]string, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, errors.Wrapf(ErrArgsNotArray, "got %s", raw)
	}
	args := make([]string, 0, len(elems))
	for _, elem := range elems {
		args = append(args, textOf(elem))
	}
	return args, nil
}

// ParseTransient turns a JSON object into a transient map. String values
// are delivered as their text, everything else as its JSON encoding.
func ParseTransient(raw json.RawMessage) (map[string][]byte, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, errors.Wrapf(ErrMalformedTransient, "%s", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	transient := make(map[string][]byte, len(fields))
	for key, value := range fields {
		transient[key] = []byte(textOf(value))
	}
	return transient, nil
}

func textOf(elem json.RawMessage) string {
	var s string
	if err := json.Unmarshal(elem, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(elem))
}
