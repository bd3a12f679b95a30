package calcflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// InputPolicy decides what happens to request fields that are present but not integers
type InputPolicy string

const (
	// InputLenient silently treats unusable values as 0, the behavior existing callers rely on
	InputLenient InputPolicy = "LENIENT"
	// InputStrict rejects unusable values with a validation error
	InputStrict InputPolicy = "STRICT"
)

// ParseInputPolicy parses a policy name, case-insensitively. Empty means lenient.
func ParseInputPolicy(s string) (InputPolicy, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(InputLenient):
		return InputLenient, nil
	case string(InputStrict):
		return InputStrict, nil
	default:
		return "", fmt.Errorf("unknown input policy %q", s)
	}
}

// Recognized request fields
const (
	FieldA = "a"
	FieldB = "b"
)

// DecodeRequest decodes a JSON object payload into an InvocationRequest.
//
// An empty payload or JSON null decodes to the zero request. Missing fields
// default to 0 under every policy. Values count as integers when they are JSON
// integers, JSON numbers without a fractional part, or strings holding a base-10
// integer, all within int64 range. Anything else is 0 under InputLenient and a
// VALIDATION_ERROR under InputStrict. Unknown fields are ignored.
func DecodeRequest(payload []byte, policy InputPolicy) (InvocationRequest, error) {
	fields, err := decodeObject(payload)
	if err != nil {
		return InvocationRequest{}, err
	}

	var req InvocationRequest
	var invalid []string

	if raw, ok := fields[FieldA]; ok {
		v, ok := coerceInt(raw)
		if !ok {
			invalid = append(invalid, FieldA)
		}
		req.A = v
	}
	if raw, ok := fields[FieldB]; ok {
		v, ok := coerceInt(raw)
		if !ok {
			invalid = append(invalid, FieldB)
		}
		req.B = v
	}

	if len(invalid) > 0 && policy == InputStrict {
		return InvocationRequest{}, NewInvocationError(
			ErrCodeValidation,
			fmt.Sprintf("fields are not integers: %s", strings.Join(invalid, ", ")),
		).WithDetails(map[string]interface{}{"fields": invalid})
	}

	return req, nil
}

// InvalidFields reports which recognized fields of payload would be defaulted
// to 0 because their values are not integers. Missing fields are not reported.
func InvalidFields(payload []byte) []string {
	fields, err := decodeObject(payload)
	if err != nil {
		return nil
	}

	var invalid []string
	for _, name := range []string{FieldA, FieldB} {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		if _, ok := coerceInt(raw); !ok {
			invalid = append(invalid, name)
		}
	}
	return invalid
}

func decodeObject(payload []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return map[string]json.RawMessage{}, nil
	}

	if trimmed[0] != '{' {
		return nil, NewInvocationError(ErrCodeValidation, "payload must be a JSON object")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, WrapInvocationError(ErrCodeValidation, fmt.Errorf("failed to decode payload: %w", err))
	}
	return fields, nil
}

// coerceInt converts a raw JSON value to int64, reporting whether it was usable
func coerceInt(raw json.RawMessage) (int64, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return 0, false
	}

	switch val := v.(type) {
	case json.Number:
		return numberToInt(val.String())
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func numberToInt(s string) (int64, bool) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	if f != math.Trunc(f) {
		return 0, false
	}
	// float64 cannot represent MaxInt64 exactly; 2^63 is already out of range
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}
