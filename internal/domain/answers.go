package domain

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Encoded answer formats. Answers travel as strings keyed by question ID;
// structured types get an explicit JSON encoding so both sides of the wire
// agree on the shape.
//
//	TRUE_FALSE  -> JSON array of booleans aligned to the question rows
//	MATCHING    -> JSON object mapping pair index (decimal) to chosen right value
//	others      -> plain string (comma-joined for COMPLEX_MULTIPLE_CHOICE)

// EncodeTrueFalse encodes per-row boolean answers.
func EncodeTrueFalse(values []bool) string {
	data, _ := json.Marshal(values)
	return string(data)
}

// DecodeTrueFalse decodes an encoded TRUE_FALSE answer.
func DecodeTrueFalse(encoded string) ([]bool, error) {
	var values []bool
	if err := json.Unmarshal([]byte(encoded), &values); err != nil {
		return nil, err
	}
	return values, nil
}

// EncodeMatching encodes the chosen right value per pair index.
func EncodeMatching(choices map[int]string) string {
	keyed := make(map[string]string, len(choices))
	for idx, right := range choices {
		keyed[strconv.Itoa(idx)] = right
	}
	data, _ := json.Marshal(keyed)
	return string(data)
}

// DecodeMatching decodes an encoded MATCHING answer.
func DecodeMatching(encoded string) (map[string]string, error) {
	var choices map[string]string
	if err := json.Unmarshal([]byte(encoded), &choices); err != nil {
		return nil, err
	}
	return choices, nil
}

// CanonicalChoices normalizes a comma-joined answer list so comparison is
// order-independent: split, trim, sort, rejoin.
func CanonicalChoices(raw string) string {
	parts := strings.Split(raw, ",")
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		tokens = append(tokens, strings.TrimSpace(part))
	}
	sort.Strings(tokens)
	return strings.Join(tokens, ",")
}
