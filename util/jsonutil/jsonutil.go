package jsonutil

import (
	"bytes"
	"errors"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var jsonConfigValidationOn = jsoniter.ConfigCompatibleWithStandardLibrary

var jsonConfigValidationOff = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: false,
}.Froze()

// jsonConfigCanonical decodes numbers as float64, so 1, 1.0 and 1e0 encode alike, and encodes
// objects with sorted keys.
var jsonConfigCanonical = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
}.Froze()

var emptyObject = []byte("{}")

// Unmarshal unmarshals a byte slice into the specified data structure without performing
// any validation on embedded raw messages.
func Unmarshal(data []byte, v interface{}) error {
	if err := jsonConfigValidationOff.Unmarshal(data, v); err != nil {
		return tryExtractErrorMessage(err)
	}
	return nil
}

// UnmarshalValid validates and unmarshals a byte slice into the specified data structure,
// returning an error if validation fails.
func UnmarshalValid(data []byte, v interface{}) error {
	if err := jsonConfigValidationOn.Unmarshal(data, v); err != nil {
		return tryExtractErrorMessage(err)
	}
	return nil
}

// Marshal marshals a data structure into a byte slice without performing any validation
// on the data.
func Marshal(v interface{}) ([]byte, error) {
	return jsonConfigValidationOff.Marshal(v)
}

// Canonicalize re-encodes a JSON document so that structurally identical documents produce
// identical bytes: object keys are sorted, insignificant whitespace is dropped and numbers are
// written in their shortest form. Numbers are doubles, as in the browser, so integers beyond
// 2^53 lose precision. An empty input or a JSON null canonicalizes to an empty object.
func Canonicalize(data []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return emptyObject, nil
	}

	var value interface{}
	if err := jsonConfigCanonical.Unmarshal(trimmed, &value); err != nil {
		return nil, tryExtractErrorMessage(err)
	}
	return jsonConfigCanonical.Marshal(value)
}

// tryExtractErrorMessage attempts to extract a sane error message from the json-iter package. The errors
// returned from that library are not types and include a lot of extra information we don't want to respond with.
// This is hacky, but it's the only downside to the json-iter library.
func tryExtractErrorMessage(err error) error {
	msg := err.Error()

	msgEndIndex := strings.LastIndex(msg, ", error found in #")
	if msgEndIndex == -1 {
		return err
	}

	msgStartIndex := strings.Index(msg, ": ")
	if msgStartIndex == -1 || msgStartIndex >= msgEndIndex {
		return errors.New(msg[:msgEndIndex])
	}

	operationStack := strings.Split(msg[:msgStartIndex], ".")
	operation := operationStack[len(operationStack)-1]
	return errors.New("cannot unmarshal " + operation + ": " + msg[msgStartIndex+2:msgEndIndex])
}
