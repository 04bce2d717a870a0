package jsonutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		description string
		input       []byte
		expected    string
	}{
		{
			description: "nil input",
			input:       nil,
			expected:    `{}`,
		},
		{
			description: "null input",
			input:       []byte(` null `),
			expected:    `{}`,
		},
		{
			description: "keys are sorted",
			input:       []byte(`{"placementId": 13144370, "member": "958", "allowSmallerSizes": true}`),
			expected:    `{"allowSmallerSizes":true,"member":"958","placementId":13144370}`,
		},
		{
			description: "nested keys are sorted",
			input:       []byte(`{"z": {"b": "x", "a": [3, 2, 1]}, "a": true}`),
			expected:    `{"a":true,"z":{"a":[3,2,1],"b":"x"}}`,
		},
		{
			description: "numbers are written in their shortest form",
			input:       []byte(`{"a": 1.0, "b": 1.50, "c": 1e2, "d": -0.25, "e": 13144370}`),
			expected:    `{"a":1,"b":1.5,"c":100,"d":-0.25,"e":13144370}`,
		},
		{
			description: "html is not escaped",
			input:       []byte(`{"url":"https://example.com/?a=1&b=<2>"}`),
			expected:    `{"url":"https://example.com/?a=1&b=<2>"}`,
		},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			result, err := Canonicalize(test.input)
			require.NoError(t, err)
			assert.Equal(t, test.expected, string(result))
		})
	}
}

func TestCanonicalizeIgnoresKeyOrder(t *testing.T) {
	first, err := Canonicalize([]byte(`{"a":1,"b":{"c":"d","e":"f"}}`))
	require.NoError(t, err)

	second, err := Canonicalize([]byte(`{"b":{"e":"f","c":"d"},"a":1}`))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCanonicalizeMalformed(t *testing.T) {
	_, err := Canonicalize([]byte(`{"a":`))
	assert.Error(t, err)
}

func TestUnmarshalValid(t *testing.T) {
	var target struct {
		Domain string `json:"domain"`
	}

	err := UnmarshalValid([]byte(`{"domain":"acme"}`), &target)
	require.NoError(t, err)
	assert.Equal(t, "acme", target.Domain)

	err = UnmarshalValid([]byte(`{"domain":1}`), &target)
	assert.Error(t, err)
}

func TestTryExtractErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "level_1",
			input:    "readObjectStart: expect { or n, but found m, error found in #1 byte of ...|malformed|..., bigger context ...|malformed|..",
			expected: "cannot unmarshal readObjectStart: expect { or n, but found m",
		},
		{
			name:     "level_2",
			input:    "openrtb_ext.ExtRequestPrebid.Targeting: readObjectStart: expect { or n, but found m, error found in #10 byte of ...|malformed|..., bigger context ...|malformed|..",
			expected: "cannot unmarshal Targeting: readObjectStart: expect { or n, but found m",
		},
		{
			name:     "no_suffix",
			input:    "Skip: do not know how to skip: 109",
			expected: "Skip: do not know how to skip: 109",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := tryExtractErrorMessage(errors.New(test.input))
			assert.Equal(t, test.expected, result.Error())
		})
	}
}
