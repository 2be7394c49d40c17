package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "single channel",
			input:    "goldchannel",
			expected: []string{"goldchannel"},
		},
		{
			name:     "two channels",
			input:    "goldchannel, fxsignals",
			expected: []string{"goldchannel", "fxsignals"},
		},
		{
			name:     "varied spacing",
			input:    "goldchannel,  fxsignals , cryptosignals",
			expected: []string{"goldchannel", "fxsignals", "cryptosignals"},
		},
		{
			name:     "trailing comma",
			input:    "goldchannel,",
			expected: []string{"goldchannel"},
		},
		{
			name:     "only spaces",
			input:    "   ",
			expected: nil,
		},
		{
			name:     "comma only",
			input:    ",",
			expected: nil,
		},
		{
			name:     "multiple commas",
			input:    ",,goldchannel,,fxsignals,,",
			expected: []string{"goldchannel", "fxsignals"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseCSV(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseCSV_PreservesInput(t *testing.T) {
	input := "goldchannel, fxsignals"
	originalInput := input

	_ = ParseCSV(input)

	assert.Equal(t, originalInput, input, "input should not be modified")
}
