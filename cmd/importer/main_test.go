package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValidation(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want bool
	}{
		{"yes", true},
		{"YES", true},
		{"y", true},
		{"true", true},
		{"1", true},
		{"no", false},
		{"n", false},
		{"", false},
		{"false", false},
		{"0", false},
	} {
		got, err := parseValidation(tc.in)
		require.NoError(t, err, "value %q", tc.in)
		assert.Equal(t, tc.want, got, "value %q", tc.in)
	}

	_, err := parseValidation("maybe")
	assert.Error(t, err)
}
