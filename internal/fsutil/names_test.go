package fsutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"run1", "run1"},
		{"ride 2024-05-01 12:00", "ride_2024-05-01_12_00"},
		{"../../etc/passwd", "etc_passwd"},
		{"a__b", "a_b"},
		{"über.log", "ber.log"},
		{"...", "unknown"},
		{"", "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.in), "input %q", tt.in)
	}

	assert.Len(t, SanitizeFilename(strings.Repeat("x", 300)), maxNameLen)
}
