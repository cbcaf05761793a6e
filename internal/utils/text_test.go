package utils

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitizePhoneNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+2348031234567", "+2348031234567"},
		{"2348031234567", "+2348031234567"},
		{"08031234567", "+2348031234567"},
		{"8031234567", "+2348031234567"},
		{"0803 123 4567", "+2348031234567"},
		{"0803-123-4567", "+2348031234567"},
		{"(0803) 123 4567", "+2348031234567"},
		{"12345", ""},
		{"", ""},
		{"not a number", ""},
		{"080312345678901", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizePhoneNumber(tt.in), tt.in)
	}
}

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "hello world", SanitizeText("  hello world  "))
	assert.Equal(t, "helloworld", SanitizeText("hello\tworld"))
	assert.Equal(t, "line one\nline two", SanitizeText("line one\nline two"))
	assert.Equal(t, "clean", SanitizeText("cl\x00ea\x1bn"))
	assert.Equal(t, "", SanitizeText("\x00\x01\x02"))
}

func TestTruncateForPreview(t *testing.T) {
	assert.Equal(t, "short", TruncateForPreview("short", 10))
	assert.Equal(t, "exactly ten", TruncateForPreview("exactly ten", 11))
	assert.Equal(t, "a long des...", TruncateForPreview("a long description here", 10))

	// Cuts land on rune boundaries, not byte offsets.
	assert.Equal(t, "Ọha...", TruncateForPreview("Ọhafịa road is flooded", 3))
	assert.True(t, utf8.ValidString(TruncateForPreview("ụmụ ahịa n'Ọgbọr hill", 7)))
}
