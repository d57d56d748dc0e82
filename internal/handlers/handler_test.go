package handlers

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeName(t *testing.T) {
	t.Run("trims whitespace", func(t *testing.T) {
		assert.Equal(t, "sales-agent", sanitizeName("  sales-agent\n"))
	})

	t.Run("strips control characters", func(t *testing.T) {
		assert.Equal(t, "salesagent", sanitizeName("sales\x00agent"))
	})

	t.Run("caps the byte length", func(t *testing.T) {
		long := strings.Repeat("a", 300)
		got := sanitizeName(long)
		assert.Len(t, got, maxNameBytes)
	})

	t.Run("truncates on a rune boundary", func(t *testing.T) {
		// 3 bytes per rune, so the cap falls mid-rune at byte 100.
		name := strings.Repeat("日", 50)
		got := sanitizeName(name)
		assert.True(t, utf8.ValidString(got), "truncation split a rune: %q", got)
		assert.LessOrEqual(t, len(got), maxNameBytes)
		assert.Equal(t, strings.Repeat("日", 33), got)
	})
}
