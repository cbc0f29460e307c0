package response

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSlug(t *testing.T) {
	assert.Equal(t, "break", NormalizeSlug(" Break "))
	assert.Equal(t, "break", NormalizeSlug("BREAK"))
	assert.Equal(t, "almuerzo", NormalizeSlug("almuerzo"))
	assert.Equal(t, "", NormalizeSlug("   "))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0 min", FormatDuration(0))
	assert.Equal(t, "0 min", FormatDuration(-5*time.Minute))
	assert.Equal(t, "5 min", FormatDuration(5*time.Minute))
	assert.Equal(t, "1 h 15 min", FormatDuration(75*time.Minute))
	assert.Equal(t, "2 h 0 min", FormatDuration(2*time.Hour))
	assert.Equal(t, "5 min", FormatDuration(4*time.Minute+40*time.Second))
}
