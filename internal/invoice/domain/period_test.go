package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidPeriod(t *testing.T) {
	valid := []string{"012025", "122024", "062023"}
	for _, p := range valid {
		assert.True(t, ValidPeriod(p), p)
	}

	invalid := []string{"", "2025", "1320251", "132025", "002025", "ab2025", "01-025"}
	for _, p := range invalid {
		assert.False(t, ValidPeriod(p), p)
	}
}
