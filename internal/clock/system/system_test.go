package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClockNow(t *testing.T) {
	t.Parallel()

	clk := New()
	before := time.Now().Add(-time.Second)
	first := clk.Now()
	second := clk.Now()

	assert.Equal(t, time.UTC, first.Location())
	assert.True(t, first.After(before))
	assert.False(t, second.Before(first), "clock must not go backwards")
}
