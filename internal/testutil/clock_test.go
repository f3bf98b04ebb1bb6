package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStepClock(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewStepClock(base, time.Second)

	assert.Equal(t, base, c.Now())
	assert.Equal(t, base.Add(time.Second), c.Now())

	c.Reset()
	assert.Equal(t, base, c.Now())
}
