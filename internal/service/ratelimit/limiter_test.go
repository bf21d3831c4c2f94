package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowSpendsBudget(t *testing.T) {
	l := New()

	// capacity 2, effectively no refill within the test
	assert.True(t, l.Allow("yahoo", 2, 0.0001))
	assert.True(t, l.Allow("yahoo", 2, 0.0001))
	assert.False(t, l.Allow("yahoo", 2, 0.0001))
}

func TestAllowKeysAreIndependent(t *testing.T) {
	l := New()

	assert.True(t, l.Allow("yahoo", 1, 0.0001))
	assert.False(t, l.Allow("yahoo", 1, 0.0001))
	assert.True(t, l.Allow("alphavantage", 1, 0.0001))
}
