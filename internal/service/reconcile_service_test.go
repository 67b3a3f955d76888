package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAttemptExpired(t *testing.T) {
	now := time.Now()

	assert.False(t, attemptExpired(now, now))
	assert.False(t, attemptExpired(now.Add(-time.Hour), now))
	assert.False(t, attemptExpired(now.Add(-attemptExpiry+time.Minute), now))

	assert.True(t, attemptExpired(now.Add(-attemptExpiry), now))
	assert.True(t, attemptExpired(now.Add(-48*time.Hour), now))
}
