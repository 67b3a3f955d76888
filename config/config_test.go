package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvInt(t *testing.T) {
	const key = "NATURALPUFF_TEST_INT"

	assert.Equal(t, 120, getEnvInt(key, 120), "unset falls back to default")

	t.Setenv(key, "300")
	assert.Equal(t, 300, getEnvInt(key, 120))

	// Malformed or non-positive values must never reach a ticker.
	t.Setenv(key, "junk")
	assert.Equal(t, 120, getEnvInt(key, 120))

	t.Setenv(key, "0")
	assert.Equal(t, 120, getEnvInt(key, 120))

	t.Setenv(key, "-5")
	assert.Equal(t, 120, getEnvInt(key, 120))
}
