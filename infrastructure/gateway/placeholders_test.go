package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandString(t *testing.T) {
	t.Setenv("GATEWAY_TEST_TOKEN", "s3cret")

	assert.Equal(t, "s3cret", ExpandString("ENV:GATEWAY_TEST_TOKEN"))
	assert.Equal(t, "Bearer s3cret", ExpandString("Bearer ${GATEWAY_TEST_TOKEN}"))
	assert.Equal(t, "Bearer s3cret", ExpandString("Bearer ${input:GATEWAY_TEST_TOKEN}"))
	assert.Equal(t, "plain value", ExpandString("plain value"))
}

func TestExpandStringLeavesUnsetPlaceholders(t *testing.T) {
	assert.Equal(t, "ENV:GATEWAY_TEST_UNSET", ExpandString("ENV:GATEWAY_TEST_UNSET"))
	assert.Equal(t, "Bearer ${GATEWAY_TEST_UNSET}", ExpandString("Bearer ${GATEWAY_TEST_UNSET}"))
}

func TestExpandMap(t *testing.T) {
	t.Setenv("GATEWAY_TEST_KEY", "abc123")

	out := ExpandMap(map[string]string{
		"Authorization": "Bearer ${GATEWAY_TEST_KEY}",
		"Accept":        "application/json",
	})
	assert.Equal(t, "Bearer abc123", out["Authorization"])
	assert.Equal(t, "application/json", out["Accept"])

	assert.Nil(t, ExpandMap(nil))
}
