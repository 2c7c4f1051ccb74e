package logger

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapErrorKeepsCause(t *testing.T) {
	cause := errors.New("boom")

	err := WrapError(cause, "loading user")
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "logger_test.go")
	assert.Contains(t, err.Error(), "loading user: boom")

	err = WrapError(cause, "")
	assert.ErrorIs(t, err, cause)
	assert.NotContains(t, err.Error(), "loading user")
}

func TestLevelsWriteLevelTag(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { Setup("", true) })

	debugEnabled = false
	Debug("hidden %d", 1)
	assert.Empty(t, buf.String())

	Reward("user %d credited %.2f", 7, 1500.0)
	assert.Contains(t, buf.String(), "[REWARD]")
	assert.Contains(t, buf.String(), "user 7 credited 1500.00")

	buf.Reset()
	debugEnabled = true
	Debug("visible")
	assert.True(t, strings.Contains(buf.String(), "[DEBUG]"))
}
