package mailer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessageHeaders(t *testing.T) {
	msg := BuildMessage("no-reply@bpi.local", "ada@bpi.test", "Claim code", "hello")

	assert.Equal(t, []string{"no-reply@bpi.local"}, msg.GetHeader("From"))
	assert.Equal(t, []string{"ada@bpi.test"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Claim code"}, msg.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "hello")
}

func TestClaimCodeBodyMentionsCodeAndCenter(t *testing.T) {
	body := ClaimCodeBody("Ada", "BPI-004211-PC", "Ikeja Hub", 42)

	assert.Contains(t, body, "BPI-004211-PC")
	assert.Contains(t, body, "Ikeja Hub")
	assert.Contains(t, body, "#42")
}

func TestSendWithoutHostIsNoop(t *testing.T) {
	m := New("", 465, "", "", "no-reply@bpi.local")
	assert.NoError(t, m.Send("ada@bpi.test", "subject", "body"))
}
