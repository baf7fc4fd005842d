package mail

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("alerts@uptimepulse.local", "oncall@example.com", "[CRITICAL] Uptime Pulse: api", "api is down"))

	assert.True(t, strings.Contains(msg, "From: alerts@uptimepulse.local\r\n"))
	assert.True(t, strings.Contains(msg, "To: oncall@example.com\r\n"))
	assert.True(t, strings.Contains(msg, "Subject: [CRITICAL] Uptime Pulse: api\r\n"))
	assert.True(t, strings.Contains(msg, "api is down"))
}

func TestNewSMTPMailer(t *testing.T) {
	m := NewSMTPMailer("localhost", 25, "", "", "alerts@uptimepulse.local")
	assert.NotNil(t, m)
	assert.Equal(t, "alerts@uptimepulse.local", m.from)
}
