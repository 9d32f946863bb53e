package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactEmail(t *testing.T) {
	assert.Equal(t, "jo***@example.com", RedactEmail("john.doe@example.com"))
	assert.Equal(t, "***@example.com", RedactEmail("ab@example.com"))
	assert.Equal(t, "***@***", RedactEmail("not-an-email"))
}

func TestLogRedactsEmailFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	Info("subscribe failed", "email", "jane.roe@example.com", "source", "footer")

	var entry map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ja***@example.com", entry["email"])
	assert.Equal(t, "footer", entry["source"])
	assert.Equal(t, "INFO", entry["level"])
	assert.NotContains(t, buf.String(), "jane.roe@example.com")
}

func TestLogKeepsNonAddressValuesOnSensitiveKeys(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	Info("broadcast starting", "recipients", 2, "recipient", "dana@example.com")

	var entry map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "2", entry["recipients"], "counts survive redaction")
	assert.Equal(t, "da***@example.com", entry["recipient"])
}

func TestLogRedactsEmbeddedEmails(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	Error("send failed", "err", "upstream rejected bob.smith@example.com: 550")

	assert.NotContains(t, buf.String(), "bob.smith@example.com")
	assert.Contains(t, buf.String(), "bo***@example.com")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(WARN)
	defer func() {
		SetOutput(os.Stderr)
		SetLevel(INFO)
	}()

	Info("dropped")
	Warn("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}
