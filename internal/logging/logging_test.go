package logging

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatter(t *testing.T) {
	e := &logrus.Entry{
		Time:    time.Date(2024, 3, 5, 7, 8, 9, 123_000_000, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "ansible not installed yet\n",
		Data:    logrus.Fields{"b": 2, "a": "x"},
	}

	out, err := Formatter{}.Format(e)
	require.NoError(t, err)
	assert.Equal(t, "[2024-03-05 07:08:09,123] (heat-config) [WARNING] ansible not installed yet a=x b=2\n", string(out))
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("debug", &buf)
	require.NoError(t, err)

	log.Debug("Running docker ps")
	log.WithError(errors.New("boom")).Error("failed")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), "(heat-config) [DEBUG] Running docker ps")
	assert.Contains(t, string(lines[1]), "[ERROR] failed error=boom")
}

func TestNew_DefaultLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("", &buf)
	require.NoError(t, err)

	log.Debug("hidden")
	assert.Empty(t, buf.String())
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New("loud", &bytes.Buffer{})
	assert.Error(t, err)
}
