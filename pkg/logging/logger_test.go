package logging

import (
	"bytes"
	"log"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogger(component string) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return &Logger{component: component, out: log.New(buf, "", 0)}, buf
}

func TestRunIDStable(t *testing.T) {
	a := RunID()
	b := RunID()
	require.NotEmpty(t, a)
	assert.Equal(t, a, b, "run id must not change within a process")
}

func TestLogLineFormat(t *testing.T) {
	l, buf := captureLogger("publisher")
	l.Infof("state %s -> %s", "Init", "Connect")

	line := buf.String()
	assert.Contains(t, line, "[publisher]")
	assert.Contains(t, line, "[INFO]")
	assert.Contains(t, line, "state Init -> Connect")
}

func TestLevels(t *testing.T) {
	l, buf := captureLogger("cdp")
	l.Debugf("d")
	l.Warnf("w")
	l.Errorf("e")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "[DEBUG]")
	assert.Contains(t, lines[1], "[WARN]")
	assert.Contains(t, lines[2], "[ERROR]")
}

func TestConcurrentWritesDoNotInterleave(t *testing.T) {
	l, buf := captureLogger("test")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Infof("message body that should stay on one line")
		}()
	}
	wg.Wait()

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		assert.Contains(t, line, "message body that should stay on one line")
	}
}
