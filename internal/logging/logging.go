// Package logging builds the logrus logger shared by every hook. Output goes
// to stderr only; stdout carries the result document.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Name appears in every log line.
const Name = "heat-config"

const timeLayout = "2006-01-02 15:04:05,000"

// Formatter renders "[time] (heat-config) [LEVEL] message key=value...".
type Formatter struct{}

// Format implements logrus.Formatter.
func (Formatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "[%s] (%s) [%s] %s",
		e.Time.Format(timeLayout), Name, strings.ToUpper(e.Level.String()), strings.TrimRight(e.Message, "\n"))

	if len(e.Data) > 0 {
		keys := make([]string, 0, len(e.Data))
		for k := range e.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
		}
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// New creates a logger writing to w at the named level ("debug", "info",
// ...). An empty level means info.
func New(level string, w io.Writer) (*logrus.Logger, error) {
	lvl := logrus.InfoLevel
	if level != "" {
		var err error
		lvl, err = logrus.ParseLevel(level)
		if err != nil {
			return nil, err
		}
	}

	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(Formatter{})
	log.SetLevel(lvl)
	return log, nil
}
