// Package hiera writes puppet hiera configuration and JSON data files from
// a job's config.
package hiera

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/RevCBH/heathook/internal/hook"
	"github.com/RevCBH/heathook/internal/runner"
	"github.com/moby/sys/atomicwriter"
	"github.com/sirupsen/logrus"
)

const legacyMessage = "Legacy hieradata from os-apply-config has been detected - %s. " +
	"Please update all of your interfaces to use the new heat-agents hiera hook before proceeding"

// Settings locate hiera's files and the legacy data check.
type Settings struct {
	DataDir    string
	ConfigFile string

	// CheckCommand prints "empty" when no os-apply-config hieradata is
	// present. It is split on single spaces.
	CheckCommand string
}

// Hook applies hiera jobs.
type Hook struct {
	runner   runner.Runner
	settings Settings
	log      logrus.FieldLogger
}

// New creates a Hook.
func New(r runner.Runner, s Settings, log logrus.FieldLogger) *Hook {
	return &Hook{runner: r, settings: s, log: log}
}

// Apply refuses to run over legacy hieradata, then writes the hierarchy
// config and every data file the job carries.
func (h *Hook) Apply(ctx context.Context, job *hook.Job) hook.Response {
	if resp, found := h.legacyData(ctx); found {
		return resp
	}
	if !job.HasConfig() {
		h.log.Warn("No 'config' input found, nothing to do.")
		return hook.Empty()
	}

	dec := json.NewDecoder(strings.NewReader(job.ConfigText()))
	dec.UseNumber()
	var cfg map[string]json.RawMessage
	if err := dec.Decode(&cfg); err != nil {
		h.log.Warnf("Ignoring config %s: %v", job.ID, err)
		return hook.Empty()
	}

	if err := os.MkdirAll(h.settings.DataDir, 0o700); err != nil {
		return failed(h.log, fmt.Errorf("prepare %s: %w", h.settings.DataDir, err))
	}

	if raw, ok := cfg["hierarchy"]; ok {
		if err := h.writeConfig(raw); err != nil {
			return failed(h.log, err)
		}
	}
	if raw, ok := cfg["datafiles"]; ok {
		if err := h.writeDataFiles(raw); err != nil {
			return failed(h.log, err)
		}
	}
	return hook.Empty()
}

// legacyData runs the check command. A command that cannot start means
// there is no legacy data.
func (h *Hook) legacyData(ctx context.Context) (hook.Response, bool) {
	args := strings.Split(h.settings.CheckCommand, " ")
	res, err := h.runner.Run(ctx, runner.Command{Args: args})
	if err != nil {
		h.log.WithError(err).Debug("Legacy hieradata check did not run")
		return hook.Response{}, false
	}

	out := strings.TrimRight(res.Stdout, " \t\r\n")
	if out == "empty" {
		return hook.Response{}, false
	}
	return hook.Response{
		Stdout:     res.Stdout,
		Stderr:     fmt.Sprintf(legacyMessage, out),
		StatusCode: 1,
	}, true
}

func (h *Hook) writeConfig(raw json.RawMessage) error {
	var items []any
	if err := decodeNumbers(raw, &items); err != nil {
		return fmt.Errorf("hierarchy: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n---\n:backends:\n  - json\n:json:\n  :datadir: %s\n:hierarchy:\n", h.settings.DataDir)
	for _, item := range items {
		fmt.Fprintf(&b, "  - %v\n", item)
	}
	return atomicwriter.WriteFile(h.settings.ConfigFile, []byte(b.String()), 0o600)
}

func (h *Hook) writeDataFiles(raw json.RawMessage) error {
	var files map[string]json.RawMessage
	if err := json.Unmarshal(raw, &files); err != nil {
		return fmt.Errorf("datafiles: %w", err)
	}
	for name := range files {
		if err := hook.CheckFileName(name); err != nil {
			return fmt.Errorf("datafile: %w", err)
		}
	}

	for name, content := range files {
		data, err := render(content)
		if err != nil {
			return fmt.Errorf("datafile %s: %w", name, err)
		}
		path := filepath.Join(h.settings.DataDir, name+".json")
		if err := atomicwriter.WriteFile(path, data, 0o600); err != nil {
			return err
		}
		h.log.Debugf("Wrote %s", path)
	}
	return nil
}

// render re-encodes one data file with sorted keys, 4-space indent and
// non-ASCII characters escaped as \uXXXX.
func render(raw json.RawMessage) ([]byte, error) {
	var v any
	if err := decodeNumbers(raw, &v); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return asciiOnly(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// asciiOnly escapes every non-ASCII rune of encoded JSON. Outside strings
// the encoder only emits ASCII, so no context tracking is needed.
func asciiOnly(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for len(b) > 0 {
		if b[0] < utf8.RuneSelf {
			out = append(out, b[0])
			b = b[1:]
			continue
		}
		r, size := utf8.DecodeRune(b)
		b = b[size:]
		if r1, r2 := utf16.EncodeRune(r); r1 != utf8.RuneError {
			out = fmt.Appendf(out, `\u%04x\u%04x`, r1, r2)
			continue
		}
		out = fmt.Appendf(out, `\u%04x`, r)
	}
	return out
}

func decodeNumbers(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

func failed(log logrus.FieldLogger, err error) hook.Response {
	log.Error(err)
	return hook.Response{Stderr: err.Error(), StatusCode: 1}
}
