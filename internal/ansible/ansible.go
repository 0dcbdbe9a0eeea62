// Package ansible runs a job's config as an ansible playbook against a
// local inventory.
package ansible

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/RevCBH/heathook/internal/hook"
	"github.com/RevCBH/heathook/internal/runner"
	"github.com/moby/sys/atomicwriter"
	"github.com/sirupsen/logrus"
)

// Job options understood by the hook.
const (
	OptionTags            = "tags"
	OptionSkipTags        = "skip_tags"
	OptionModulePath      = "modulepath"
	OptionCallbackPlugins = "callback_plugins"
	OptionInventory       = "inventory"
)

// Settings locate the playbook binary and its scratch directories.
type Settings struct {
	Command    string
	WorkingDir string
	OutputsDir string
	Inventory  string
}

// Hook applies ansible jobs.
type Hook struct {
	runner   runner.Runner
	settings Settings
	log      logrus.FieldLogger
}

// New creates a Hook.
func New(r runner.Runner, s Settings, log logrus.FieldLogger) *Hook {
	return &Hook{runner: r, settings: s, log: log}
}

// Apply writes the playbook and its variables, runs the playbook and
// collects the requested output files.
func (h *Hook) Apply(ctx context.Context, job *hook.Job) hook.Response {
	if !job.HasConfig() {
		h.log.Warn("No 'config' input found, nothing to do.")
		return hook.Empty()
	}
	if err := hook.CheckFileName(job.ID); err != nil {
		return failed(h.log, fmt.Errorf("config id: %w", err))
	}

	for _, dir := range []string{h.settings.OutputsDir, h.settings.WorkingDir} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return failed(h.log, fmt.Errorf("prepare %s: %w", dir, err))
		}
	}

	playbook := filepath.Join(h.settings.WorkingDir, job.ID+"_playbook.yaml")
	varsFile := filepath.Join(h.settings.WorkingDir, job.ID+"_variables.json")
	outputsPath := filepath.Join(h.settings.OutputsDir, job.ID)

	vars := job.InputValues()
	vars["heat_config_id"] = job.ID
	vars["heat_outputs_path"] = outputsPath
	data, err := json.Marshal(vars)
	if err != nil {
		return failed(h.log, fmt.Errorf("encode variables: %w", err))
	}
	if err := atomicwriter.WriteFile(varsFile, data, 0o600); err != nil {
		return failed(h.log, err)
	}
	if err := atomicwriter.WriteFile(playbook, []byte(job.ConfigText()), 0o600); err != nil {
		return failed(h.log, err)
	}

	cmd := runner.Command{
		Args: h.args(job, playbook, varsFile),
		Dir:  h.settings.WorkingDir,
	}
	if plugins := job.Option(OptionCallbackPlugins); plugins != "" {
		cmd.Env = append(cmd.Env, "ANSIBLE_CALLBACK_PLUGINS="+plugins)
	}

	h.log.Debugf("Running %s", cmd)
	res, err := h.runner.Run(ctx, cmd)
	if runner.IsLaunchFailure(err) {
		h.log.Warn("ansible not installed yet")
		return hook.Empty()
	}
	if err != nil {
		return failed(h.log, err)
	}

	h.log.Infof("Return code %d", res.ExitCode)
	if res.Stdout != "" {
		h.log.Info(res.Stdout)
	}
	if res.Stderr != "" {
		h.log.Info(res.Stderr)
	}
	if res.ExitCode != 0 {
		h.log.Errorf("Error running %s. [%d]", playbook, res.ExitCode)
	} else {
		h.log.Infof("Completed %s", playbook)
	}

	resp := hook.Response{Stdout: res.Stdout, Stderr: res.Stderr, StatusCode: res.ExitCode}
	for _, out := range job.Outputs {
		if err := hook.CheckFileName(out.Name); err != nil {
			h.log.Warnf("Skipping output: %v", err)
			continue
		}
		b, err := os.ReadFile(outputsPath + "." + out.Name)
		if err != nil {
			continue
		}
		if resp.Outputs == nil {
			resp.Outputs = make(map[string]string)
		}
		resp.Outputs[out.Name] = string(b)
	}
	return resp
}

// args builds: cmd -i INV [--module-path M] [--skip-tags S] [--tags T]
// PLAYBOOK --extra-vars @VARS
func (h *Hook) args(job *hook.Job, playbook, varsFile string) []string {
	inventory := h.settings.Inventory
	if inv := job.Option(OptionInventory); inv != "" {
		inventory = filepath.Join(h.settings.WorkingDir, inv)
	}

	args := []string{h.settings.Command, "-i", inventory}
	if v := job.Option(OptionModulePath); v != "" {
		args = append(args, "--module-path", v)
	}
	if v := job.Option(OptionSkipTags); v != "" {
		args = append(args, "--skip-tags", v)
	}
	if v := job.Option(OptionTags); v != "" {
		args = append(args, "--tags", v)
	}
	return append(args, playbook, "--extra-vars", "@"+varsFile)
}

func failed(log logrus.FieldLogger, err error) hook.Response {
	log.Error(err)
	return hook.Response{Stderr: err.Error(), StatusCode: 1}
}
