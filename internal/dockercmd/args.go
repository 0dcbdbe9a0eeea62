package dockercmd

import (
	"strconv"
	"strings"

	"github.com/RevCBH/heathook/internal/labels"
)

// RunArgs builds the engine argument vector (without the binary) that
// creates container name for spec.
func RunArgs(name string, set labels.Set, spec RunSpec) []string {
	args := []string{"run", "--name", name}
	args = append(args, set.Args()...)

	if spec.Detach {
		args = append(args, "--detach=true")
	}
	args = appendEach(args, "--env-file", spec.EnvFiles)
	args = appendEach(args, "--env", spec.Environment)
	args = appendOne(args, "--net", spec.Net)
	args = appendOne(args, "--pid", spec.PID)
	if spec.Privileged != nil {
		args = append(args, "--privileged="+strconv.FormatBool(*spec.Privileged))
	}
	args = appendOne(args, "--restart", spec.Restart)
	args = appendOne(args, "--user", spec.User)
	args = appendEach(args, "--volume", spec.Volumes)
	args = appendEach(args, "--volumes-from", spec.VolumesFrom)

	args = append(args, spec.Image)
	return append(args, spec.Command...)
}

// ExecArgs builds the argument vector that runs spec's command inside the
// container currently called physical.
func ExecArgs(physical string, spec ExecSpec) []string {
	args := []string{"exec"}
	if spec.Privileged != nil {
		args = append(args, "--privileged="+strconv.FormatBool(*spec.Privileged))
	}
	args = appendOne(args, "--user", spec.User)
	args = append(args, physical)
	return append(args, spec.Command...)
}

func appendOne(args []string, flag, value string) []string {
	if value == "" {
		return args
	}
	return append(args, flag+"="+value)
}

// appendEach adds flag=value per item, skipping blank items.
func appendEach(args []string, flag string, values []string) []string {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		args = append(args, flag+"="+v)
	}
	return args
}
