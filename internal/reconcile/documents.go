package reconcile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/RevCBH/heathook/internal/dockercmd"
	"github.com/RevCBH/heathook/internal/hook"
	"github.com/containerd/errdefs"
)

// GroupDockerCmd is the job group whose documents own managed containers.
const GroupDockerCmd = "docker-cmd"

// ErrNoDocuments means the desired-document path does not exist. A pass
// must not run in that case: an absent path is not an empty desired state.
var ErrNoDocuments = fmt.Errorf("desired documents: %w", errdefs.ErrNotFound)

// LoadDocuments reads every job document under path. path is either a JSON
// file holding an array of documents, or a directory whose *.json files
// each hold one document or an array. Directory files are read in name
// order.
func LoadDocuments(path string) ([]*hook.Job, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNoDocuments, path)
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	if !info.IsDir() {
		return loadFile(path)
	}

	files, err := filepath.Glob(filepath.Join(path, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	sort.Strings(files)

	var jobs []*hook.Job
	for _, f := range files {
		got, err := loadFile(f)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, got...)
	}
	return jobs, nil
}

func loadFile(path string) ([]*hook.Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var raws []json.RawMessage
	if data[0] == '[' {
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, fmt.Errorf("%s: %w: %v", path, hook.ErrMalformedJob, err)
		}
	} else {
		raws = []json.RawMessage{data}
	}

	jobs := make([]*hook.Job, 0, len(raws))
	for _, raw := range raws {
		job, err := hook.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Desired is the part of the active documents a pass needs.
type Desired struct {
	// ConfigIDs holds the id of every active docker-cmd document.
	ConfigIDs map[string]bool

	// Logical holds every container name declared by an active document.
	Logical map[string]bool
}

// DesiredState extracts config ids and logical container names from the
// docker-cmd documents in jobs. Documents of other groups are ignored. A
// document whose config does not parse still keeps its config id active.
func DesiredState(jobs []*hook.Job) Desired {
	d := Desired{ConfigIDs: make(map[string]bool), Logical: make(map[string]bool)}
	for _, job := range jobs {
		if job.Group != GroupDockerCmd {
			continue
		}
		d.ConfigIDs[job.ID] = true

		if !job.HasConfig() {
			continue
		}
		entries, err := dockercmd.ParseConfig(job.Config)
		if err != nil {
			continue
		}
		for _, e := range entries {
			d.Logical[e.Name] = true
		}
	}
	return d
}
