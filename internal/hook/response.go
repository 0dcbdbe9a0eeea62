package hook

import (
	"encoding/json"
	"io"
	"strings"
)

// Response is the result document every hook writes.
type Response struct {
	Stdout     string
	Stderr     string
	StatusCode int

	// Outputs carries extra named values (ansible output files). Keys never
	// override the deploy_* fields.
	Outputs map[string]string
}

// Result field names.
const (
	KeyStdout     = "deploy_stdout"
	KeyStderr     = "deploy_stderr"
	KeyStatusCode = "deploy_status_code"
)

// Empty is the zero result: nothing ran, nothing failed.
func Empty() Response {
	return Response{}
}

// Joined builds a Response from per-command output fragments, newline-joined
// in order.
func Joined(stdout, stderr []string, code int) Response {
	return Response{
		Stdout:     strings.Join(stdout, "\n"),
		Stderr:     strings.Join(stderr, "\n"),
		StatusCode: code,
	}
}

func (r Response) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.Outputs)+3)
	for k, v := range r.Outputs {
		m[k] = v
	}
	m[KeyStdout] = r.Stdout
	m[KeyStderr] = r.Stderr
	m[KeyStatusCode] = r.StatusCode
	return json.Marshal(m)
}

func (r *Response) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*r = Response{}
	for k, raw := range m {
		switch k {
		case KeyStdout:
			if err := json.Unmarshal(raw, &r.Stdout); err != nil {
				return err
			}
		case KeyStderr:
			if err := json.Unmarshal(raw, &r.Stderr); err != nil {
				return err
			}
		case KeyStatusCode:
			if err := json.Unmarshal(raw, &r.StatusCode); err != nil {
				return err
			}
		default:
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				continue
			}
			if r.Outputs == nil {
				r.Outputs = make(map[string]string)
			}
			r.Outputs[k] = s
		}
	}
	return nil
}

// Write encodes r as a single JSON document.
func (r Response) Write(w io.Writer) error {
	return json.NewEncoder(w).Encode(r)
}
