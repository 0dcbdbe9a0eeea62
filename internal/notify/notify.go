// Package notify signals a deployment's completion to the URL carried in
// its deploy_signal_id input.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/RevCBH/heathook/internal/hook"
	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
)

// ErrNoSignalTarget means the job carries no deploy_signal_id.
var ErrNoSignalTarget = errors.New("no deploy_signal_id input")

// Settings tune delivery.
type Settings struct {
	// Retries is the total number of attempts. Values below 1 mean one.
	Retries int

	// Timeout bounds each attempt.
	Timeout time.Duration
}

// Notifier delivers signal data over HTTP.
type Notifier struct {
	client   *http.Client
	settings Settings
	log      logrus.FieldLogger

	// newBackOff builds the delay policy for one delivery.
	newBackOff func() backoff.BackOff
}

// New creates a Notifier. A nil client means http.DefaultClient.
func New(client *http.Client, s Settings, log logrus.FieldLogger) *Notifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &Notifier{
		client:   client,
		settings: s,
		log:      log,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
}

// LoadJob reads the deployment's job document from path.
func LoadJob(path string) (*hook.Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return hook.Decode(f)
}

// SignalData reads the signal payload. Anything that is not a JSON document
// becomes "{}".
func SignalData(r io.Reader) []byte {
	data, err := io.ReadAll(r)
	if err != nil {
		return []byte("{}")
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || !json.Valid(data) {
		return []byte("{}")
	}
	return data
}

// Notify sends data to the job's signal URL with the job's signal verb
// (POST by default). Server errors and transport failures are retried with
// exponential backoff; other non-2xx replies fail immediately.
func (n *Notifier) Notify(ctx context.Context, job *hook.Job, data []byte) error {
	target := job.Input(hook.InputDeploySignalID)
	if target == "" {
		return ErrNoSignalTarget
	}
	verb := strings.ToUpper(job.Input(hook.InputDeploySignalVerb))
	if verb == "" {
		verb = http.MethodPost
	}

	tries := n.settings.Retries
	if tries < 1 {
		tries = 1
	}

	attempt := 0
	op := func() (int, error) {
		attempt++
		status, err := n.send(ctx, verb, target, data)
		if err != nil {
			n.log.WithError(err).Warnf("Signal attempt %d to %s failed", attempt, target)
		}
		return status, err
	}

	status, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(n.newBackOff()),
		backoff.WithMaxTries(uint(tries)),
	)
	if err != nil {
		return fmt.Errorf("signal %s %s: %w", verb, target, err)
	}
	n.log.Infof("Signalled %s %s [%d]", verb, target, status)
	return nil
}

func (n *Notifier) send(ctx context.Context, verb, target string, data []byte) (int, error) {
	if n.settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.settings.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, verb, target, bytes.NewReader(data))
	if err != nil {
		return 0, backoff.Permanent(err)
	}
	req.Header.Set("content-type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 500:
		return resp.StatusCode, fmt.Errorf("server replied %s", resp.Status)
	case resp.StatusCode >= 300:
		return resp.StatusCode, backoff.Permanent(fmt.Errorf("server replied %s", resp.Status))
	}
	return resp.StatusCode, nil
}
