package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/RevCBH/heathook/internal/runner"
)

// StubRunner is a scripted runner.Runner. Responses are matched on the
// argument vector without the binary (Args[1:]) joined by spaces.
type StubRunner struct {
	mu       sync.Mutex
	stubs    map[string][]stubResponse
	prefixes []prefixStub
	defaults map[string]stubResponse
	fallback *stubResponse
	calls    []runner.Command
}

type stubResponse struct {
	res runner.Result
	err error
}

type prefixStub struct {
	prefix string
	queue  []stubResponse
}

func NewStubRunner() *StubRunner {
	return &StubRunner{
		stubs:    make(map[string][]stubResponse),
		defaults: make(map[string]stubResponse),
	}
}

// Stub queues a response for an exact argument string. Queued responses are
// consumed in order.
func (s *StubRunner) Stub(args string, res runner.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stubs[args] = append(s.stubs[args], stubResponse{res: res, err: err})
}

// StubPrefix queues a response for any argument string starting with prefix.
// Used where the argv carries generated values such as random name suffixes.
func (s *StubRunner) StubPrefix(prefix string, res runner.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.prefixes {
		if s.prefixes[i].prefix == prefix {
			s.prefixes[i].queue = append(s.prefixes[i].queue, stubResponse{res: res, err: err})
			return
		}
	}
	s.prefixes = append(s.prefixes, prefixStub{prefix: prefix, queue: []stubResponse{{res: res, err: err}}})
}

// StubDefault answers every call for args once the queue is drained.
func (s *StubRunner) StubDefault(args string, res runner.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaults[args] = stubResponse{res: res, err: err}
}

// StubFallback answers any call nothing else matched.
func (s *StubRunner) StubFallback(res runner.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = &stubResponse{res: res, err: err}
}

func (s *StubRunner) Run(ctx context.Context, cmd runner.Command) (runner.Result, error) {
	key := ""
	if len(cmd.Args) > 1 {
		key = strings.Join(cmd.Args[1:], " ")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, runner.Command{
		Args: append([]string(nil), cmd.Args...),
		Env:  append([]string(nil), cmd.Env...),
		Dir:  cmd.Dir,
	})

	if queue := s.stubs[key]; len(queue) > 0 {
		s.stubs[key] = queue[1:]
		return queue[0].res, queue[0].err
	}
	for i := range s.prefixes {
		p := &s.prefixes[i]
		if strings.HasPrefix(key, p.prefix) && len(p.queue) > 0 {
			resp := p.queue[0]
			p.queue = p.queue[1:]
			return resp.res, resp.err
		}
	}
	if resp, ok := s.defaults[key]; ok {
		return resp.res, resp.err
	}
	if s.fallback != nil {
		return s.fallback.res, s.fallback.err
	}
	return runner.Result{}, fmt.Errorf("unexpected call: %s", key)
}

// Calls returns every recorded command in invocation order.
func (s *StubRunner) Calls() []runner.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]runner.Command(nil), s.calls...)
}

// CallArgs returns the argument vectors (without the binary) in order.
func (s *StubRunner) CallArgs() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, 0, len(s.calls))
	for _, c := range s.calls {
		if len(c.Args) > 0 {
			out = append(out, c.Args[1:])
		} else {
			out = append(out, nil)
		}
	}
	return out
}

func (s *StubRunner) CallsFor(args ...string) int {
	key := strings.Join(args, " ")
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, call := range s.calls {
		if len(call.Args) > 1 && strings.Join(call.Args[1:], " ") == key {
			count++
		}
	}
	return count
}

var _ runner.Runner = (*StubRunner)(nil)
