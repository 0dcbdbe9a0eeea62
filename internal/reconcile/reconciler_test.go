package reconcile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/RevCBH/heathook/internal/engine"
	"github.com/RevCBH/heathook/internal/hook"
	"github.com/RevCBH/heathook/internal/runner"
	"github.com/RevCBH/heathook/internal/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	listConfigIDs = `ps -a --filter label=managed_by=docker-cmd --format {{.Label "config_id"}}`
	listNames     = `ps -a --filter label=managed_by=docker-cmd --format {{.Names}} {{.Label "container_name"}}`
	listABC123    = "ps -q -a --filter label=managed_by=docker-cmd --filter label=config_id=abc123"
)

func newTestReconciler(stub *testutil.StubRunner) (*Reconciler, *Metrics) {
	log, _ := logtest.NewNullLogger()
	metrics := NewMetrics()
	return New(engine.NewClient(stub, "docker", log), log, metrics), metrics
}

func dockerCmdJob(id, config string) *hook.Job {
	return &hook.Job{ID: id, Group: GroupDockerCmd, Config: []byte(config)}
}

func TestReconcile_RemovesWithdrawnConfig(t *testing.T) {
	stub := testutil.NewStubRunner()
	stub.Stub(listConfigIDs, runner.Result{Stdout: "abc123\nabc123\nabc123\n"}, nil)
	stub.Stub(listABC123, runner.Result{Stdout: "111\n222\n333\n"}, nil)
	stub.Stub("rm -f 111", runner.Result{Stdout: "111"}, nil)
	stub.Stub("rm -f 222", runner.Result{Stdout: "222"}, nil)
	stub.Stub("rm -f 333", runner.Result{Stdout: "333"}, nil)
	stub.Stub(listNames, runner.Result{Stdout: "\n"}, nil)

	r, metrics := newTestReconciler(stub)
	s := r.Reconcile(context.Background(), []*hook.Job{dockerCmdJob("def456", `{"web": {"image": "x"}}`)})

	assert.Equal(t, Summary{Removed: 3}, s)
	assert.Equal(t, 1, stub.CallsFor("ps", "-a", "--filter", "label=managed_by=docker-cmd", "--format", `{{.Label "config_id"}}`))
	assert.Equal(t, 1, stub.CallsFor("ps", "-q", "-a", "--filter", "label=managed_by=docker-cmd", "--filter", "label=config_id=abc123"))
	assert.Equal(t, [][]string{
		{"rm", "-f", "111"},
		{"rm", "-f", "222"},
		{"rm", "-f", "333"},
	}, stub.CallArgs()[2:5])

	assert.Equal(t, float64(3), promtest.ToFloat64(metrics.removed))
	assert.Equal(t, float64(1), promtest.ToFloat64(metrics.passes))
}

func TestReconcile_KeepsActiveConfig(t *testing.T) {
	stub := testutil.NewStubRunner()
	stub.Stub(listConfigIDs, runner.Result{Stdout: "abc123\n"}, nil)
	stub.Stub(listNames, runner.Result{Stdout: "web web\n"}, nil)

	r, _ := newTestReconciler(stub)
	s := r.Reconcile(context.Background(), []*hook.Job{dockerCmdJob("abc123", `{"web": {"image": "x"}}`)})

	assert.Equal(t, Summary{}, s)
	assert.Len(t, stub.Calls(), 2)
}

func TestReconcile_IgnoresOtherGroups(t *testing.T) {
	stub := testutil.NewStubRunner()
	stub.Stub(listConfigIDs, runner.Result{Stdout: "abc123\n"}, nil)
	stub.Stub(listABC123, runner.Result{Stdout: "111\n"}, nil)
	stub.Stub("rm -f 111", runner.Result{}, nil)
	stub.Stub(listNames, runner.Result{}, nil)

	r, _ := newTestReconciler(stub)
	other := &hook.Job{ID: "abc123", Group: "script"}
	s := r.Reconcile(context.Background(), []*hook.Job{other})

	assert.Equal(t, 1, s.Removed)
}

func TestReconcile_Renames(t *testing.T) {
	stub := testutil.NewStubRunner()
	stub.Stub(listConfigIDs, runner.Result{Stdout: "abc123\nabc123\nabc123\n"}, nil)
	stub.Stub(listNames, runner.Result{Stdout: "web web\ndb-s84nf83h db\nlonely\nstray-3nd83nfi stray\n"}, nil)
	stub.Stub("rename db-s84nf83h db", runner.Result{}, nil)

	r, metrics := newTestReconciler(stub)
	s := r.Reconcile(context.Background(), []*hook.Job{
		dockerCmdJob("abc123", `{"web": {"image": "x"}, "db": {"image": "y"}}`),
	})

	assert.Equal(t, Summary{Renamed: 1}, s)
	assert.Equal(t, 1, stub.CallsFor("rename", "db-s84nf83h", "db"))
	assert.Equal(t, 0, stub.CallsFor("rename", "web", "web"))
	assert.Equal(t, 0, stub.CallsFor("rename", "stray-3nd83nfi", "stray"))
	assert.Len(t, stub.Calls(), 3)
	assert.Equal(t, float64(1), promtest.ToFloat64(metrics.renamed))
}

func TestReconcile_RenameTargetInUse(t *testing.T) {
	stub := testutil.NewStubRunner()
	stub.Stub(listConfigIDs, runner.Result{}, nil)
	stub.Stub(listNames, runner.Result{Stdout: "api-aaaaaaaa api\napi legacy\n"}, nil)

	r, _ := newTestReconciler(stub)
	s := r.Reconcile(context.Background(), []*hook.Job{dockerCmdJob("abc123", `{"api": {"image": "x"}}`)})

	assert.Equal(t, Summary{}, s)
	assert.Len(t, stub.Calls(), 2)
}

func TestReconcile_FailuresAreIndependent(t *testing.T) {
	stub := testutil.NewStubRunner()
	stub.Stub(listConfigIDs, runner.Result{Stdout: "abc123\n"}, nil)
	stub.Stub(listABC123, runner.Result{Stdout: "111\n222\n"}, nil)
	stub.Stub("rm -f 111", runner.Result{Stderr: "no such container", ExitCode: 1}, nil)
	stub.Stub("rm -f 222", runner.Result{}, nil)
	stub.Stub(listNames, runner.Result{ExitCode: 1}, nil)

	r, metrics := newTestReconciler(stub)
	s := r.Reconcile(context.Background(), nil)

	assert.Equal(t, Summary{Removed: 1, Errors: 2}, s)
	assert.Equal(t, 1, stub.CallsFor("rm", "-f", "222"))
	assert.Equal(t, float64(2), promtest.ToFloat64(metrics.engineErrors))
}

func TestReconcile_ConfigQueryFailureStillRenames(t *testing.T) {
	stub := testutil.NewStubRunner()
	stub.Stub(listConfigIDs, runner.Result{ExitCode: 1}, nil)
	stub.Stub(listNames, runner.Result{Stdout: "web-1 web\n"}, nil)
	stub.Stub("rename web-1 web", runner.Result{}, nil)

	r, _ := newTestReconciler(stub)
	s := r.Reconcile(context.Background(), []*hook.Job{dockerCmdJob("abc123", `{"web": {"image": "x"}}`)})

	assert.Equal(t, Summary{Renamed: 1, Errors: 1}, s)
}

func TestReconcilePath_MissingPath(t *testing.T) {
	stub := testutil.NewStubRunner()
	r, _ := newTestReconciler(stub)

	s, err := r.ReconcilePath(context.Background(), filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, Summary{}, s)
	assert.Empty(t, stub.Calls())
}

func TestReconcilePath_CorruptDocumentSkipsPass(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id": `), 0o600))

	stub := testutil.NewStubRunner()
	r, _ := newTestReconciler(stub)

	_, err := r.ReconcilePath(context.Background(), path)
	assert.ErrorIs(t, err, hook.ErrMalformedJob)
	assert.Empty(t, stub.Calls())
}

func TestReconcilePath_WritesMetrics(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "configs.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o600))

	stub := testutil.NewStubRunner()
	stub.Stub(listConfigIDs, runner.Result{Stdout: "abc123\n"}, nil)
	stub.Stub(listABC123, runner.Result{Stdout: "111\n"}, nil)
	stub.Stub("rm -f 111", runner.Result{}, nil)
	stub.Stub(listNames, runner.Result{}, nil)

	r, _ := newTestReconciler(stub)
	r.MetricsFile = filepath.Join(dir, "heathook.prom")

	s, err := r.ReconcilePath(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Removed)

	data, err := os.ReadFile(r.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "heathook_reconcile_removed_total 1")
	assert.Contains(t, string(data), "heathook_reconcile_passes_total 1")
}
