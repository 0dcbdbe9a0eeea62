// Package reconcile sweeps the engine's managed containers against the set
// of active desired-state documents: containers of withdrawn configs are
// removed, drifted physical names are renamed back.
package reconcile

import (
	"context"

	"github.com/RevCBH/heathook/internal/engine"
	"github.com/RevCBH/heathook/internal/hook"
	"github.com/RevCBH/heathook/internal/labels"
	"github.com/sirupsen/logrus"
)

// Engine is the part of the engine client a pass drives.
type Engine interface {
	ConfigIDs(ctx context.Context, q labels.Query) ([]string, error)
	IDs(ctx context.Context, q labels.Query) ([]string, error)
	Remove(ctx context.Context, id string) error
	NamePairs(ctx context.Context, q labels.Query) ([]engine.NamePair, error)
	Rename(ctx context.Context, from, to string) error
}

// Summary tallies one pass.
type Summary struct {
	Removed int
	Renamed int
	Errors  int
}

// Reconciler runs reconciliation passes. Passes on one Reconciler must not
// overlap; Watch serializes them.
type Reconciler struct {
	engine  Engine
	log     logrus.FieldLogger
	metrics *Metrics

	// MetricsFile, when set, receives the counters after every
	// ReconcilePath pass.
	MetricsFile string
}

// New creates a Reconciler. metrics may be nil.
func New(e Engine, log logrus.FieldLogger, metrics *Metrics) *Reconciler {
	return &Reconciler{engine: e, log: log, metrics: metrics}
}

// Reconcile runs one pass against the given active documents. Every engine
// call is independent: a failure is logged and counted, and the pass moves
// on.
func (r *Reconciler) Reconcile(ctx context.Context, docs []*hook.Job) Summary {
	desired := DesiredState(docs)

	var s Summary
	r.deleteWithdrawn(ctx, desired, &s)
	r.renameDrifted(ctx, desired, &s)

	r.log.WithFields(logrus.Fields{
		"removed": s.Removed,
		"renamed": s.Renamed,
		"errors":  s.Errors,
	}).Debug("Reconciliation pass complete")
	r.metrics.observe(s)
	return s
}

func (r *Reconciler) deleteWithdrawn(ctx context.Context, desired Desired, s *Summary) {
	live, err := r.engine.ConfigIDs(ctx, labels.Managed())
	if err != nil {
		r.log.WithError(err).Warn("Could not list managed config ids")
		s.Errors++
		return
	}

	seen := make(map[string]bool, len(live))
	for _, id := range live {
		if seen[id] || desired.ConfigIDs[id] {
			continue
		}
		seen[id] = true

		ids, err := r.engine.IDs(ctx, labels.Managed().With(labels.KeyConfigID, id))
		if err != nil {
			r.log.WithError(err).Warnf("Could not list containers of config %s", id)
			s.Errors++
			continue
		}
		for _, cid := range ids {
			if err := r.engine.Remove(ctx, cid); err != nil {
				r.log.WithError(err).Warnf("Could not remove container %s", cid)
				s.Errors++
				continue
			}
			r.log.Infof("Removed container %s of withdrawn config %s", cid, id)
			s.Removed++
		}
	}
}

func (r *Reconciler) renameDrifted(ctx context.Context, desired Desired, s *Summary) {
	pairs, err := r.engine.NamePairs(ctx, labels.Managed())
	if err != nil {
		r.log.WithError(err).Warn("Could not list managed container names")
		s.Errors++
		return
	}

	used := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		used[p.Name] = true
	}

	for _, p := range pairs {
		if p.Logical == "" || p.Logical == p.Name || !desired.Logical[p.Logical] {
			continue
		}
		if used[p.Logical] {
			r.log.Infof("Cannot rename %s to %s, the name is in use", p.Name, p.Logical)
			continue
		}
		if err := r.engine.Rename(ctx, p.Name, p.Logical); err != nil {
			r.log.WithError(err).Warnf("Could not rename %s to %s", p.Name, p.Logical)
			s.Errors++
			continue
		}
		delete(used, p.Name)
		used[p.Logical] = true
		s.Renamed++
	}
}
