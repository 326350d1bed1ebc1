// Package app wires configuration, the Unisphere session, the run ledger
// and the reconciler together for one invocation. Scoped resources are
// acquired in New and released in Close on every exit path.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/avolkov/unihost/internal/config"
	"github.com/avolkov/unihost/internal/db"
	"github.com/avolkov/unihost/internal/ledger"
	"github.com/avolkov/unihost/internal/plan"
	"github.com/avolkov/unihost/internal/reconcile"
	"github.com/avolkov/unihost/internal/unisphere"
)

// App holds the resources of one invocation.
type App struct {
	cfg        *config.Config
	database   *db.DB
	runLedger  *ledger.Ledger
	client     *unisphere.Client
	reconciler *reconcile.Reconciler
}

// New creates an App with all resources initialized. The Unisphere session
// is not probed until Connect.
func New(cfg *config.Config) (*App, error) {
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	runLedger := ledger.New(database.DB)
	retention := time.Duration(cfg.Ledger.RetentionDays) * 24 * time.Hour
	if removed, err := runLedger.DeleteOlderThan(retention); err != nil {
		log.Warn().Err(err).Msg("Failed to prune run ledger")
	} else if removed > 0 {
		log.Debug().Int64("removed", removed).Msg("Pruned run ledger")
	}

	client := unisphere.NewClient(unisphere.Params{
		Host:       cfg.Unisphere.Host,
		Port:       cfg.Unisphere.Port,
		Username:   cfg.Unisphere.Username,
		Password:   cfg.Unisphere.Password,
		Serial:     cfg.Unisphere.Serial,
		APIVersion: cfg.Unisphere.APIVersion,
		VerifyCert: cfg.Unisphere.VerifyCert,
		Timeout:    cfg.Unisphere.Timeout.Duration(),
		RateLimit:  cfg.Unisphere.RateLimit,
	})

	return &App{
		cfg:        cfg,
		database:   database,
		runLedger:  runLedger,
		client:     client,
		reconciler: reconcile.New(client),
	}, nil
}

// Connect probes the Unisphere endpoint and verifies its version.
func (a *App) Connect(ctx context.Context) error {
	return a.client.Connect(ctx)
}

// Close releases the Unisphere session and the database.
func (a *App) Close() error {
	var firstErr error
	if err := a.client.Close(); err != nil {
		firstErr = err
	}
	if err := a.database.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Ledger exposes the run history.
func (a *App) Ledger() *ledger.Ledger {
	return a.runLedger
}

// GetHost fetches current host details from the array.
func (a *App) GetHost(ctx context.Context, name string) (*unisphere.Host, error) {
	return a.client.GetHost(ctx, name)
}

// Reconcile runs one declared host through the reconciler and records the
// run in the ledger regardless of outcome.
func (a *App) Reconcile(ctx context.Context, desired reconcile.DesiredState) (reconcile.Result, error) {
	runID := uuid.NewString()
	started := time.Now()

	log.Info().Str("run_id", runID).Str("host", desired.Name).
		Str("state", string(desired.State)).Msg("Reconciling host")

	res, err := a.reconciler.Reconcile(ctx, desired)

	entry := ledger.Entry{
		RunID:     runID,
		Host:      desired.Name,
		Outcome:   ledger.OutcomeCompleted,
		Changed:   res.Changed,
		StartedAt: started,
		Duration:  time.Since(started),
	}
	if err != nil {
		entry.Outcome = ledger.OutcomeFailed
		entry.Error = err.Error()
	}
	if lerr := a.runLedger.Record(entry); lerr != nil {
		log.Warn().Err(lerr).Str("host", desired.Name).Msg("Failed to record run in ledger")
	}

	if err != nil {
		return res, err
	}
	log.Info().Str("run_id", runID).Str("host", desired.Name).
		Bool("changed", res.Changed).Msg("Host reconciled")
	return res, nil
}

// Apply reconciles every host in the plan, in order. The first failure
// aborts the remaining entries: a failed mutation leaves the run's changed
// state indeterminate and there is no partial recovery.
func (a *App) Apply(ctx context.Context, p *plan.Plan) ([]reconcile.Result, error) {
	results := make([]reconcile.Result, 0, len(p.Hosts))
	for _, h := range p.Hosts {
		res, err := a.Reconcile(ctx, h.Desired())
		if err != nil {
			return results, fmt.Errorf("plan aborted at host %q: %w", h.Name, err)
		}
		results = append(results, res)
	}
	return results, nil
}
