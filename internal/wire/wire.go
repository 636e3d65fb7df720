// Package wire provides dependency injection for the loopctl
// application. It creates singleton services with lazy initialization.
package wire

import (
	"log"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/example/loopctl/internal/adapters/cards"
	"github.com/example/loopctl/internal/adapters/filesystem"
	"github.com/example/loopctl/internal/adapters/sqlite"
	"github.com/example/loopctl/internal/app"
	"github.com/example/loopctl/internal/config"
	"github.com/example/loopctl/internal/core/bottleneck"
	"github.com/example/loopctl/internal/core/loopspec"
	"github.com/example/loopctl/internal/core/replan"
	"github.com/example/loopctl/internal/db"
	"github.com/example/loopctl/internal/ports/primary"
	"github.com/example/loopctl/internal/ports/secondary"
)

var (
	cfg              *config.Config
	runService       primary.RunService
	mergeService     primary.MergeService
	manifestService  primary.ManifestService
	diagnosisService primary.DiagnosisService
	historyService   primary.HistoryService
	triggerService   primary.TriggerService
	once             sync.Once
)

// Config returns the loaded configuration.
func Config() *config.Config {
	once.Do(initServices)
	return cfg
}

// RunService returns the singleton RunService instance.
func RunService() primary.RunService {
	once.Do(initServices)
	return runService
}

// MergeService returns the singleton MergeService instance.
func MergeService() primary.MergeService {
	once.Do(initServices)
	return mergeService
}

// ManifestService returns the singleton ManifestService instance.
func ManifestService() primary.ManifestService {
	once.Do(initServices)
	return manifestService
}

// DiagnosisService returns the singleton DiagnosisService instance.
func DiagnosisService() primary.DiagnosisService {
	once.Do(initServices)
	return diagnosisService
}

// HistoryService returns the singleton HistoryService instance.
func HistoryService() primary.HistoryService {
	once.Do(initServices)
	return historyService
}

// TriggerService returns the singleton TriggerService instance.
func TriggerService() primary.TriggerService {
	once.Do(initServices)
	return triggerService
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Get database connection for the rebuildable history index
	database, err := db.GetDB()
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	spec := loopspec.Default()
	clock := secondary.ClockFunc(time.Now)
	logger := zlog.Logger

	// Create document store adapters (secondary ports) rooted at the base dir
	events := filesystem.NewEventLog(cfg.BaseDir)
	results := filesystem.NewStageResultStore(cfg.BaseDir)
	manifests := filesystem.NewManifestStore(cfg.BaseDir)
	snapshots := filesystem.NewSnapshotStore(cfg.BaseDir)
	ledger := filesystem.NewHistoryLedger(cfg.BaseDir)
	triggers := filesystem.NewTriggerStore(cfg.BaseDir)
	extractor := filesystem.NewMetricsExtractor(cfg.BaseDir, results, events, logger)
	cardClient := cards.NewStore(cfg.BaseDir)
	index := sqlite.NewHistoryIndex(database)

	opts := replan.Options{
		PersistenceThreshold:              cfg.PersistenceThreshold,
		MinSeverity:                       bottleneck.Severity(cfg.MinSeverity),
		AutoResolveAfterNonPersistentRuns: cfg.AutoResolveAfterRuns,
	}

	// Create services (primary ports implementation)
	runService = app.NewRunService(events, spec, clock)
	mergeService = app.NewMergeService(results, cardClient, spec, clock)
	manifestService = app.NewManifestService(results, manifests, spec, clock)
	diagnosisService = app.NewDiagnosisService(extractor, snapshots, ledger, triggers, index, results, spec, opts, clock, logger)
	historyService = app.NewHistoryService(ledger, index)
	triggerService = app.NewTriggerService(triggers, clock)
}
