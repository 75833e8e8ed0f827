package service

import (
	"time"

	"banlink/internal/config"
	"banlink/internal/logger"
	"banlink/internal/models"
	"banlink/internal/storage"
)

var (
	globalConfig *config.Config

	communityStore CommunityStore
	banStore       BanStore
	reviewStore    ReviewStore
	flagStore      FlagStore

	registry   *CommunityRegistry
	ledger     *IntegrityLedger
	limiter    *RateLimiter
	engine     *AutoBanEngine
	workflow   *ReviewWorkflow
	dispatcher *Dispatcher
	flags      *FlagService
)

// Initialize stores the configuration for later wiring.
func Initialize(cfg *config.Config) {
	globalConfig = cfg
}

// InitRepositories selects the durable gorm repositories when the database
// is enabled, migrating their tables, and falls back to the in-memory
// stores otherwise.
func InitRepositories() {
	if storage.DB != nil {
		communityRepo := storage.NewCommunityRepository(storage.DB)
		if err := communityRepo.MigrateTable(); err != nil {
			logger.Warningf("Error migrating Community table: %v", err)
		}
		banRepo := storage.NewBanRepository(storage.DB)
		if err := banRepo.MigrateTable(); err != nil {
			logger.Warningf("Error migrating BanRecord table: %v", err)
		}
		reviewRepo := storage.NewReviewRepository(storage.DB)
		if err := reviewRepo.MigrateTable(); err != nil {
			logger.Warningf("Error migrating ReviewInstance table: %v", err)
		}
		flagRepo := storage.NewFlagRepository(storage.DB)
		if err := flagRepo.MigrateTable(); err != nil {
			logger.Warningf("Error migrating FlagRecord table: %v", err)
		}
		communityStore = communityRepo
		banStore = banRepo
		reviewStore = reviewRepo
		flagStore = flagRepo
	} else {
		logger.Info("Database disabled, using in-memory stores")
		communityStore = NewMemoryCommunityStore()
		banStore = NewMemoryBanStore()
		reviewStore = NewMemoryReviewStore()
		flagStore = NewMemoryFlagStore()
	}
}

// Setup wires the engine from configuration, the selected stores and the
// host platform seams. Call after Initialize and InitRepositories.
func Setup(source ReasonSource, emitter Emitter, selfID int64) {
	cfg := globalConfig.Propagation

	registry = NewCommunityRegistry(communityStore)
	if err := registry.Preload(); err != nil {
		logger.Warningf("Error preloading communities: %v", err)
	}

	ledger = NewIntegrityLedger(registry)
	limiter = NewRateLimiter(cfg.MaxAlerts, time.Duration(cfg.WindowSeconds)*time.Second)
	engine = NewAutoBanEngine(ledger, cfg.AutoBanThreshold)
	resolver := NewReasonResolver(
		source,
		time.Duration(cfg.ReasonTimeoutSeconds)*time.Second,
		time.Duration(cfg.ReasonPollMs)*time.Millisecond,
	)
	workflow = NewReviewWorkflow(reviewStore, banStore, ledger, emitter,
		time.Duration(cfg.ReviewTTLHours)*time.Hour)
	dispatcher = NewDispatcher(registry, ledger, limiter, resolver, engine,
		workflow, banStore, reviewStore, emitter, selfID,
		time.Duration(cfg.DuplicateWindowSeconds)*time.Second)
	flags = NewFlagService(flagStore)
}

// StartBackground launches the periodic sweeps: rate-limit eviction and
// review expiry recovery.
func StartBackground() {
	limiter.StartSweeper(15 * time.Minute)
	workflow.StartSweeper(time.Minute)
}

// Registry returns the community registry.
func Registry() *CommunityRegistry {
	return registry
}

// Ledger returns the integrity ledger.
func Ledger() *IntegrityLedger {
	return ledger
}

// Workflow returns the review workflow.
func Workflow() *ReviewWorkflow {
	return workflow
}

// Dispatch returns the propagation dispatcher.
func Dispatch() *Dispatcher {
	return dispatcher
}

// Flags returns the flag service.
func Flags() *FlagService {
	return flags
}

// Ban returns a single ban record by id, nil when it does not exist.
func Ban(id uint) (*models.BanRecord, error) {
	return banStore.Get(id)
}

// BanHistory returns the full audit trail for a subject, newest first.
func BanHistory(userID int64) ([]*models.BanRecord, error) {
	return banStore.HistoryForUser(userID)
}

// AcceptedBans returns the accepted records for a subject, newest first.
// Used by join alerts when a previously banned user shows up.
func AcceptedBans(userID int64) ([]*models.BanRecord, error) {
	return banStore.AcceptedForUser(userID)
}
