package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	// ProgressLocation is the calendar used to bucket attempts into days
	ProgressLocation *time.Location
	DefaultTimeout   time.Duration
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	config    ServiceManagerConfig

	// Service instances
	accountService  AccountService
	quizService     QuizService
	attemptService  AttemptService
	progressService ProgressService
	trainerService  TrainerService
	reportService   ReportService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		config:    config,
	}
}

// NewDefaultServiceManager buckets progress by UTC days
func NewDefaultServiceManager(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) ServiceManager {
	return NewServiceManager(repo, logger, validator, publisher, ServiceManagerConfig{
		ProgressLocation: time.UTC,
		DefaultTimeout:   30 * time.Second,
	})
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}
	if sm.repo == nil {
		return fmt.Errorf("failed to initialize services: repository is required")
	}

	sm.logger.Info("Initializing service manager")

	sm.accountService = NewAccountService(sm.repo, sm.logger, sm.validator)
	sm.quizService = NewQuizService(sm.repo, sm.logger, sm.validator)
	sm.progressService = NewProgressService(sm.repo, sm.logger, sm.config.ProgressLocation)
	sm.attemptService = NewAttemptService(sm.repo, sm.logger, sm.validator, sm.progressService, sm.publisher)
	sm.trainerService = NewTrainerService(sm.repo, sm.logger, sm.progressService)
	sm.reportService = NewReportService(sm.repo, sm.logger, sm.trainerService)

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")
	return nil
}

// Service getters
func (sm *serviceManager) Account() AccountService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.accountService
}

func (sm *serviceManager) Quiz() QuizService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.quizService
}

func (sm *serviceManager) Attempt() AttemptService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.attemptService
}

func (sm *serviceManager) Progress() ProgressService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.progressService
}

func (sm *serviceManager) Trainer() TrainerService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.trainerService
}

func (sm *serviceManager) Report() ReportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.reportService
}

func (sm *serviceManager) mustBeInitialized() {
	if !sm.initialized {
		panic("service manager not initialized")
	}
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	ctx, cancel := sm.withTimeout(ctx)
	defer cancel()
	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}
	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.publisher != nil {
		if err := sm.publisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")
	return nil
}

func (sm *serviceManager) withTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if sm.config.DefaultTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, sm.config.DefaultTimeout)
}
