package server

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/teemow/ticktick-mcp/internal/instrumentation"
	"github.com/teemow/ticktick-mcp/internal/logging"
	"github.com/teemow/ticktick-mcp/internal/ticktick"
)

// ServerContext holds the shared state for the MCP server
type ServerContext struct {
	ctx             context.Context
	cancel          context.CancelFunc
	logger          *slog.Logger
	serviceCfg      ticktick.ServiceConfig
	credentialsFile string
	services        map[string]*ticktick.Service // Maps account name to TickTick service
	metrics         *instrumentation.Metrics
	auditLogger     *instrumentation.AuditLogger
	mu              sync.RWMutex
	shutdown        bool
}

// NewServerContext creates a new server context
//
// credentialsFile, when non-empty, overrides the credential path for the
// default account. Other accounts always resolve to their file under the
// user config directory.
func NewServerContext(ctx context.Context, serviceCfg ticktick.ServiceConfig, credentialsFile string, logger *slog.Logger) (*ServerContext, error) {
	if logger == nil {
		logger = slog.Default()
	}
	shutdownCtx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:             shutdownCtx,
		cancel:          cancel,
		logger:          logger,
		serviceCfg:      serviceCfg,
		credentialsFile: credentialsFile,
		services:        make(map[string]*ticktick.Service),
		shutdown:        false,
	}

	// Try to create the default service, but don't fail if credentials are
	// missing. Services are lazily initialized when first needed.
	sc.ServiceForAccount(ticktick.DefaultAccount)

	return sc, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Logger returns the server logger
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// ServiceForAccount returns the TickTick service for a specific account
// Creates and caches the service if it doesn't exist yet
// Returns nil if the account has no stored credentials
func (sc *ServerContext) ServiceForAccount(account string) *ticktick.Service {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	// Check if service already exists
	if svc, ok := sc.services[account]; ok {
		return svc
	}

	path := sc.credentialsFile
	if path == "" || account != ticktick.DefaultAccount {
		var err error
		path, err = ticktick.CredentialsPath(account)
		if err != nil {
			sc.logger.Warn("cannot resolve credentials path",
				logging.Account(account), logging.Err(err))
			return nil
		}
	}

	// Try to create the service if credentials exist
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	store, err := ticktick.NewTokenStore(path, sc.logger)
	if err != nil {
		sc.logger.Warn("failed to load TickTick credentials",
			logging.Account(account), logging.Err(err))
		return nil
	}

	svc := ticktick.NewService(store, sc.serviceCfg, sc.logger)
	sc.services[account] = svc
	return svc
}

// Service returns the TickTick service for the default account
func (sc *ServerContext) Service() *ticktick.Service {
	return sc.ServiceForAccount(ticktick.DefaultAccount)
}

// SetServiceForAccount sets the TickTick service for a specific account
func (sc *ServerContext) SetServiceForAccount(account string, svc *ticktick.Service) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.services[account] = svc
}

// SetService sets the TickTick service for the default account
func (sc *ServerContext) SetService(svc *ticktick.Service) {
	sc.SetServiceForAccount(ticktick.DefaultAccount, svc)
}

// Metrics returns the metrics recorder, or nil when instrumentation is disabled
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetMetrics sets the metrics recorder
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
}

// AuditLogger returns the audit logger, or nil when audit logging is disabled
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// SetAuditLogger sets the audit logger
func (sc *ServerContext) SetAuditLogger(a *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = a
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
