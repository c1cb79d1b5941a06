package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harun/onion/internal/config"
	"github.com/harun/onion/internal/logger"
	"github.com/harun/onion/internal/tracing"
	"github.com/harun/onion/pkg/agent"
	"github.com/harun/onion/pkg/coretools"
	"github.com/harun/onion/pkg/history"
	"github.com/harun/onion/pkg/toolexecutor"
)

// app holds everything a command needs to run tasks for one agent.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	recorder history.Recorder
	tools    *toolexecutor.ToolExecutor
	agent    *agent.Agent
}

// loadConfig loads the config file and applies the global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	if agentName != "" {
		cfg.Agent.Name = agentName
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   true,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
	})
}

func openRecorder(cfg *config.Config) (history.Recorder, error) {
	return history.Open(history.StoreConfig{
		Backend: cfg.History.Backend,
		Dir:     cfg.History.Dir,
	}, cfg.Agent.Name)
}

func newToolExecutor(cfg *config.Config) (*toolexecutor.ToolExecutor, error) {
	exec := toolexecutor.New()
	if err := coretools.RegisterCoreTools(exec, coretools.Options{
		Enabled:       cfg.Tools.Enabled,
		WorkspaceRoot: cfg.Tools.WorkspaceRoot,
	}); err != nil {
		return nil, err
	}
	return exec, nil
}

// newApp wires the full agent from configuration. The caller must call close.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if errs := config.NewValidator().ValidateConfig(cfg); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}

	log, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := tracing.InitOpenTelemetry("onion"); err != nil {
		log.Warn().Err(err).Msg("OpenTelemetry initialization failed, spans disabled")
	}

	a := &app{cfg: cfg, log: log}

	a.recorder, err = openRecorder(cfg)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	a.tools, err = newToolExecutor(cfg)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	gateway, err := agent.NewGateway(ctx, agent.ProviderConfig{
		Provider:    cfg.Model.Provider,
		Model:       cfg.Model.Model,
		APIKey:      cfg.Model.APIKey,
		BaseURL:     cfg.Model.BaseURL,
		Temperature: cfg.Model.Temperature,
		MaxTokens:   cfg.Model.MaxTokens,
		MaxRetries:  cfg.Model.MaxRetries,
		Timeout:     time.Duration(cfg.Model.Timeout) * time.Second,
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to create model gateway: %w", err)
	}

	a.agent, err = agent.New(agent.Config{
		Name:          cfg.Agent.Name,
		Gateway:       gateway,
		Tools:         a.tools,
		Recorder:      a.recorder,
		SystemPrompt:  cfg.Agent.SystemPrompt,
		MaxIterations: cfg.Agent.MaxIterations,
		ToolTimeout:   time.Duration(cfg.Tools.Timeout) * time.Second,
		WorkingDir:    cfg.Tools.WorkspaceRoot,
		Logger:        log.GetZerolog(),
	})
	if err != nil {
		a.close()
		return nil, err
	}

	log.Debug().
		Str("agent", cfg.Agent.Name).
		Str("provider", cfg.Model.Provider).
		Str("model", cfg.Model.Model).
		Str("history", cfg.History.Backend).
		Strs("tools", a.tools.ListTools()).
		Msg("Agent ready")

	return a, nil
}

func (a *app) close() {
	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			a.log.Warn().Err(err).Msg("Failed to close history")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tracing.ShutdownOpenTelemetry(shutdownCtx); err != nil {
		a.log.Warn().Err(err).Msg("Failed to flush traces")
	}

	_ = a.log.Close()
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
