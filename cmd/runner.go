package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/termsync/internal/models"
	"github.com/desertthunder/termsync/internal/reader"
	"github.com/desertthunder/termsync/internal/repositories"
	"github.com/desertthunder/termsync/internal/services"
	"github.com/desertthunder/termsync/internal/shared"
	"github.com/desertthunder/termsync/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	registry   string
	service    services.TermService
	api        *services.APIService
	engine     *tasks.TermEngine
	db         *sql.DB
	history    *repositories.History
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Service    services.TermService
	API        *services.APIService
	DB         *sql.DB
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration.
//
// A nil Service is built from the configured registry target; a nil DB
// disables run history.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.API == nil {
		opts.API = services.NewAPIService(opts.Config.Credentials.Desktop.BridgeURL, nil)
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		api:        opts.API,
		db:         opts.DB,
		logger:     opts.Logger,
		output:     opts.Output,
	}

	r.registry = opts.Config.Registry.Target
	if r.registry == "" {
		r.registry = models.RegistryDesktop
	}

	if opts.DB != nil {
		r.history = repositories.NewHistory(opts.DB)
	}

	r.service = opts.Service
	if r.service == nil {
		svc, err := r.buildService(r.registry)
		if err != nil {
			r.logger.Warnf("failed to create %s service %v", r.registry, err)
		} else {
			r.service = svc
		}
	}

	r.engine = tasks.NewTermEngine(r.registry, tasks.ReaderFunc(reader.ReadTerms), r.service, r.runHistory())
	r.engine.SetLogger(r.logger)

	return r
}

// SetLogger replaces the runner logger and rewires it into the engine.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
	if r.engine != nil {
		r.engine.SetLogger(logger)
	}
}

// buildService constructs the term service for a registry target.
func (r *Runner) buildService(registry string) (services.TermService, error) {
	switch registry {
	case models.RegistryDesktop:
		svc := services.NewDesktopService(r.config.Credentials.Desktop.Map())
		svc.SetLogger(r.logger)
		if rps := r.config.Credentials.Desktop.RateLimit; rps > 0 {
			svc.SetRateLimit(rps)
		}
		return svc, nil
	case models.RegistryOnline:
		svc, err := services.NewOnlineService(r.config.Credentials.Online.Map())
		if err != nil {
			return nil, fmt.Errorf("failed to create QuickBooks Online service: %w", err)
		}
		svc.SetLogger(r.logger)
		svc.SetTokenRefreshCallback(func(token *oauth2.Token) {
			if err := r.saveTokens(token); err != nil {
				r.logger.Warnf("failed to persist refreshed tokens %v", err)
			}
		})
		return svc, nil
	default:
		return nil, fmt.Errorf("%w: unknown registry '%s' (must be 'desktop' or 'online')", shared.ErrInvalidArgument, registry)
	}
}

// resolveEngine returns the engine and service for a registry target.
//
// An empty target or the configured target reuses the runner's engine; any
// other target gets a fresh engine around a freshly built service.
func (r *Runner) resolveEngine(registry string) (*tasks.TermEngine, services.TermService, error) {
	if registry == "" || registry == r.registry {
		if r.service == nil {
			return nil, nil, fmt.Errorf("%w: %s service not initialized", shared.ErrServiceUnavailable, r.registry)
		}
		return r.engine, r.service, nil
	}

	svc, err := r.buildService(registry)
	if err != nil {
		return nil, nil, err
	}

	engine := tasks.NewTermEngine(registry, tasks.ReaderFunc(reader.ReadTerms), svc, r.runHistory())
	engine.SetLogger(r.logger)

	return engine, svc, nil
}

// runHistory adapts the nilable history pointer for the engine. A typed nil
// pointer would make the interface value non-nil, so it is mapped away here.
func (r *Runner) runHistory() tasks.RunHistory {
	if r.history == nil {
		return nil
	}
	return r.history
}

// closeService ends the registry session when the service holds one.
func (r *Runner) closeService(ctx context.Context, svc services.TermService) {
	closer, ok := svc.(interface{ Close(context.Context) error })
	if !ok {
		return
	}
	if err := closer.Close(ctx); err != nil {
		r.logger.Warnf("failed to close %s session %v", svc.Name(), err)
	}
}

// saveTokens writes OAuth token material into the config and persists it.
//
// Called after interactive authorization and from the token refresh callback.
// An empty configPath updates the in-memory config only.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("config is nil")
	}

	if err := r.config.Credentials.Online.Update(token); err != nil {
		return fmt.Errorf("failed to update online configuration: %w", err)
	}

	if r.configPath == "" {
		return nil
	}

	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// authGuidance appends a reauthorization hint to token errors.
func (r *Runner) authGuidance(err error, svc services.TermService) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, shared.ErrTokenExpired) || errors.Is(err, shared.ErrNoRefreshToken) || errors.Is(err, shared.ErrRefreshFailed) {
		return fmt.Errorf("%w; run 'termsync auth' to authorize %s", err, svc.Name())
	}
	return err
}

// applyVerbosity raises the log level when the root --verbose flag is set.
func (r *Runner) applyVerbosity(cmd *cli.Command) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		compareCommand, syncCommand, termsCommand, runsCommand, authCommand, setupCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
