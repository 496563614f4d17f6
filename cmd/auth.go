package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/desertthunder/termsync/internal/server"
	"github.com/desertthunder/termsync/internal/services"
	"github.com/desertthunder/termsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// Auth performs the OAuth2 authorization flow for QuickBooks Online.
//
// Starts a local HTTP server, opens the browser for user authorization, and
// exchanges the auth code for tokens.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	r.applyVerbosity(cmd)

	configPath := cmd.String("config")

	config := r.config
	if config == nil {
		var err error
		if _, statErr := os.Stat(configPath); statErr == nil {
			config, err = shared.LoadConfig(configPath)
			if err != nil {
				r.logger.Warnf("failed to load config, using defaults %v", err)
				config = shared.DefaultConfig()
			}
		} else {
			config = shared.DefaultConfig()
		}
	}

	if config.Credentials.Online.ClientID == "" || config.Credentials.Online.ClientSecret == "" {
		return fmt.Errorf("%w: QuickBooks Online client_id and client_secret must be set in termsync.toml", shared.ErrInvalidArgument)
	}

	onlineService, err := services.NewOnlineService(config.Credentials.Online.Map())
	if err != nil {
		return fmt.Errorf("failed to create QuickBooks Online service: %w", err)
	}

	result, err := r.doOAuth(config, onlineService, "authorization")
	if err != nil {
		return err
	}

	if err := config.Credentials.Online.Update(result.Token); err != nil {
		return fmt.Errorf("failed to update online configuration: %w", err)
	}
	if result.RealmID != "" {
		config.Credentials.Online.RealmID = result.RealmID
	}

	if err := shared.SaveConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	r.config = config

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", configPath)
	r.writePlain("You can now use: termsync compare <file.xlsx> --service online\n")

	return nil
}

// AuthStatus reports whether stored QuickBooks Online credentials still work.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.applyVerbosity(cmd)

	if r.config == nil {
		return fmt.Errorf("%w: no configuration loaded; run 'termsync setup' first", shared.ErrMissingConfig)
	}

	online := r.config.Credentials.Online

	if online.ClientID == "" || online.ClientSecret == "" {
		return r.writePlain("✗ Not configured: client_id and client_secret are missing\n")
	}
	r.writePlain("✓ Client credentials present\n")

	if online.AccessToken == "" && online.RefreshToken == "" {
		return r.writePlain("✗ No stored tokens; run 'termsync auth' to authorize\n")
	}
	r.writePlain("✓ Stored tokens present\n")

	r.logger.Info("probing online registry")

	svc, err := services.NewOnlineService(online.Map())
	if err != nil {
		return fmt.Errorf("failed to create QuickBooks Online service: %w", err)
	}

	if err := svc.Authenticate(ctx); err != nil {
		return r.writePlain("✗ Stored tokens rejected: %v\n", err)
	}

	terms, err := svc.FetchTerms(ctx)
	if err != nil {
		return r.writePlain("✗ Registry unreachable: %v\n", err)
	}

	return r.writePlain("✓ Registry reachable (%d terms)\n", len(terms))
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(config *shared.Config, oauthSrv services.OAuthService, prefix string) (*server.OAuthResult, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := oauthSrv.GetAuthURL(state)
	oauthHandler := server.NewOAuthHandler(oauthSrv.GetOAuthConfig(), state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	serverAddr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server for %s at %v", prefix, serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for QuickBooks %s...\n", prefix)
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}

	return &result, nil
}

// authCommand wires the QuickBooks Online authorization flow.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "auth",
		Usage:  "Authorize access to QuickBooks Online",
		Action: r.Auth,
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Check stored credentials against the registry",
				Action: r.AuthStatus,
			},
		},
	}
}
