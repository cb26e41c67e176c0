package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/desertthunder/tempo/internal/auth"
	"github.com/desertthunder/tempo/internal/repositories"
	"github.com/desertthunder/tempo/internal/server"
	"github.com/desertthunder/tempo/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve wires the credential store, token store, and proxy together and
// runs the HTTP server until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	// Proxied routes cannot work without the provider credential pair.
	if err := config.Validate(); err != nil {
		return err
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}
	defer db.Close()
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	repo, err := repositories.NewCredentialsRepository(db)
	if err != nil {
		return err
	}

	store := auth.NewStore(config.Credentials.Spotify, repo, shared.WithLogger(r.logger, "component", "auth"))
	proxy := server.NewProxy(store, r.httpClient, shared.WithLogger(r.logger, "component", "proxy"))
	app := server.NewApp(config, store, proxy, r.logger, "")

	router := server.NewBasicRouter()
	router.Use(
		server.RequestLogger(shared.WithLogger(r.logger, "component", "http")),
		server.CORS(config.Client),
	)
	app.Register(router)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.Serve(ctx, config.Server.Addr(), router, r.logger)
}

// Setup writes a starter config file and initializes the credential store.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")

	if err := shared.CreateConfigFile(path); err != nil {
		r.logger.Warnf("config not created: %v", err)
	} else {
		r.writePlain("✓ Wrote %s\n", path)
	}

	config := r.loadConfig(cmd)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}
	defer db.Close()

	if _, err := repositories.NewCredentialsRepository(db); err != nil {
		return err
	}

	r.writePlain("✓ Credential store ready at %s\n", config.Database.Path)
	r.writePlain("\nFill in [credentials.spotify] in %s, then run: tempo serve\n", path)

	return nil
}
