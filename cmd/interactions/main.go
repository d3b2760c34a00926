package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	interactions "github.com/goliatone/go-interactions"
	"github.com/goliatone/go-interactions/core"
	"github.com/goliatone/go-interactions/security"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newCLI().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCLI() *cli.App {
	app := cli.NewApp()
	app.Name = "interactions"
	app.Usage = "Serve and manage application command interactions"
	app.Flags = []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "JSON config file", EnvVars: []string{envPrefix + "_CONFIG"}},
	}
	app.Commands = []*cli.Command{
		{
			Name:        "serve",
			Usage:       "Serve the interactions endpoint",
			Description: "Verifies and dispatches inbound interactions and delivers deferred follow-ups.",
			Action:      serve,
		},
		{
			Name:   "sync",
			Usage:  "Publish the registered commands",
			Action: syncCommands,
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "guild", Usage: "guild id; global commands when empty"},
				&cli.BoolFlag{Name: "dry-run", Usage: "compute the plan without publishing"},
				&cli.BoolFlag{Name: "force", Usage: "publish even when nothing changed"},
			},
		},
		{
			Name:   "commands",
			Usage:  "Print the registered commands",
			Action: listCommands,
		},
		{
			Name:      "seal",
			Usage:     "Encrypt a secret with the app key",
			ArgsUsage: "<value>",
			Action:    sealValue,
		},
	}
	return app
}

type runtime struct {
	env    env
	logger glog.Logger
	app    *interactions.App
	close  func()
}

func setup(cctx *cli.Context) (*runtime, error) {
	e, err := loadEnv()
	if err != nil {
		return nil, err
	}
	logger := glog.NewLogger(
		glog.WithName("interactions"),
		glog.WithLevel(e.LogLevel),
		glog.WithLoggerTypeJSON(),
	)

	provider := core.NewCfgxConfigProvider(fileLoader{path: cctx.String("config")})
	runtimeCfg := e.runtimeConfig()
	resolved, err := core.ResolveConfig(cctx.Context, provider, nil, runtimeCfg)
	if err != nil {
		return nil, err
	}

	stores, closeStores, err := openStores(cctx.Context, resolved.Database)
	if err != nil {
		return nil, err
	}
	opts := []interactions.Option{
		interactions.WithLoggerProvider(logger),
		interactions.WithConfigProvider(provider),
	}
	if stores != nil {
		opts = append(opts, interactions.WithStoreFactory(stores))
	}
	app, err := interactions.NewWithContext(cctx.Context, runtimeCfg, opts...)
	if err != nil {
		closeStores()
		return nil, err
	}
	if err := registerBuiltins(app); err != nil {
		closeStores()
		return nil, err
	}
	return &runtime{env: e, logger: app.Logger(), app: app, close: closeStores}, nil
}

func serve(cctx *cli.Context) error {
	rt, err := setup(cctx)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, stop := signal.NotifyContext(cctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := rt.app.Server()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := rt.app.RunWorker(ctx); err != nil {
			rt.logger.Error("follow-up worker stopped", "error", err)
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		rt.logger.Info("listening", "addr", server.Addr, "path", rt.app.Config().Server.Path)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}
	stop()
	rt.logger.Info("shutting down")
	shutdownErr := rt.app.Shutdown(context.WithoutCancel(cctx.Context), server)
	wg.Wait()
	return errors.Join(err, shutdownErr)
}

func syncCommands(cctx *cli.Context) error {
	rt, err := setup(cctx)
	if err != nil {
		return err
	}
	defer rt.close()

	guildID := cctx.String("guild")
	if guildID == "" {
		guildID = rt.app.Config().Sync.GuildID
	}
	result, err := rt.app.SyncCommands(cctx.Context, interactions.SyncOptions{
		GuildID: guildID,
		DryRun:  cctx.Bool("dry-run"),
		Force:   cctx.Bool("force"),
	})
	if err != nil {
		return err
	}
	state := "published"
	switch {
	case result.DryRun && result.Skipped:
		state = "unchanged (dry run)"
	case result.DryRun:
		state = "would publish (dry run)"
	case result.Skipped:
		state = "unchanged"
	}
	scope := "global"
	if result.Scope.GuildID != "" {
		scope = "guild " + result.Scope.GuildID
	}
	fmt.Fprintf(cctx.App.Writer, "%s: %d commands %s (%s)\n", scope, len(result.Commands), state, result.Fingerprint)
	return nil
}

func listCommands(cctx *cli.Context) error {
	rt, err := setup(cctx)
	if err != nil {
		return err
	}
	defer rt.close()

	for _, entry := range rt.app.Commands().List() {
		fmt.Fprintf(cctx.App.Writer, "%-20s %-10s %s\n", entry.Key.Name, entry.Key.Type, entry.Spec.Description)
	}
	return nil
}

func sealValue(cctx *cli.Context) error {
	value := strings.TrimSpace(cctx.Args().First())
	if value == "" {
		return cli.Exit("seal: a value is required", 2)
	}
	e, err := loadEnv()
	if err != nil {
		return err
	}
	if strings.TrimSpace(e.AppKey) == "" {
		return cli.Exit("seal: "+envPrefix+"_APP_KEY is required", 2)
	}
	provider, err := security.NewAppKeySecretProviderFromString(e.AppKey)
	if err != nil {
		return err
	}
	sealed, err := security.SealString(cctx.Context, provider, value)
	if err != nil {
		return err
	}
	fmt.Fprintln(cctx.App.Writer, sealed)
	return nil
}
