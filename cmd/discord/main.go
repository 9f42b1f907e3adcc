// cmd/discord/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/keshon/buildinfo"
	"github.com/keshon/tagwarden/internal/command"
	"github.com/keshon/tagwarden/internal/command/admin"
	"github.com/keshon/tagwarden/internal/command/filter"
	"github.com/keshon/tagwarden/internal/command/tags"
	"github.com/keshon/tagwarden/internal/config"
	"github.com/keshon/tagwarden/internal/discord"
	"github.com/keshon/tagwarden/internal/fetch"
	"github.com/keshon/tagwarden/internal/logger"
	"github.com/keshon/tagwarden/internal/paginator"
	"github.com/keshon/tagwarden/internal/permission"
	"github.com/keshon/tagwarden/internal/status"
	"github.com/keshon/tagwarden/internal/storage/backend"
	"github.com/keshon/tagwarden/pkg/cmd"
	"github.com/keshon/tagwarden/pkg/jobmgr"
)

const appName = "tagwarden"

func main() {
	if err := run(); err != nil {
		slog.Error("bot exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	closer, err := logger.Setup(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer closer.Close()
	log := slog.Default()
	info := buildinfo.Get()
	log.Info("starting bot", "app", appName, "version", info.Version, "commit", info.Commit,
		"go", info.GoVersion, "platform", info.Platform, "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := backend.Open(cfg.StorageDriver, cfg.StoragePath, log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	dg, err := discord.NewSession(cfg.DiscordToken)
	if err != nil {
		return err
	}

	jobs := jobmgr.NewManager(func(msg string) { log.Debug("job", "event", msg) })
	defer jobs.StopAll()

	messenger := discord.NewMessenger(dg, jobs, log)
	menus := paginator.NewManager(discord.NewMenuSurface(dg, messenger),
		paginator.WithIdleTimeout(cfg.MenuIdleTimeout),
		paginator.WithLogger(log.With("component", "paginator")),
	)

	fetcher, err := fetch.New(fetch.Options{
		Proxy:    cfg.FetchProxy,
		Timeout:  cfg.FetchTimeout,
		MaxBytes: cfg.FetchMaxBytes,
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}

	gate := permission.NewGate(&permission.RoleResolver{
		Members:     discord.NewMembers(dg),
		Roles:       store,
		DeveloperID: cfg.DeveloperID,
	}, log)

	deps := &command.Deps{
		Store:     store,
		Gate:      gate,
		Messenger: messenger,
		Menus:     menus,
		Fetcher:   fetcher,
		Profile:   discord.NewProfile(dg),
		Log:       log,
		PerPage:   cfg.MenuPerPage,
	}

	registry := cmd.NewRegistry()
	mws := []cmd.Middleware{
		command.WithGuildOnly(),
		command.WithCommandLogger(store, log),
		command.WithPermissionLevel(gate),
	}
	for _, register := range []func(*cmd.Registry, *command.Deps, ...cmd.Middleware) error{
		tags.Register,
		filter.Register,
		admin.Register,
	} {
		if err := register(registry, deps, mws...); err != nil {
			return fmt.Errorf("register commands: %w", err)
		}
	}

	bot := discord.NewBot(dg, cfg.CommandPrefix, registry, deps, menus)

	errCh := make(chan error, 2)
	if cfg.StatusAddr != "" {
		srv := status.New(cfg.StatusAddr, func() status.Snapshot {
			return status.Snapshot{Connected: bot.Connected(), ActiveMenus: menus.Active(), Jobs: jobs.List()}
		}, log)
		go func() {
			if err := srv.Run(ctx); err != nil {
				errCh <- fmt.Errorf("status server: %w", err)
			}
		}()
	}
	go func() { errCh <- bot.Run(ctx) }()

	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	case err := <-errCh:
		stop()
		if err != nil {
			return err
		}
	}

	log.Info("discord bot exited cleanly")
	return nil
}
