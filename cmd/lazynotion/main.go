package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rebeliceyang/lazynotion/internal/app"
	"github.com/rebeliceyang/lazynotion/internal/config"
	"github.com/rebeliceyang/lazynotion/internal/db/connection"
	"github.com/rebeliceyang/lazynotion/internal/db/docstore"
	"github.com/rebeliceyang/lazynotion/internal/filter"
	"github.com/rebeliceyang/lazynotion/internal/history"
	"github.com/rebeliceyang/lazynotion/internal/logger"
	"github.com/rebeliceyang/lazynotion/internal/notion"
	"github.com/rebeliceyang/lazynotion/internal/optioncache"
	"github.com/rebeliceyang/lazynotion/internal/secrets"
	"github.com/rebeliceyang/lazynotion/internal/store"
	"github.com/rebeliceyang/lazynotion/internal/views"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "login" {
		if err := login(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// login stores an API token in the keyring for a database id, or as the
// default token when none is given
func login(args []string) error {
	workspace := ""
	if len(args) > 0 {
		workspace = args[0]
	}

	fmt.Print("Notion integration token: ")
	token, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("empty token")
	}

	if err := secrets.NewTokenStore().Save(workspace, token); err != nil {
		return err
	}
	fmt.Println("Token saved to keyring")
	return nil
}

func run(args []string) error {
	cfg, err := config.LoadWithFlags(args)
	if err != nil {
		return err
	}

	logFile := cfg.Log.File
	if logFile == "" {
		logFile = cfg.CachePath(config.AppName + ".log")
	}
	if err := logger.Init(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   logFile,
	}); err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()
	log := logger.Get()

	if err := os.MkdirAll(cfg.Cache.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	ctx := context.Background()
	querier, database, cleanup, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := []store.Option{
		store.WithLogger(log),
		store.WithDatabase(database),
		store.WithNegation(cfg.Filter.EnableNegation),
		store.WithFilterTree(filter.NewTree(filter.WithMaxDepth(cfg.Filter.MaxDepth))),
	}

	options, err := optioncache.NewStore(cfg.CachePath("options.db"))
	if err != nil {
		log.Warn("option cache unavailable, using memory", "error", err)
	} else {
		defer func() { _ = options.Close() }()
		opts = append(opts, store.WithOptionCache(options))
	}

	if cfg.History.Enabled {
		hist, err := history.NewStore(cfg.CachePath("history.db"))
		if err != nil {
			log.Warn("query history unavailable", "error", err)
		} else {
			defer func() { _ = hist.Close() }()
			if n, err := hist.Prune(cfg.History.MaxEntries); err != nil {
				log.Warn("failed to prune history", "error", err)
			} else if n > 0 {
				log.Debug("pruned history", "entries", n)
			}
			opts = append(opts, store.WithHistory(hist))
		}
	}

	var viewsManager *views.Manager
	if configDir, err := config.GetConfigPath(); err == nil {
		if err := os.MkdirAll(configDir, 0o755); err == nil {
			viewsManager, err = views.NewManager(configDir)
			if err != nil {
				log.Warn("saved views unavailable", "error", err)
			}
		}
	}

	s := store.New(querier, opts...)
	model := app.New(cfg, s, viewsManager)

	programOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.UI.MouseEnabled {
		programOpts = append(programOpts, tea.WithMouseCellMotion())
	}

	p := tea.NewProgram(model, programOpts...)
	stop := model.Watch(p.Send)
	defer stop()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}

// openBackend builds the querier for the configured backend
func openBackend(ctx context.Context, cfg *config.Config, log *slog.Logger) (notion.Querier, string, func(), error) {
	switch cfg.Backend.Kind {
	case config.BackendPostgres:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		pool, err := connection.NewPool(connectCtx, connection.Config{
			DSN:      cfg.Backend.PostgresDSN,
			MaxConns: int32(cfg.Backend.PoolSize),
		})
		if err != nil {
			return nil, "", nil, err
		}
		return docstore.New(pool, cfg.Backend.Table, cfg.General.PageSize*10, log), cfg.Backend.Table, pool.Close, nil

	default:
		token, err := secrets.NewTokenStore().ResolveToken(cfg.Notion.Token, cfg.Notion.DatabaseID)
		if errors.Is(err, secrets.ErrTokenNotFound) {
			// fall back to the default token saved without a database id
			token, err = secrets.NewTokenStore().Get("")
		}
		if err != nil {
			if errors.Is(err, secrets.ErrTokenNotFound) {
				return nil, "", nil, errors.New("no API token: set notion.token, NOTION_SECRET or run 'lazynotion login'")
			}
			return nil, "", nil, err
		}

		client, err := notion.NewClient(notion.Config{
			BaseURL:    cfg.Notion.BaseURL,
			Token:      token,
			DatabaseID: cfg.Notion.DatabaseID,
			Version:    cfg.Notion.Version,
			PageSize:   cfg.General.PageSize,
			MaxPages:   cfg.Notion.MaxPages,
			Timeout:    time.Duration(cfg.Notion.TimeoutMs) * time.Millisecond,
		}, log)
		if err != nil {
			return nil, "", nil, err
		}
		return client, cfg.Notion.DatabaseID, func() {}, nil
	}
}
