package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"tododeck/internal/config"
	"tododeck/internal/gate"
	"tododeck/internal/logger"
	"tododeck/internal/pager"
	"tododeck/internal/remote"
	"tododeck/internal/storage"
	"tododeck/internal/todo"
	"tododeck/internal/ui"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Printf("failed to load .env: %v\n", err)
	}

	configPath := config.ResolveConfigPath()
	cfg, err := config.LoadOrCreate(configPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	closeLog, err := setupLogging(cfg)
	if err != nil {
		fmt.Printf("failed to open log: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfg); err != nil {
		logger.ErrorWithStack(err)
		fmt.Printf("error running program: %v\n", err)
		closeLog()
		os.Exit(1)
	}
}

func setupLogging(cfg config.Config) (func(), error) {
	if cfg.LogPath == "" || cfg.LogLevel == "disabled" {
		logger.Init(io.Discard, "disabled")
		return func() {}, nil
	}
	f, err := logger.OpenFile(cfg.LogPath)
	if err != nil {
		return nil, err
	}
	logger.Init(f, cfg.LogLevel)
	return func() { f.Close() }, nil
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := todo.NewStore()
	defer store.Close()

	var opts []pager.Option
	var cache *storage.Store
	if cfg.CachePath != "" {
		var err error
		cache, err = storage.Open(cfg.CachePath)
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		defer cache.Close()

		cursor, ok, err := cache.Restore(store)
		if err != nil {
			log.Warn().Err(err).Msg("ignoring unreadable cache")
		} else if ok {
			opts = append(opts, pager.WithCursor(cursor.Page, cursor.HasMore))
		}
		log.Info().Int("todos", store.Len()).Bool("cursor", ok).Msg("cache restored")
	}

	client, err := remote.New(remote.Options{
		BaseURL:    cfg.Remote.BaseURL,
		PageParam:  cfg.Remote.PageParam,
		LimitParam: cfg.Remote.LimitParam,
		Timeout:    cfg.Remote.Timeout.Duration,
	})
	if err != nil {
		return fmt.Errorf("remote client: %w", err)
	}

	opts = append(opts, pager.WithLogger(logger.Component("pager")))
	if cache != nil {
		opts = append(opts, pager.OnCursor(func(st pager.State) {
			if err := cache.SaveCursor(storage.Cursor{Page: st.Page, HasMore: st.HasMore}); err != nil {
				log.Error().Err(err).Msg("cache cursor write failed")
			}
		}))
	}
	p := pager.New(store, client, cfg.Remote.PageSize, opts...)

	if cache != nil {
		currentCursor := func() storage.Cursor {
			st := p.State()
			return storage.Cursor{Page: st.Page, HasMore: st.HasMore}
		}
		cancel := cache.Mirror(store, currentCursor, func(err error) {
			log.Error().Err(err).Msg("cache write failed")
		})
		defer cancel()
	}

	log.Info().Str("remote", cfg.Remote.BaseURL).Int("page_size", p.PageSize()).Msg("starting")
	return ui.Run(ctx, ui.Deps{
		Store:  store,
		Pager:  p,
		Gate:   gate.New(store, logger.Component("gate")),
		Config: cfg,
		Log:    logger.Component("ui"),
	})
}
