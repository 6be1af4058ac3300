package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"tfm-tracker/internal/config"
	"tfm-tracker/internal/domain"
	fxmodules "tfm-tracker/internal/fx"
	"tfm-tracker/internal/reconcile"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.ClientModule,
		fx.Invoke(runClient),
	).Run()
}

func runClient(
	lc fx.Lifecycle,
	rec *reconcile.Reconciler,
	cfg *config.Config,
	logger zerolog.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			source, err := rec.Load(ctx)
			if err != nil {
				return fmt.Errorf("failed to load document: %w", err)
			}
			logger.Info().Str("source", string(source)).Bool("connected", rec.Connected()).Msg("client ready")

			if cfg.ImportFile != "" {
				if err := importFile(ctx, rec, cfg.ImportFile, logger); err != nil {
					return err
				}
			}
			return rec.Start(cfg.PollInterval)
		},
		OnStop: func(ctx context.Context) error {
			return rec.Stop()
		},
	})
}

func importFile(ctx context.Context, rec *reconcile.Reconciler, path string, logger zerolog.Logger) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read import file: %w", err)
	}
	var legacy domain.Document
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return fmt.Errorf("failed to parse import file: %w", err)
	}

	report, err := rec.Import(ctx, legacy)
	if errors.Is(err, reconcile.ErrNotPropagated) {
		logger.Warn().Err(err).Msg("import applied locally only; the server copy was not updated")
	} else if err != nil {
		return fmt.Errorf("failed to import %s: %w", path, err)
	}

	logger.Info().
		Str("file", path).
		Strs("new_players", report.NewPlayers).
		Strs("merged_players", report.MergedPlayers).
		Int("games", report.Games).
		Msg("legacy data imported")
	return nil
}
