package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"quaver/internal/command"
	corecmd "quaver/internal/command/core"
	musiccmd "quaver/internal/command/music"
	"quaver/internal/config"
	"quaver/internal/discord"
	"quaver/internal/logger"
	"quaver/internal/storage"
	"quaver/internal/version"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logger.Init(logger.Config{Output: cfg.LogOutput, Level: cfg.LogLevel, File: cfg.LogFile})
	log.Info().Str("version", version.Version).Msgf("starting %s", version.AppName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		log.Fatal().Err(err).Msg("open storage")
	}
	defer store.Close()

	bot, err := discord.NewBot(cfg, store)
	if err != nil {
		log.Fatal().Err(err).Msg("create bot")
	}

	command.Register(musiccmd.New(),
		command.WithGuildOnly(),
		command.WithCommandLogger(),
	)
	command.Register(&corecmd.AboutCommand{},
		command.WithCommandLogger(),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := bot.Run(ctx); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("shutting down")
		cancel()
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("bot stopped with error")
		}
		cancel()
	}

	log.Info().Msg("bot exited")
}
