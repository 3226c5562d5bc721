package main

import (
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"raja-mantri-server/internal/api"
	"raja-mantri-server/internal/auth"
	"raja-mantri-server/internal/broadcast"
	"raja-mantri-server/internal/config"
	database "raja-mantri-server/internal/db"
	"raja-mantri-server/internal/room"
	"raja-mantri-server/internal/session"
	"raja-mantri-server/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("database init failed")
	}

	sessions, err := session.NewRegistry()
	if err != nil {
		log.Fatal().Err(err).Msg("session registry init failed")
	}

	dispatcher := broadcast.NewDispatcher(log.Logger)
	coord := room.NewCoordinator(store.New(db), sessions, dispatcher, room.Config{
		IdleRoomTimeout: cfg.IdleRoomTimeout,
		InactiveAfter:   cfg.InactiveAfter,
		SessionTTL:      cfg.SessionTTL,
		AdvanceDelay:    cfg.AdvanceDelay,
		SweepInterval:   cfg.SweepInterval,
	}, log.Logger)
	defer coord.Close()

	if err := coord.WarmUp(); err != nil {
		log.Error().Err(err).Msg("room warm-up failed")
	}
	coord.StartSweeper()

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	server := api.NewServer(coord, sessions, tokens, dispatcher, cfg, log.Logger)

	log.Info().Str("addr", cfg.Addr).Msg("listening")
	log.Fatal().Err(http.ListenAndServe(cfg.Addr, server.Router())).Msg("server stopped")
}
