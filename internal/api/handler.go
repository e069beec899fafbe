package api

import (
	"log/slog"

	"github.com/shaiso/Outreach/internal/orchestrator"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	orch   *orchestrator.Orchestrator
	auth   *Authenticator
	logger *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Orchestrator *orchestrator.Orchestrator

	// JWTSecret — ключ HS256 для проверки bearer токенов.
	// Пустой ключ включает dev-режим: пользователь берётся из X-User-ID.
	JWTSecret string

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		orch:   cfg.Orchestrator,
		auth:   NewAuthenticator(cfg.JWTSecret),
		logger: logger,
	}
}
