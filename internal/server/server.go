// Package server exposes the HTTP and WebSocket surface.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/toonvote/toonvote/internal/config"
	"github.com/toonvote/toonvote/internal/domain"
	apperrors "github.com/toonvote/toonvote/internal/errors"
	"github.com/toonvote/toonvote/internal/websocket"
)

// registryService is the proposal-facing surface of the voting core.
type registryService interface {
	CreateProposal(ctx context.Context, creatorID uuid.UUID, targetID, candidateID int64) (*domain.Proposal, error)
	DeleteProposal(ctx context.Context, requesterID uuid.UUID, proposalID int64) error
	List(ctx context.Context, targetID int64, page, size int) (domain.Page[domain.ProposalView], error)
}

// coordinatorService is the vote-facing surface of the voting core.
type coordinatorService interface {
	Vote(ctx context.Context, userID uuid.UUID, proposalID int64, voteType domain.VoteType) error
	Cancel(ctx context.Context, userID uuid.UUID, proposalID int64) error
	Status(ctx context.Context, userID uuid.UUID, proposalID int64) (*domain.Vote, error)
}

// pinger is the minimal health-check surface of a backing store.
type pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	echo        *echo.Echo
	config      *config.Config
	registry    registryService
	coordinator coordinatorService
	hub         *websocket.Hub
	postgres    pinger
	redis       pinger
	startTime   time.Time
}

func NewServer(
	cfg *config.Config,
	registry registryService,
	coordinator coordinatorService,
	hub *websocket.Hub,
	postgres pinger,
	redis pinger,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:        e,
		config:      cfg,
		registry:    registry,
		coordinator: coordinator,
		hub:         hub,
		postgres:    postgres,
		redis:       redis,
		startTime:   time.Now(),
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
