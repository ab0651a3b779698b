package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints (no auth required)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Proposal routes
	s.echo.POST("/api/webtoons/:webtoonID/similars", s.handleCreateProposal, s.requireUser)
	s.echo.GET("/api/webtoons/:webtoonID/similars", s.handleListProposals)
	s.echo.DELETE("/api/similars/:proposalID", s.handleDeleteProposal, s.requireUser)

	// Vote routes
	s.echo.POST("/api/similars/:proposalID/votes", s.handleVote, s.requireUser)
	s.echo.DELETE("/api/similars/:proposalID/votes", s.handleCancelVote, s.requireUser)
	s.echo.GET("/api/similars/:proposalID/votes/me", s.handleVoteStatus, s.requireUser)

	// Live snapshot feed
	s.echo.GET("/ws/similars", s.handleWebSocket)
}
