package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/toonvote/toonvote/internal/domain"
	apperrors "github.com/toonvote/toonvote/internal/errors"
)

const (
	userIDHeader    = "X-User-ID"
	defaultPageSize = 10
	maxPageSize     = 100
)

// requireUser resolves the caller's identity from the X-User-ID header.
// Identity is established upstream by the gateway; this service only
// validates the shape.
func (s *Server) requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := c.Request().Header.Get(userIDHeader)
		if raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing user identity")
		}
		userID, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid user identity")
		}
		c.Set("userID", userID)
		return next(c)
	}
}

func currentUser(c echo.Context) (uuid.UUID, error) {
	userID, ok := c.Get("userID").(uuid.UUID)
	if !ok {
		return uuid.Nil, apperrors.InternalError("invalid user ID in context", nil)
	}
	return userID, nil
}

func pathID(c echo.Context, name string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, apperrors.ValidationError("invalid ID").WithField(name, raw)
	}
	return id, nil
}

type createProposalRequest struct {
	CandidateWebtoonID int64 `json:"candidateWebtoonId"`
}

func (s *Server) handleCreateProposal(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	targetID, err := pathID(c, "webtoonID")
	if err != nil {
		return err
	}

	var req createProposalRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.CandidateWebtoonID < 1 {
		return apperrors.ValidationError("candidateWebtoonId is required").
			WithField("candidateWebtoonId", req.CandidateWebtoonID)
	}
	if req.CandidateWebtoonID == targetID {
		return apperrors.ValidationError("a webtoon cannot be similar to itself").
			WithField("webtoonId", targetID)
	}

	p, err := s.registry.CreateProposal(c.Request().Context(), userID, targetID, req.CandidateWebtoonID)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateProposal) {
			return apperrors.ConflictError("similar webtoon already proposed").
				WithField("target_webtoon_id", targetID).
				WithField("candidate_webtoon_id", req.CandidateWebtoonID)
		}
		return apperrors.InternalError("failed to create proposal", err)
	}

	if err := c.JSON(http.StatusCreated, map[string]any{"id": p.ID}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleListProposals(c echo.Context) error {
	targetID, err := pathID(c, "webtoonID")
	if err != nil {
		return err
	}

	page, err := queryInt(c, "page", 0)
	if err != nil || page < 0 {
		return apperrors.ValidationError("invalid page").WithField("page", c.QueryParam("page"))
	}
	size, err := queryInt(c, "size", defaultPageSize)
	if err != nil || size < 1 || size > maxPageSize {
		return apperrors.ValidationError("invalid size").WithField("size", c.QueryParam("size"))
	}

	result, err := s.registry.List(c.Request().Context(), targetID, page, size)
	if err != nil {
		if errors.Is(err, domain.ErrCacheUnavailable) {
			return apperrors.UnavailableError("vote counts temporarily unavailable", err)
		}
		return apperrors.InternalError("failed to list proposals", err)
	}

	if err := c.JSON(http.StatusOK, result); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleDeleteProposal(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	proposalID, err := pathID(c, "proposalID")
	if err != nil {
		return err
	}

	if err := s.registry.DeleteProposal(c.Request().Context(), userID, proposalID); err != nil {
		if errors.Is(err, domain.ErrProposalNotFound) {
			return apperrors.NotFoundError("proposal not found").WithField("proposal_id", proposalID)
		}
		return apperrors.InternalError("failed to delete proposal", err)
	}

	return c.NoContent(http.StatusNoContent)
}

type voteRequest struct {
	Type string `json:"type"`
}

func (s *Server) handleVote(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	proposalID, err := pathID(c, "proposalID")
	if err != nil {
		return err
	}

	var req voteRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	voteType, err := domain.ParseVoteType(req.Type)
	if err != nil {
		return apperrors.ValidationError("invalid vote type").WithField("type", req.Type)
	}

	err = s.coordinator.Vote(c.Request().Context(), userID, proposalID, voteType)
	switch {
	case err == nil:
		return c.JSON(http.StatusCreated, map[string]string{"status": "ok"})
	case errors.Is(err, domain.ErrProposalNotFound):
		return apperrors.NotFoundError("proposal not found").WithField("proposal_id", proposalID)
	case errors.Is(err, domain.ErrAlreadyVoted):
		return apperrors.ConflictError("already voted").WithField("proposal_id", proposalID)
	case errors.Is(err, domain.ErrCacheUnavailable):
		return apperrors.UnavailableError("vote processing temporarily unavailable", err)
	default:
		return apperrors.InternalError("failed to cast vote", err).WithField("proposal_id", proposalID)
	}
}

func (s *Server) handleCancelVote(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	proposalID, err := pathID(c, "proposalID")
	if err != nil {
		return err
	}

	err = s.coordinator.Cancel(c.Request().Context(), userID, proposalID)
	switch {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, domain.ErrProposalNotFound):
		return apperrors.NotFoundError("proposal not found").WithField("proposal_id", proposalID)
	case errors.Is(err, domain.ErrVoteNotFound):
		return apperrors.NotFoundError("no vote to cancel").WithField("proposal_id", proposalID)
	case errors.Is(err, domain.ErrCacheUnavailable):
		return apperrors.UnavailableError("vote processing temporarily unavailable", err)
	default:
		return apperrors.InternalError("failed to cancel vote", err).WithField("proposal_id", proposalID)
	}
}

func (s *Server) handleVoteStatus(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	proposalID, err := pathID(c, "proposalID")
	if err != nil {
		return err
	}

	vote, err := s.coordinator.Status(c.Request().Context(), userID, proposalID)
	if err != nil {
		if errors.Is(err, domain.ErrProposalNotFound) {
			return apperrors.NotFoundError("proposal not found").WithField("proposal_id", proposalID)
		}
		return apperrors.InternalError("failed to load vote status", err).WithField("proposal_id", proposalID)
	}

	var voteType *domain.VoteType
	if vote != nil {
		voteType = &vote.Type
	}
	if err := c.JSON(http.StatusOK, map[string]any{"type": voteType}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func queryInt(c echo.Context, name string, defaultValue int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(raw)
}
