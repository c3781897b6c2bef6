// Package handler provides HTTP handlers for API endpoints.
package handler

import (
	"context"
	"net/http"

	"pollbox/internal/domain/poll"
	"pollbox/internal/services"
	"pollbox/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// PollAPI is the slice of the poll service the handlers drive.
type PollAPI interface {
	CreatePoll(ctx context.Context, in services.CreatePollInput) (services.CreatePollResult, error)
	AddVote(ctx context.Context, in services.VoteInput) error
	CloseAndTally(ctx context.Context, closeToken string) (poll.Tally, error)
	Ping(ctx context.Context) error
}

// PollHandler handles the poll lifecycle endpoints.
type PollHandler struct {
	service PollAPI
}

// NewPollHandler creates a poll handler.
func NewPollHandler(service PollAPI) *PollHandler {
	return &PollHandler{service: service}
}

// CreatePoll handles poll creation and returns the voter and moderator tokens.
func (h *PollHandler) CreatePoll(c *gin.Context) {
	var req httpdto.CreatePollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	res, err := h.service.CreatePoll(c.Request.Context(), services.CreatePollInput{
		Question:     req.Question,
		FreeResponse: req.FreeResponse,
		Responses:    req.Responses,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.CreatePollResponse{
		JWT:     res.PollToken,
		Payload: httpdto.NewPollDTO(res.Poll),
		EndJWT:  res.CloseToken,
	})
}

// AddVote records a single vote. The response never reveals running totals.
func (h *PollHandler) AddVote(c *gin.Context) {
	var req httpdto.AddVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	err := h.service.AddVote(c.Request.Context(), services.VoteInput{
		PollJWT:        req.PollJWT,
		CustomResponse: req.CustomResponse,
		ResponseIdx:    req.ResponseIdx,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse())
}

// GetResults closes the poll and returns its tally. Only the first call for a
// poll succeeds.
func (h *PollHandler) GetResults(c *gin.Context) {
	var req httpdto.GetResultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	tally, err := h.service.CloseAndTally(c.Request.Context(), req.EndJWT)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewResultsResponse(tally))
}

func (h *PollHandler) Health(c *gin.Context) {
	if err := h.service.Ping(c.Request.Context()); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
