package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/votegate/internal/middleware"
	"github.com/xxxsen/votegate/internal/model"
	"github.com/xxxsen/votegate/internal/pkg/response"
	"github.com/xxxsen/votegate/internal/service"
)

type BallotHandler struct {
	ballot    *service.BallotService
	questions *service.QuestionService
	session   *middleware.Session
}

func NewBallotHandler(ballot *service.BallotService, questions *service.QuestionService, session *middleware.Session) *BallotHandler {
	return &BallotHandler{ballot: ballot, questions: questions, session: session}
}

type sessionResponse struct {
	Stage        model.AuthStage `json:"stage"`
	Email        string          `json:"email,omitempty"`
	HasSubmitted bool            `json:"has_submitted"`
}

type requestCodeRequest struct {
	Email string `json:"email"`
}

type verifyCodeRequest struct {
	Code string `json:"code"`
}

type submitRequest struct {
	Answers map[string]string `json:"answers"`
}

func (h *BallotHandler) Questions(c *gin.Context) {
	response.Success(c, gin.H{"questions": h.questions.List()})
}

func (h *BallotHandler) Session(c *gin.Context) {
	ac := middleware.AuthContextFrom(c)
	submitted, err := h.ballot.Status(c.Request.Context(), ac)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, sessionResponse{Stage: ac.Stage, Email: ac.Email, HasSubmitted: submitted})
}

func (h *BallotHandler) RequestCode(c *gin.Context) {
	var req requestCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "invalid request")
		return
	}
	next, err := h.ballot.Issue(c.Request.Context(), req.Email)
	h.finish(c, next, false, err)
}

func (h *BallotHandler) VerifyCode(c *gin.Context) {
	var req verifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "invalid request")
		return
	}
	next, err := h.ballot.Verify(c.Request.Context(), middleware.AuthContextFrom(c), req.Code)
	h.finish(c, next, false, err)
}

func (h *BallotHandler) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "invalid request")
		return
	}
	next, err := h.ballot.Submit(c.Request.Context(), middleware.AuthContextFrom(c), req.Answers)
	h.finish(c, next, err == nil, err)
}

// finish stores the context an operation handed back, whatever its outcome.
func (h *BallotHandler) finish(c *gin.Context, next model.AuthContext, submitted bool, opErr error) {
	if err := h.session.Save(c, next); err != nil {
		handleError(c, err)
		return
	}
	if opErr != nil {
		handleError(c, opErr)
		return
	}
	response.Success(c, sessionResponse{Stage: next.Stage, Email: next.Email, HasSubmitted: submitted})
}
