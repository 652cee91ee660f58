package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/votegate/internal/middleware"
	"github.com/xxxsen/votegate/internal/pkg/errcode"
	appErr "github.com/xxxsen/votegate/internal/pkg/errors"
	"github.com/xxxsen/votegate/internal/pkg/response"
)

type errMapping struct {
	err     error
	code    int
	message string
}

var errMappings = []errMapping{
	{appErr.ErrInvalidIdentity, errcode.ErrInvalidIdentity, "a valid email is required"},
	{appErr.ErrNotEligible, errcode.ErrNotEligible, "this email is not on the voter roll"},
	{appErr.ErrAlreadySubmitted, errcode.ErrAlreadySubmitted, "a ballot was already submitted for this email"},
	{appErr.ErrDeliveryFailed, errcode.ErrDeliveryFailed, "the code could not be delivered, try again"},
	{appErr.ErrNoPendingRequest, errcode.ErrNoPendingRequest, "request a code first"},
	{appErr.ErrInvalidOrExpired, errcode.ErrInvalidOrExpired, "the code is invalid or has expired"},
	{appErr.ErrNotAuthenticated, errcode.ErrNotAuthenticated, "verify your email first"},
	{appErr.ErrIncompleteAnswers, errcode.ErrIncompleteAnswers, "all questions must be answered"},
	{appErr.ErrUnauthorized, errcode.ErrUnauthorized, "unauthorized"},
	{appErr.ErrNotFound, errcode.ErrNotFound, "not found"},
	{appErr.ErrInvalid, errcode.ErrInvalid, "invalid request"},
	{appErr.ErrConflict, errcode.ErrConflict, "conflict"},
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get(middleware.ContextRequestIDKey)
	fields := []zap.Field{
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	}
	for _, m := range errMappings {
		if errors.Is(err, m.err) {
			logutil.GetLogger(c.Request.Context()).Info("request rejected", fields...)
			response.Error(c, m.code, m.message)
			return
		}
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed", fields...)
	response.Error(c, errcode.ErrInternal, "internal error")
}

func invalidRequest(c *gin.Context, message string) {
	response.Error(c, errcode.ErrInvalid, message)
}
