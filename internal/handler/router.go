package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/votegate/internal/middleware"
	"github.com/xxxsen/votegate/internal/pkg/response"
)

type RouterDeps struct {
	Ballot          *BallotHandler
	Admin           *AdminHandler
	Session         *middleware.Session
	AdminSecret     []byte
	RateLimitWindow time.Duration
	RateLimitKeys   int
	Metrics         http.Handler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/health", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})
	if deps.Metrics != nil {
		api.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	limit := middleware.RateLimit(deps.RateLimitWindow, deps.RateLimitKeys)
	ballot := api.Group("/ballot")
	ballot.Use(deps.Session.Load())
	ballot.GET("/questions", deps.Ballot.Questions)
	ballot.GET("/session", deps.Ballot.Session)
	ballot.POST("/otp", limit, deps.Ballot.RequestCode)
	ballot.POST("/otp/verify", limit, deps.Ballot.VerifyCode)
	ballot.POST("/submit", deps.Ballot.Submit)

	api.POST("/admin/login", limit, deps.Admin.Login)
	admin := api.Group("/admin")
	admin.Use(middleware.AdminAuth(deps.AdminSecret))
	admin.GET("/stats", deps.Admin.Stats)
	admin.GET("/identities", deps.Admin.ListIdentities)
	admin.POST("/identities", deps.Admin.AddIdentities)
	admin.DELETE("/identities/:email", deps.Admin.DeleteIdentity)
	admin.GET("/identities/:email/codes", deps.Admin.CodeLedger)
	admin.GET("/submissions", deps.Admin.Submissions)
	admin.POST("/reset", deps.Admin.Reset)
}
