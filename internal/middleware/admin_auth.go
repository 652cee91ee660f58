package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/votegate/internal/pkg/errcode"
	"github.com/xxxsen/votegate/internal/pkg/jwt"
	"github.com/xxxsen/votegate/internal/pkg/response"
)

const ContextAdminKey = "admin_user"

func AdminAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Abort(c, errcode.ErrUnauthorized, "missing authorization")
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Abort(c, errcode.ErrUnauthorized, "invalid authorization")
			return
		}
		claims, err := jwt.ParseAdminToken(parts[1], secret)
		if err != nil {
			response.Abort(c, errcode.ErrUnauthorized, "invalid token")
			return
		}
		c.Set(ContextAdminKey, claims.Username)
		c.Next()
	}
}
