package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/votegate/internal/model"
	"github.com/xxxsen/votegate/internal/pkg/jwt"
)

const ContextAuthKey = "auth_context"

// Session keeps a voter's AuthContext in a signed cookie between requests.
type Session struct {
	secret []byte
	name   string
	ttl    time.Duration
	secure bool
}

func NewSession(secret []byte, cookieName string, ttl time.Duration, secure bool) *Session {
	return &Session{secret: secret, name: cookieName, ttl: ttl, secure: secure}
}

// Load puts the caller's AuthContext on the request. A missing, expired or
// tampered cookie yields an anonymous context.
func (s *Session) Load() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextAuthKey, s.read(c))
		c.Next()
	}
}

func (s *Session) read(c *gin.Context) model.AuthContext {
	raw, err := c.Cookie(s.name)
	if err != nil || raw == "" {
		return model.Anonymous()
	}
	claims, err := jwt.ParseBallotToken(raw, s.secret)
	if err != nil {
		logutil.GetLogger(c.Request.Context()).Debug("drop invalid session cookie", zap.Error(err))
		return model.Anonymous()
	}
	ac := model.AuthContext{Stage: model.AuthStage(claims.Stage), Email: claims.Email}
	if !ac.IsPending() && !ac.IsAuthenticated() {
		return model.Anonymous()
	}
	return ac
}

// Save persists ac for the next request. An anonymous context clears the cookie.
func (s *Session) Save(c *gin.Context, ac model.AuthContext) error {
	c.Set(ContextAuthKey, ac)
	c.SetSameSite(http.SameSiteLaxMode)
	if !ac.IsPending() && !ac.IsAuthenticated() {
		c.SetCookie(s.name, "", -1, "/", "", s.secure, true)
		return nil
	}
	token, err := jwt.GenerateBallotToken(string(ac.Stage), ac.Email, s.secret, s.ttl)
	if err != nil {
		return err
	}
	c.SetCookie(s.name, token, int(s.ttl.Seconds()), "/", "", s.secure, true)
	return nil
}

func AuthContextFrom(c *gin.Context) model.AuthContext {
	value, ok := c.Get(ContextAuthKey)
	if !ok {
		return model.Anonymous()
	}
	ac, ok := value.(model.AuthContext)
	if !ok {
		return model.Anonymous()
	}
	return ac
}
