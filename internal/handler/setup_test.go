package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/votegate/internal/config"
	"github.com/xxxsen/votegate/internal/handler"
	"github.com/xxxsen/votegate/internal/metrics"
	"github.com/xxxsen/votegate/internal/middleware"
	"github.com/xxxsen/votegate/internal/model"
	"github.com/xxxsen/votegate/internal/pkg/password"
	"github.com/xxxsen/votegate/internal/repo"
	"github.com/xxxsen/votegate/internal/service"
	dbtest "github.com/xxxsen/votegate/internal/testutil"
)

const testSecret = "test-secret"

type codeBox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (b *codeBox) SendCode(ctx context.Context, to, code string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.codes[to] = code
	return nil
}

func (b *codeBox) get(to string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.codes[to]
}

type testEnv struct {
	router http.Handler
	codes  *codeBox
}

func setupRouter(t *testing.T, roster ...string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, driver := dbtest.OpenTestDB(t)
	identityRepo := repo.NewIdentityRepo(db, driver)
	otpRepo := repo.NewOTPRepo(db, driver)
	submissionRepo := repo.NewSubmissionRepo(db, driver)

	items := make([]model.Identity, 0, len(roster))
	for _, email := range roster {
		items = append(items, model.Identity{Email: email, Ctime: time.Now().Unix()})
	}
	if len(items) > 0 {
		_, err := identityRepo.CreateIgnore(context.Background(), items)
		require.NoError(t, err)
	}

	hash, err := password.Hash("admin123")
	require.NoError(t, err)

	codes := &codeBox{codes: make(map[string]string)}
	reg := prometheus.NewRegistry()
	questions := config.DefaultQuestions()
	ballotService := service.NewBallotService(identityRepo, otpRepo, submissionRepo, codes, service.BallotOptions{
		EligibilityCheckEnabled: true,
		CodeTTL:                 5 * time.Minute,
		Questions:               questions,
	}, service.WithRecorder(metrics.NewCollector(reg)))
	questionService, err := service.NewQuestionService(questions)
	require.NoError(t, err)
	adminService := service.NewAdminService(db, identityRepo, otpRepo, submissionRepo, config.AdminConfig{
		Username:        "admin",
		PasswordHash:    hash,
		TokenTTLMinutes: 60,
	}, []byte(testSecret), questions)
	reg.MustRegister(metrics.NewStatsCollector(adminService, time.Second))

	session := middleware.NewSession([]byte(testSecret), "votegate_session", time.Hour, false)
	deps := handler.RouterDeps{
		Ballot:      handler.NewBallotHandler(ballotService, questionService, session),
		Admin:       handler.NewAdminHandler(adminService),
		Session:     session,
		AdminSecret: []byte(testSecret),
		Metrics:     metrics.Handler(reg),
	}

	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.CORS(nil))
	handler.RegisterRoutes(engine.Group("/api/v1"), deps)
	return &testEnv{router: engine, codes: codes}
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// client keeps cookies between calls the way a browser would.
type client struct {
	t       *testing.T
	env     *testEnv
	cookies map[string]*http.Cookie
	bearer  string
}

func (e *testEnv) client(t *testing.T) *client {
	return &client{t: t, env: e, cookies: make(map[string]*http.Cookie)}
}

func (c *client) do(method, path string, body interface{}, out interface{}) envelope {
	c.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	resp := httptest.NewRecorder()
	c.env.router.ServeHTTP(resp, req)
	require.Equal(c.t, http.StatusOK, resp.Code)

	for _, cookie := range resp.Result().Cookies() {
		if cookie.MaxAge < 0 || cookie.Value == "" {
			delete(c.cookies, cookie.Name)
			continue
		}
		c.cookies[cookie.Name] = cookie
	}

	var env envelope
	require.NoError(c.t, json.Unmarshal(resp.Body.Bytes(), &env))
	if out != nil && env.Code == 0 {
		require.NoError(c.t, json.Unmarshal(env.Data, out))
	}
	return env
}
