package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/votegate/internal/pkg/errcode"
)

func adminClient(t *testing.T, env *testEnv) *client {
	t.Helper()
	admin := env.client(t)
	var login struct {
		Token string `json:"token"`
	}
	require.Zero(t, admin.do(http.MethodPost, "/api/v1/admin/login", map[string]string{"username": "admin", "password": "admin123"}, &login).Code)
	require.NotEmpty(t, login.Token)
	admin.bearer = login.Token
	return admin
}

func TestAdminHandlers_RequireToken(t *testing.T) {
	env := setupRouter(t)
	anon := env.client(t)

	resp := anon.do(http.MethodGet, "/api/v1/admin/stats", nil, nil)
	require.Equal(t, errcode.ErrUnauthorized, resp.Code)

	resp = anon.do(http.MethodPost, "/api/v1/admin/login", map[string]string{"username": "admin", "password": "nope"}, nil)
	require.Equal(t, errcode.ErrUnauthorized, resp.Code)

	// only tokens minted by admin login pass
	anon.bearer = "not-a-token"
	resp = anon.do(http.MethodPost, "/api/v1/admin/reset", nil, nil)
	require.Equal(t, errcode.ErrUnauthorized, resp.Code)
}

func TestAdminHandlers_RosterStatsReset(t *testing.T) {
	env := setupRouter(t)
	admin := adminClient(t, env)

	var added struct {
		Added int64 `json:"added"`
	}
	body := map[string]interface{}{"identities": []map[string]string{
		{"email": "A@x.com", "display_name": "Ana"},
		{"email": "b@x.com"},
		{"email": "broken"},
	}}
	require.Zero(t, admin.do(http.MethodPost, "/api/v1/admin/identities", body, &added).Code)
	require.EqualValues(t, 2, added.Added)

	voter := env.client(t)
	require.Zero(t, voter.do(http.MethodPost, "/api/v1/ballot/otp", map[string]string{"email": "a@x.com"}, nil).Code)
	require.Zero(t, voter.do(http.MethodPost, "/api/v1/ballot/otp/verify", map[string]string{"code": env.codes.get("a@x.com")}, nil).Code)
	answers := map[string]interface{}{"answers": map[string]string{"answer1": "Si", "answer2": "No"}}
	require.Zero(t, voter.do(http.MethodPost, "/api/v1/ballot/submit", answers, nil).Code)

	var ledger struct {
		Active int64                    `json:"active"`
		Codes  []map[string]interface{} `json:"codes"`
	}
	require.Zero(t, admin.do(http.MethodGet, "/api/v1/admin/identities/a@x.com/codes", nil, &ledger).Code)
	require.Len(t, ledger.Codes, 1)
	require.Zero(t, ledger.Active)
	require.NotContains(t, ledger.Codes[0], "code")

	var stats struct {
		TotalIdentities  int64                       `json:"total_identities"`
		TotalSubmissions int64                       `json:"total_submissions"`
		Participation    int64                       `json:"participation"`
		Tallies          map[string]map[string]int64 `json:"tallies"`
	}
	require.Zero(t, admin.do(http.MethodGet, "/api/v1/admin/stats", nil, &stats).Code)
	require.EqualValues(t, 2, stats.TotalIdentities)
	require.EqualValues(t, 1, stats.TotalSubmissions)
	require.EqualValues(t, 50, stats.Participation)
	require.EqualValues(t, 1, stats.Tallies["answer1"]["Si"])

	var roster struct {
		Identities []struct {
			Email        string `json:"email"`
			HasSubmitted bool   `json:"has_submitted"`
		} `json:"identities"`
	}
	require.Zero(t, admin.do(http.MethodGet, "/api/v1/admin/identities", nil, &roster).Code)
	require.Len(t, roster.Identities, 2)

	var subs struct {
		Submissions []struct {
			Email string `json:"email"`
		} `json:"submissions"`
	}
	require.Zero(t, admin.do(http.MethodGet, "/api/v1/admin/submissions", nil, &subs).Code)
	require.Len(t, subs.Submissions, 1)
	require.Equal(t, "a@x.com", subs.Submissions[0].Email)

	var reset struct {
		SubmissionsDeleted int64 `json:"submissions_deleted"`
	}
	require.Zero(t, admin.do(http.MethodPost, "/api/v1/admin/reset", nil, &reset).Code)
	require.EqualValues(t, 1, reset.SubmissionsDeleted)

	require.Zero(t, voter.do(http.MethodPost, "/api/v1/ballot/otp", map[string]string{"email": "a@x.com"}, nil).Code)

	require.Zero(t, admin.do(http.MethodDelete, "/api/v1/admin/identities/b@x.com", nil, nil).Code)
	resp := admin.do(http.MethodDelete, "/api/v1/admin/identities/b@x.com", nil, nil)
	require.Equal(t, errcode.ErrNotFound, resp.Code)
}
