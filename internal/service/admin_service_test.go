package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/votegate/internal/config"
	"github.com/xxxsen/votegate/internal/model"
	appErr "github.com/xxxsen/votegate/internal/pkg/errors"
	"github.com/xxxsen/votegate/internal/pkg/jwt"
	"github.com/xxxsen/votegate/internal/pkg/password"
	"github.com/xxxsen/votegate/internal/repo"
	dbtest "github.com/xxxsen/votegate/internal/testutil"
)

var adminSecret = []byte("test-secret")

func newAdminFixture(t *testing.T) (*AdminService, *ballotFixture) {
	t.Helper()
	conn, driver := dbtest.OpenTestDB(t)
	hash, err := password.Hash("admin123")
	require.NoError(t, err)

	f := &ballotFixture{
		sender:     newFakeSender(),
		clock:      &clock{now: time.Now()},
		identities: repo.NewIdentityRepo(conn, driver),
		codes:      repo.NewOTPRepo(conn, driver),
		subs:       repo.NewSubmissionRepo(conn, driver),
	}
	f.svc = NewBallotService(f.identities, f.codes, f.subs, f.sender, BallotOptions{EligibilityCheckEnabled: true}, WithClock(f.clock.Now))
	admin := NewAdminService(conn, f.identities, f.codes, f.subs, config.AdminConfig{
		Username:        "admin",
		PasswordHash:    hash,
		TokenTTLMinutes: 10,
	}, adminSecret, config.DefaultQuestions())
	return admin, f
}

func TestAdmin_Login(t *testing.T) {
	admin, _ := newAdminFixture(t)
	ctx := context.Background()

	token, err := admin.Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	claims, err := jwt.ParseAdminToken(token, adminSecret)
	require.NoError(t, err)
	require.Equal(t, "admin", claims.Username)

	_, err = admin.Login(ctx, "admin", "wrong")
	require.ErrorIs(t, err, appErr.ErrUnauthorized)
	_, err = admin.Login(ctx, "root", "admin123")
	require.ErrorIs(t, err, appErr.ErrUnauthorized)
}

func TestAdmin_AddIdentitiesNormalizes(t *testing.T) {
	admin, f := newAdminFixture(t)
	ctx := context.Background()

	n, err := admin.AddIdentities(ctx, []model.Identity{
		{Email: " Ana@X.com ", DisplayName: " Ana "},
		{Email: "ana@x.com"},
		{Email: "not-an-email"},
		{Email: "bob@x.com"},
	})
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	ok, err := f.identities.Exists(ctx, "ana@x.com")
	require.NoError(t, err)
	require.True(t, ok)

	n, err = admin.AddIdentities(ctx, []model.Identity{{Email: "nope"}})
	require.NoError(t, err)
	require.Zero(t, n)

	require.NoError(t, admin.DeleteIdentity(ctx, "BOB@x.com"))
	require.ErrorIs(t, admin.DeleteIdentity(ctx, "bob@x.com"), appErr.ErrNotFound)
	require.ErrorIs(t, admin.DeleteIdentity(ctx, " "), appErr.ErrInvalid)
}

func TestAdmin_StatsAndRoster(t *testing.T) {
	admin, f := newAdminFixture(t)
	ctx := context.Background()

	stats, err := admin.Stats(ctx)
	require.NoError(t, err)
	require.Zero(t, stats.Participation)

	_, err = admin.AddIdentities(ctx, []model.Identity{{Email: "a@x.com"}, {Email: "b@x.com"}, {Email: "c@x.com"}})
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, model.Authenticated("a@x.com"), map[string]string{"answer1": "Si", "answer2": "No"})
	require.NoError(t, err)

	stats, err = admin.Stats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 3, stats.TotalIdentities)
	require.EqualValues(t, 1, stats.TotalSubmissions)
	require.EqualValues(t, 33, stats.Participation)
	require.Equal(t, map[string]int64{"Si": 1}, stats.Tallies["answer1"])
	require.Equal(t, map[string]int64{"No": 1}, stats.Tallies["answer2"])

	roster, err := admin.Roster(ctx)
	require.NoError(t, err)
	require.Len(t, roster, 3)
	submitted := 0
	for _, entry := range roster {
		if entry.HasSubmitted {
			submitted++
			require.Equal(t, "a@x.com", entry.Email)
		}
	}
	require.Equal(t, 1, submitted)

	list, err := admin.Submissions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestAdmin_ResetReopensBallot(t *testing.T) {
	admin, f := newAdminFixture(t)
	ctx := context.Background()

	_, err := admin.AddIdentities(ctx, []model.Identity{{Email: "a@x.com"}, {Email: "b@x.com"}})
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, model.Authenticated("a@x.com"), validAnswers)
	require.NoError(t, err)
	pending, err := f.svc.Issue(ctx, "b@x.com")
	require.NoError(t, err)
	code := f.sender.last("b@x.com")

	result, err := admin.Reset(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, result.SubmissionsDeleted)
	require.EqualValues(t, 1, result.CodesRetired)

	// outstanding codes no longer verify
	_, err = f.svc.Verify(ctx, pending, code)
	require.ErrorIs(t, err, appErr.ErrInvalidOrExpired)

	// a voter who had submitted may start again
	_, err = f.svc.Issue(ctx, "a@x.com")
	require.NoError(t, err)
}

func TestAdmin_CodeLedger(t *testing.T) {
	admin, f := newAdminFixture(t)
	ctx := context.Background()

	_, err := admin.CodeLedger(ctx, "  ")
	require.ErrorIs(t, err, appErr.ErrInvalid)

	ledger, err := admin.CodeLedger(ctx, "a@x.com")
	require.NoError(t, err)
	require.Empty(t, ledger.Codes)
	require.Nil(t, ledger.Latest)
	require.Zero(t, ledger.Active)

	_, err = admin.AddIdentities(ctx, []model.Identity{{Email: "a@x.com"}})
	require.NoError(t, err)
	_, err = f.svc.Issue(ctx, "a@x.com")
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	_, err = f.svc.Issue(ctx, "a@x.com")
	require.NoError(t, err)

	ledger, err = admin.CodeLedger(ctx, "A@x.com")
	require.NoError(t, err)
	require.Equal(t, "a@x.com", ledger.Email)
	require.Len(t, ledger.Codes, 2)
	require.Equal(t, 1, ledger.Codes[0].Used)
	require.Equal(t, 0, ledger.Codes[1].Used)
	require.EqualValues(t, 1, ledger.Active)
	require.NotNil(t, ledger.Latest)
	require.Equal(t, ledger.Codes[1].ID, ledger.Latest.ID)
}
