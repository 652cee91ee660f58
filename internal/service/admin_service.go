package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/votegate/internal/config"
	"github.com/xxxsen/votegate/internal/model"
	appErr "github.com/xxxsen/votegate/internal/pkg/errors"
	"github.com/xxxsen/votegate/internal/pkg/jwt"
	"github.com/xxxsen/votegate/internal/pkg/password"
	"github.com/xxxsen/votegate/internal/repo"
)

type AdminService struct {
	db         repo.DBTX
	identities *repo.IdentityRepo
	codes      *repo.OTPRepo
	subs       *repo.SubmissionRepo
	cfg        config.AdminConfig
	secret     []byte
	questions  []config.Question
}

func NewAdminService(db repo.DBTX, identities *repo.IdentityRepo, codes *repo.OTPRepo, subs *repo.SubmissionRepo, cfg config.AdminConfig, secret []byte, questions []config.Question) *AdminService {
	return &AdminService{
		db:         db,
		identities: identities,
		codes:      codes,
		subs:       subs,
		cfg:        cfg,
		secret:     secret,
		questions:  questions,
	}
}

// Login exchanges admin credentials for a bearer token. The token's audience keeps it
// apart from voter session tokens signed with the same secret.
func (s *AdminService) Login(ctx context.Context, username, plainPassword string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.Username)) == 1
	passErr := password.Compare(s.cfg.PasswordHash, plainPassword)
	if !userOK || passErr != nil {
		logutil.GetLogger(ctx).Warn("admin login rejected", zap.String("username", username))
		return "", appErr.ErrUnauthorized
	}
	ttl := time.Duration(s.cfg.TokenTTLMinutes) * time.Minute
	return jwt.GenerateAdminToken(username, s.secret, ttl)
}

func (s *AdminService) Stats(ctx context.Context) (*model.Stats, error) {
	totalIdentities, err := s.identities.Count(ctx)
	if err != nil {
		return nil, err
	}
	totalSubmissions, err := s.subs.Count(ctx)
	if err != nil {
		return nil, err
	}
	stats := &model.Stats{
		TotalIdentities:  totalIdentities,
		TotalSubmissions: totalSubmissions,
		Tallies:          make(map[string]map[string]int64, len(s.questions)),
	}
	if totalIdentities > 0 {
		stats.Participation = int64(math.Round(float64(totalSubmissions) / float64(totalIdentities) * 100))
	}
	for i, q := range s.questions {
		if i >= len(repo.AnswerColumns) {
			break
		}
		tally, err := s.subs.Tally(ctx, repo.AnswerColumns[i])
		if err != nil {
			return nil, err
		}
		stats.Tallies[q.Key] = tally
	}
	return stats, nil
}

func (s *AdminService) Roster(ctx context.Context) ([]model.RosterEntry, error) {
	return s.identities.ListRoster(ctx)
}

// AddIdentities normalizes and stores roster entries. Entries without an '@' are
// skipped; emails already present are left untouched.
func (s *AdminService) AddIdentities(ctx context.Context, items []model.Identity) (int64, error) {
	now := time.Now().Unix()
	seen := make(map[string]struct{}, len(items))
	valid := make([]model.Identity, 0, len(items))
	for _, item := range items {
		email := NormalizeEmail(item.Email)
		if !strings.Contains(email, "@") {
			continue
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		valid = append(valid, model.Identity{
			Email:       email,
			DisplayName: strings.TrimSpace(item.DisplayName),
			Ctime:       now,
		})
	}
	if len(valid) == 0 {
		return 0, nil
	}
	return s.identities.CreateIgnore(ctx, valid)
}

func (s *AdminService) DeleteIdentity(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return appErr.ErrInvalid
	}
	return s.identities.Delete(ctx, email)
}

func (s *AdminService) Submissions(ctx context.Context) ([]model.Submission, error) {
	return s.subs.List(ctx)
}

// CodeLedger is the issuance history of one identity. Code values are never exposed.
type CodeLedger struct {
	Email  string               `json:"email"`
	Active int64                `json:"active"`
	Latest *model.OneTimeCode   `json:"latest,omitempty"`
	Codes  []*model.OneTimeCode `json:"codes"`
}

func (s *AdminService) CodeLedger(ctx context.Context, email string) (*CodeLedger, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, appErr.ErrInvalid
	}
	codes, err := s.codes.ListByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	active, err := s.codes.CountActive(ctx, email, time.Now().Unix())
	if err != nil {
		return nil, err
	}
	if codes == nil {
		codes = []*model.OneTimeCode{}
	}
	ledger := &CodeLedger{Email: email, Active: active, Codes: codes}
	latest, err := s.codes.LatestByEmail(ctx, email)
	switch {
	case err == nil:
		ledger.Latest = latest
	case !appErr.IsNotFound(err):
		return nil, err
	}
	return ledger, nil
}

type ResetResult struct {
	SubmissionsDeleted int64 `json:"submissions_deleted"`
	CodesRetired       int64 `json:"codes_retired"`
}

// Reset deletes every submission and retires every outstanding code in one transaction.
func (s *AdminService) Reset(ctx context.Context) (*ResetResult, error) {
	result := &ResetResult{}
	err := repo.RunInTx(ctx, s.db, func(tx repo.DBTX) error {
		deleted, err := s.subs.WithTx(tx).DeleteAll(ctx)
		if err != nil {
			return fmt.Errorf("delete submissions: %w", err)
		}
		retired, err := s.codes.WithTx(tx).ConsumeAll(ctx)
		if err != nil {
			return fmt.Errorf("retire codes: %w", err)
		}
		result.SubmissionsDeleted = deleted
		result.CodesRetired = retired
		return nil
	})
	if err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Warn("ballot reset",
		zap.Int64("submissions_deleted", result.SubmissionsDeleted),
		zap.Int64("codes_retired", result.CodesRetired),
	)
	return result, nil
}
