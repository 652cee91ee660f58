package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/votegate/internal/config"
	"github.com/xxxsen/votegate/internal/metrics"
	"github.com/xxxsen/votegate/internal/model"
	appErr "github.com/xxxsen/votegate/internal/pkg/errors"
	"github.com/xxxsen/votegate/internal/repo"
)

const defaultCodeTTL = 5 * time.Minute

type BallotOptions struct {
	EligibilityCheckEnabled bool
	CodeTTL                 time.Duration
	Questions               []config.Question
}

type BallotOption func(*BallotService)

func WithClock(now func() time.Time) BallotOption {
	return func(s *BallotService) {
		s.now = now
	}
}

func WithRecorder(rec metrics.Recorder) BallotOption {
	return func(s *BallotService) {
		s.metrics = rec
	}
}

// BallotService runs the issue -> verify -> submit flow. It holds no per-caller
// state: every call takes the caller's AuthContext and returns the next one.
type BallotService struct {
	identities *repo.IdentityRepo
	codes      *repo.OTPRepo
	subs       *repo.SubmissionRepo
	sender     CodeSender
	opts       BallotOptions
	now        func() time.Time
	metrics    metrics.Recorder
}

func NewBallotService(identities *repo.IdentityRepo, codes *repo.OTPRepo, subs *repo.SubmissionRepo, sender CodeSender, opts BallotOptions, extra ...BallotOption) *BallotService {
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = defaultCodeTTL
	}
	if len(opts.Questions) != len(repo.AnswerColumns) {
		opts.Questions = config.DefaultQuestions()
	}
	s := &BallotService{
		identities: identities,
		codes:      codes,
		subs:       subs,
		sender:     sender,
		opts:       opts,
		now:        time.Now,
		metrics:    metrics.Nop{},
	}
	for _, fn := range extra {
		fn(s)
	}
	return s
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Issue sends a fresh code to the identity and moves the caller to pending.
// A failed delivery still leaves the new code committed and earlier codes retired.
func (s *BallotService) Issue(ctx context.Context, identityInput string) (model.AuthContext, error) {
	email, err := s.issue(ctx, identityInput)
	s.metrics.RecordIssue(err)
	if err != nil {
		return model.Anonymous(), err
	}
	return model.Pending(email), nil
}

func (s *BallotService) issue(ctx context.Context, identityInput string) (string, error) {
	email := NormalizeEmail(identityInput)
	if email == "" {
		return "", appErr.ErrInvalidIdentity
	}
	if s.opts.EligibilityCheckEnabled {
		ok, err := s.identities.Exists(ctx, email)
		if err != nil {
			return "", fmt.Errorf("check eligibility: %w", err)
		}
		if !ok {
			return "", appErr.ErrNotEligible
		}
	}
	submitted, err := s.subs.ExistsByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("check submission: %w", err)
	}
	if submitted {
		return "", appErr.ErrAlreadySubmitted
	}
	code, err := newCode()
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	now := s.now()
	item := &model.OneTimeCode{
		ID:        newID(),
		Email:     email,
		Code:      code,
		Used:      0,
		Ctime:     now.Unix(),
		ExpiresAt: now.Add(s.opts.CodeTTL).Unix(),
	}
	if err := s.codes.Replace(ctx, item); err != nil {
		return "", fmt.Errorf("store code: %w", err)
	}
	if err := s.sender.SendCode(ctx, email, code); err != nil {
		logutil.GetLogger(ctx).Error("send code failed", zap.String("email", email), zap.Error(err))
		return "", fmt.Errorf("%w: %v", appErr.ErrDeliveryFailed, err)
	}
	logutil.GetLogger(ctx).Info("code issued", zap.String("email", email))
	return email, nil
}

// Verify checks code against the caller's pending identity and, on a match,
// moves the caller to authenticated. A matched code is spent even if the
// identity turns out to have submitted already.
func (s *BallotService) Verify(ctx context.Context, ac model.AuthContext, code string) (model.AuthContext, error) {
	next, err := s.verify(ctx, ac, code)
	s.metrics.RecordVerify(err)
	return next, err
}

func (s *BallotService) verify(ctx context.Context, ac model.AuthContext, code string) (model.AuthContext, error) {
	if !ac.IsPending() {
		return model.Anonymous(), appErr.ErrNoPendingRequest
	}
	if code == "" {
		return ac, appErr.ErrInvalidOrExpired
	}
	if err := s.codes.Consume(ctx, ac.Email, code, s.now().Unix()); err != nil {
		if appErr.IsNotFound(err) {
			return ac, appErr.ErrInvalidOrExpired
		}
		return ac, fmt.Errorf("consume code: %w", err)
	}
	submitted, err := s.subs.ExistsByEmail(ctx, ac.Email)
	if err != nil {
		return model.Anonymous(), fmt.Errorf("check submission: %w", err)
	}
	if submitted {
		return model.Anonymous(), appErr.ErrAlreadySubmitted
	}
	return model.Authenticated(ac.Email), nil
}

// Submit records the caller's answers. Whether the identity already submitted is
// decided by the submission insert itself, never by a prior lookup.
func (s *BallotService) Submit(ctx context.Context, ac model.AuthContext, answers map[string]string) (model.AuthContext, error) {
	next, err := s.submit(ctx, ac, answers)
	s.metrics.RecordSubmit(err)
	return next, err
}

func (s *BallotService) submit(ctx context.Context, ac model.AuthContext, answers map[string]string) (model.AuthContext, error) {
	if !ac.IsAuthenticated() {
		return ac, appErr.ErrNotAuthenticated
	}
	values, err := s.collectAnswers(answers)
	if err != nil {
		return ac, err
	}
	item := &model.Submission{
		ID:      newID(),
		Email:   ac.Email,
		Answer1: values[0],
		Answer2: values[1],
		Ctime:   s.now().Unix(),
	}
	if err := s.subs.Create(ctx, item); err != nil {
		if appErr.IsConflict(err) {
			logutil.GetLogger(ctx).Warn("duplicate submission rejected", zap.String("email", ac.Email))
			return model.Anonymous(), appErr.ErrAlreadySubmitted
		}
		return ac, fmt.Errorf("store submission: %w", err)
	}
	logutil.GetLogger(ctx).Info("submission recorded", zap.String("email", ac.Email))
	return model.Anonymous(), nil
}

func (s *BallotService) collectAnswers(answers map[string]string) ([]string, error) {
	values := make([]string, len(s.opts.Questions))
	for i, q := range s.opts.Questions {
		v := strings.TrimSpace(answers[q.Key])
		if v == "" && q.Required() {
			return nil, appErr.ErrIncompleteAnswers
		}
		values[i] = v
	}
	return values, nil
}

// Status reports whether the identity behind ac has already submitted.
func (s *BallotService) Status(ctx context.Context, ac model.AuthContext) (bool, error) {
	if ac.Email == "" {
		return false, nil
	}
	return s.subs.ExistsByEmail(ctx, ac.Email)
}
