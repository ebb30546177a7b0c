package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/usamatauqir381/questxcopilot/internal/cache"
	"github.com/usamatauqir381/questxcopilot/internal/model"
	"github.com/usamatauqir381/questxcopilot/internal/repository"
)

// AccessConfig controls admission
type AccessConfig struct {
	CodeTTL            time.Duration
	MaxSends           int
	SendWindow         time.Duration
	Digits             int
	AccessCodeRequired bool
	AccessCode         string
	NotifyTimeout      time.Duration
}

// AccessService admits candidates by one-time code or provisioned password
type AccessService struct {
	otps        repository.OTPRepo
	respondents repository.RespondentRepo
	credentials repository.CredentialRepo
	locker      cache.Locker
	notifier    Notifier
	source      Source
	cfg         AccessConfig
	now         func() time.Time
}

// NewAccessService creates a new access controller
func NewAccessService(
	otps repository.OTPRepo,
	respondents repository.RespondentRepo,
	credentials repository.CredentialRepo,
	locker cache.Locker,
	notifier Notifier,
	cfg AccessConfig,
) *AccessService {
	if cfg.Digits <= 0 {
		cfg.Digits = 6
	}
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 10 * time.Minute
	}
	if cfg.MaxSends <= 0 {
		cfg.MaxSends = 10
	}
	if cfg.SendWindow <= 0 {
		cfg.SendWindow = time.Hour
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 10 * time.Second
	}
	return &AccessService{
		otps:        otps,
		respondents: respondents,
		credentials: credentials,
		locker:      locker,
		notifier:    notifier,
		source:      CryptoSource(),
		cfg:         cfg,
		now:         time.Now,
	}
}

// SetClock replaces the time source
func (s *AccessService) SetClock(now func() time.Time) {
	s.now = now
}

// NormalizeEmail lower-cases and trims an address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func (s *AccessService) generateCode() (string, error) {
	limit := 1
	for i := 0; i < s.cfg.Digits; i++ {
		limit *= 10
	}
	n, err := s.source.Intn(limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", s.cfg.Digits, n), nil
}

// RequestCode issues a fresh one-time code for the email, subject to the
// per-email send limit, and hands it to the notifier.
func (s *AccessService) RequestCode(ctx context.Context, req model.AccessRequest) error {
	email := NormalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	if email == "" || name == "" || !req.Consent {
		return fmt.Errorf("%w: name, email and consent are required", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: invalid email", ErrValidation)
	}
	if s.cfg.AccessCodeRequired && subtle.ConstantTimeCompare([]byte(strings.TrimSpace(req.AccessCode)), []byte(s.cfg.AccessCode)) != 1 {
		return fmt.Errorf("%w: invalid access code", ErrAccessDenied)
	}

	code, expiresAt, err := s.issue(ctx, email)
	if err != nil {
		return err
	}

	if _, err := s.respondents.Upsert(ctx, &model.Respondent{
		Email:      email,
		Name:       name,
		ExternalID: strings.TrimSpace(req.ExternalID),
	}); err != nil {
		return fmt.Errorf("upsert respondent: %w", err)
	}

	s.deliver(ctx, email, code, expiresAt)
	return nil
}

// issue stores a new code hash under the per-email lock and returns the plaintext
func (s *AccessService) issue(ctx context.Context, email string) (string, time.Time, error) {
	unlock, err := lockKey(ctx, s.locker, "otp:"+email)
	if err != nil {
		return "", time.Time{}, err
	}
	defer unlock()

	rec, err := s.otps.Get(ctx, email)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("load code: %w", err)
	}
	if rec == nil {
		rec = &model.OTPCode{Email: email}
	}

	now := s.now()
	recent := rec.RecentSends[:0]
	for _, t := range rec.RecentSends {
		if now.Sub(t) < s.cfg.SendWindow {
			recent = append(recent, t)
		}
	}
	if len(recent) >= s.cfg.MaxSends {
		log.Printf("[Access] Rate limited code request for %s (%d sends in window)", email, len(recent))
		return "", time.Time{}, ErrRateLimited
	}

	code, err := s.generateCode()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate code: %w", err)
	}

	rec.CodeHash = hashCode(code)
	rec.ExpiresAt = now.Add(s.cfg.CodeTTL)
	rec.SendCount++
	rec.LastSentAt = now
	rec.RecentSends = append(recent, now)

	if err := withRetry("save code", func() error { return s.otps.Save(ctx, rec) }); err != nil {
		return "", time.Time{}, fmt.Errorf("save code: %w", err)
	}
	return code, rec.ExpiresAt, nil
}

// deliver never fails the request; an undeliverable code is logged instead
func (s *AccessService) deliver(ctx context.Context, email, code string, expiresAt time.Time) {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.NotifyTimeout)
	defer cancel()

	if err := s.notifier.SendCode(nctx, email, code, expiresAt); err != nil {
		log.Printf("[Access] ERROR: failed to send code to %s: %v", email, err)
		LogNotifier{}.SendCode(nctx, email, code, expiresAt)
	}
}

// VerifyCode checks a pending code and consumes it on success
func (s *AccessService) VerifyCode(ctx context.Context, email, code string) (*model.Respondent, error) {
	email = NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, fmt.Errorf("%w: email and code are required", ErrValidation)
	}

	unlock, err := lockKey(ctx, s.locker, "otp:"+email)
	if err != nil {
		return nil, err
	}
	defer unlock()

	rec, err := s.otps.Get(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("load code: %w", err)
	}
	if !rec.Pending() {
		return nil, ErrCodeNotFound
	}
	if s.now().After(rec.ExpiresAt) {
		return nil, ErrExpired
	}
	if subtle.ConstantTimeCompare([]byte(hashCode(code)), []byte(rec.CodeHash)) != 1 {
		return nil, ErrCodeMismatch
	}

	if err := s.otps.Consume(ctx, email); err != nil {
		return nil, fmt.Errorf("consume code: %w", err)
	}

	respondent, err := s.respondents.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("load respondent: %w", err)
	}
	if respondent == nil {
		respondent, err = s.respondents.Upsert(ctx, &model.Respondent{Email: email})
		if err != nil {
			return nil, fmt.Errorf("upsert respondent: %w", err)
		}
	}

	log.Printf("[Access] Verified code for %s", email)
	return respondent, nil
}

// Authenticate checks a provisioned password. The credential must still be active.
func (s *AccessService) Authenticate(ctx context.Context, email, password string) (*model.Respondent, *model.Credential, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	cred, err := s.credentials.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("load credential: %w", err)
	}
	if cred == nil || cred.Status != model.CredentialActive {
		return nil, nil, ErrAccessDenied
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrAccessDenied
	}

	respondent, err := s.respondents.Upsert(ctx, &model.Respondent{Email: email})
	if err != nil {
		return nil, nil, fmt.Errorf("upsert respondent: %w", err)
	}

	log.Printf("[Access] Authenticated %s for level %s", email, cred.Level)
	return respondent, cred, nil
}
