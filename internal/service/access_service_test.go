package service

import (
	"errors"
	"testing"
	"time"

	"github.com/usamatauqir381/questxcopilot/internal/cache"
	"github.com/usamatauqir381/questxcopilot/internal/model"
)

func accessRequest(email string) model.AccessRequest {
	return model.AccessRequest{Email: email, Name: "Dana Reyes", Consent: true}
}

func TestRequestAndVerifyCode(t *testing.T) {
	f := newFixture(t)

	if err := f.access.RequestCode(f.ctx, accessRequest("  Dana@Example.com ")); err != nil {
		t.Fatalf("RequestCode: %v", err)
	}
	code := f.notifier.last(t)
	if len(code) != 6 {
		t.Fatalf("expected a 6 digit code, got %q", code)
	}

	stored, err := f.store.OTPs().Get(f.ctx, "dana@example.com")
	if err != nil || stored == nil {
		t.Fatalf("expected a stored code, got %v %v", stored, err)
	}
	if stored.CodeHash == code {
		t.Fatal("code must not be stored in plaintext")
	}

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	if _, err := f.access.VerifyCode(f.ctx, "dana@example.com", wrong); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("expected ErrCodeMismatch, got %v", err)
	}

	respondent, err := f.access.VerifyCode(f.ctx, "DANA@example.com", code)
	if err != nil {
		t.Fatalf("VerifyCode: %v", err)
	}
	if respondent.Email != "dana@example.com" || respondent.Name != "Dana Reyes" {
		t.Fatalf("unexpected respondent %+v", respondent)
	}

	if _, err := f.access.VerifyCode(f.ctx, "dana@example.com", code); !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("expected a used code to be gone, got %v", err)
	}
}

func TestVerifyCodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		advance time.Duration
		email   string
		wantErr error
	}{
		{"unknown email", 0, "nobody@example.com", ErrCodeNotFound},
		{"expired code", 11 * time.Minute, "dana@example.com", ErrExpired},
		{"missing email", 0, "", ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if err := f.access.RequestCode(f.ctx, accessRequest("dana@example.com")); err != nil {
				t.Fatalf("RequestCode: %v", err)
			}
			code := f.notifier.last(t)
			f.clock.Advance(tt.advance)

			_, err := f.access.VerifyCode(f.ctx, tt.email, code)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRequestCodeValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     model.AccessRequest
		wantErr error
	}{
		{"missing consent", model.AccessRequest{Email: "a@example.com", Name: "A"}, ErrValidation},
		{"missing name", model.AccessRequest{Email: "a@example.com", Consent: true}, ErrValidation},
		{"malformed email", model.AccessRequest{Email: "not-an-address", Name: "A", Consent: true}, ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if err := f.access.RequestCode(f.ctx, tt.req); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if len(f.notifier.sent) != 0 {
				t.Fatal("no code should be sent for an invalid request")
			}
		})
	}
}

func TestRequestCodeAccessCode(t *testing.T) {
	f := newFixture(t)
	access := NewAccessService(f.store.OTPs(), f.store.Respondents(), f.store.Credentials(), cache.NewLocalLocker(time.Second), f.notifier, AccessConfig{
		AccessCodeRequired: true,
		AccessCode:         "SPRING-26",
	})

	req := accessRequest("dana@example.com")
	req.AccessCode = "WINTER-25"
	if err := access.RequestCode(f.ctx, req); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}

	req.AccessCode = " SPRING-26 "
	if err := access.RequestCode(f.ctx, req); err != nil {
		t.Fatalf("RequestCode with valid access code: %v", err)
	}
}

func TestRequestCodeRateLimit(t *testing.T) {
	f := newFixture(t)
	req := accessRequest("dana@example.com")

	for i := 0; i < 3; i++ {
		if err := f.access.RequestCode(f.ctx, req); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
		f.clock.Advance(time.Minute)
	}
	if err := f.access.RequestCode(f.ctx, req); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited on the fourth request, got %v", err)
	}

	// other addresses are unaffected
	if err := f.access.RequestCode(f.ctx, accessRequest("other@example.com")); err != nil {
		t.Fatalf("request for another email: %v", err)
	}

	f.clock.Advance(time.Hour)
	if err := f.access.RequestCode(f.ctx, req); err != nil {
		t.Fatalf("expected the window to reopen, got %v", err)
	}
}

func TestNewCodeReplacesPrevious(t *testing.T) {
	f := newFixture(t)
	req := accessRequest("dana@example.com")

	if err := f.access.RequestCode(f.ctx, req); err != nil {
		t.Fatalf("RequestCode: %v", err)
	}
	first := f.notifier.last(t)
	if err := f.access.RequestCode(f.ctx, req); err != nil {
		t.Fatalf("RequestCode: %v", err)
	}
	second := f.notifier.last(t)

	if first != second {
		if _, err := f.access.VerifyCode(f.ctx, "dana@example.com", first); !errors.Is(err, ErrCodeMismatch) {
			t.Fatalf("expected the superseded code to be rejected, got %v", err)
		}
	}
	if _, err := f.access.VerifyCode(f.ctx, "dana@example.com", second); err != nil {
		t.Fatalf("VerifyCode with latest code: %v", err)
	}
}

func TestRequestCodeNotifierFailure(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("smtp: connection refused")

	if err := f.access.RequestCode(f.ctx, accessRequest("dana@example.com")); err != nil {
		t.Fatalf("delivery failure must not fail the request, got %v", err)
	}
	stored, err := f.store.OTPs().Get(f.ctx, "dana@example.com")
	if err != nil {
		t.Fatalf("load code: %v", err)
	}
	if !stored.Pending() {
		t.Fatal("expected the code to be stored despite the delivery failure")
	}
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	f.seedAssessment(t, nil)

	results, err := f.provisioning.UpsertCredentials(f.ctx, []model.ProvisionRequest{
		{Email: "dana@example.com", Level: "L1", Password: "correct horse"},
		{Email: "sam@example.com", Level: "L1"},
	})
	if err != nil {
		t.Fatalf("UpsertCredentials: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"valid password", "Dana@Example.com", "correct horse", nil},
		{"generated password", "sam@example.com", results[1].GeneratedPassword, nil},
		{"wrong password", "dana@example.com", "battery staple", ErrAccessDenied},
		{"unknown email", "ghost@example.com", "correct horse", ErrAccessDenied},
		{"empty password", "dana@example.com", "", ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			respondent, cred, err := f.access.Authenticate(f.ctx, tt.email, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr == nil && (respondent == nil || cred.Level != "L1") {
				t.Fatalf("unexpected result %+v %+v", respondent, cred)
			}
		})
	}
}

func TestAuthenticateUsedCredential(t *testing.T) {
	f := newFixture(t)
	f.seedAssessment(t, nil)
	if _, err := f.provisioning.UpsertCredentials(f.ctx, []model.ProvisionRequest{
		{Email: "dana@example.com", Level: "L1", Password: "correct horse"},
	}); err != nil {
		t.Fatalf("UpsertCredentials: %v", err)
	}
	cred, _ := f.store.Credentials().GetByEmail(f.ctx, "dana@example.com")
	if err := f.store.Credentials().MarkUsed(f.ctx, cred.ID, f.clock.Now()); err != nil {
		t.Fatalf("MarkUsed: %v", err)
	}

	if _, _, err := f.access.Authenticate(f.ctx, "dana@example.com", "correct horse"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected a used credential to be refused, got %v", err)
	}
}
