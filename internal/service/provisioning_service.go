package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/usamatauqir381/questxcopilot/internal/config"
	"github.com/usamatauqir381/questxcopilot/internal/model"
	"github.com/usamatauqir381/questxcopilot/internal/repository"
)

const passwordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz23456789"

// ProvisioningService is the operator side: assessments, question banks and credentials
type ProvisioningService struct {
	assessments repository.AssessmentRepo
	questions   repository.QuestionRepo
	credentials repository.CredentialRepo
	source      Source
	hashCost    int
}

// NewProvisioningService creates a new provisioning service
func NewProvisioningService(
	assessments repository.AssessmentRepo,
	questions repository.QuestionRepo,
	credentials repository.CredentialRepo,
) *ProvisioningService {
	return &ProvisioningService{
		assessments: assessments,
		questions:   questions,
		credentials: credentials,
		source:      CryptoSource(),
		hashCost:    bcrypt.DefaultCost,
	}
}

// SetHashCost overrides the bcrypt cost
func (s *ProvisioningService) SetHashCost(cost int) {
	s.hashCost = cost
}

// SeedCatalog creates catalog assessments that do not exist yet. Existing
// slugs are left untouched so operator changes survive restarts.
func (s *ProvisioningService) SeedCatalog(ctx context.Context, catalog *config.Catalog) (int, error) {
	created := 0
	for _, entry := range catalog.Assessments {
		a, err := entry.ToAssessment(catalog.GradeBands)
		if err != nil {
			return created, fmt.Errorf("%w: %s: %v", ErrValidation, entry.Slug, err)
		}
		existing, err := s.assessments.GetBySlug(ctx, a.Slug)
		if err != nil {
			return created, fmt.Errorf("load assessment %s: %w", a.Slug, err)
		}
		if existing != nil {
			continue
		}
		if err := s.assessments.Create(ctx, a); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				continue
			}
			return created, fmt.Errorf("create assessment %s: %w", a.Slug, err)
		}
		created++
		log.Printf("[Provisioning] Seeded assessment %s (level %s)", a.Slug, a.Level)
	}
	return created, nil
}

// ListAssessments returns every assessment
func (s *ProvisioningService) ListAssessments(ctx context.Context) ([]*model.Assessment, error) {
	return s.assessments.List(ctx)
}

// GetAssessment resolves an assessment by slug
func (s *ProvisioningService) GetAssessment(ctx context.Context, slug string) (*model.Assessment, error) {
	a, err := s.assessments.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("load assessment: %w", err)
	}
	if a == nil {
		return nil, fmt.Errorf("%w: assessment %s", ErrNotFound, slug)
	}
	return a, nil
}

// UpdateStatus changes an assessment's status and activation window
func (s *ProvisioningService) UpdateStatus(ctx context.Context, slug string, status model.AssessmentStatus, startsAt, endsAt *time.Time) (*model.Assessment, error) {
	switch status {
	case model.AssessmentInactive, model.AssessmentActive, model.AssessmentEnded:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	if startsAt != nil && endsAt != nil && !endsAt.After(*startsAt) {
		return nil, fmt.Errorf("%w: window end must be after start", ErrValidation)
	}

	a, err := s.assessments.UpdateWindow(ctx, slug, status, startsAt, endsAt)
	if err != nil {
		return nil, fmt.Errorf("update assessment: %w", err)
	}
	if a == nil {
		return nil, fmt.Errorf("%w: assessment %s", ErrNotFound, slug)
	}
	log.Printf("[Provisioning] Assessment %s is now %s", slug, status)
	return a, nil
}

// ImportQuestions validates records and stores them as the new set for the
// assessment and role. Nothing is stored when any record is invalid.
func (s *ProvisioningService) ImportQuestions(ctx context.Context, slug string, role model.SetRole, shared bool, source string, records []model.QuestionRecord) (*model.QuestionSet, error) {
	if role != model.SetTutorial && role != model.SetMain {
		return nil, fmt.Errorf("%w: unknown set role %q", ErrValidation, role)
	}
	if shared && role != model.SetTutorial {
		return nil, fmt.Errorf("%w: only tutorial sets can be shared", ErrValidation)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no questions", ErrValidation)
	}

	a, err := s.assessments.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("load assessment: %w", err)
	}
	if a == nil {
		return nil, fmt.Errorf("%w: assessment %s", ErrNotFound, slug)
	}

	questions := make([]model.Question, 0, len(records))
	seen := make(map[string]bool, len(records))
	var problems []string
	for i, rec := range records {
		q := rec.ToQuestion(i)
		if err := q.Validate(); err != nil {
			problems = append(problems, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		if seen[q.QuestionID] {
			problems = append(problems, fmt.Sprintf("row %d: duplicate question id %s", i+1, q.QuestionID))
			continue
		}
		seen[q.QuestionID] = true
		questions = append(questions, q)
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}

	set := &model.QuestionSet{
		AssessmentID: a.ID,
		Role:         role,
		Shared:       shared,
		SourceFile:   source,
	}
	if err := s.questions.ReplaceSet(ctx, set, questions); err != nil {
		return nil, fmt.Errorf("store question set: %w", err)
	}

	log.Printf("[Provisioning] Imported %d %s questions for %s", len(questions), role, slug)
	return set, nil
}

// UpsertCredentials inserts or updates provisioned passwords by email.
// Generated passwords appear only in this response.
func (s *ProvisioningService) UpsertCredentials(ctx context.Context, batch []model.ProvisionRequest) ([]model.ProvisionResult, error) {
	results := make([]model.ProvisionResult, 0, len(batch))
	for i, req := range batch {
		email := NormalizeEmail(req.Email)
		level := strings.TrimSpace(req.Level)
		if email == "" || level == "" {
			return results, fmt.Errorf("%w: row %d: email and level are required", ErrValidation, i+1)
		}
		a, err := s.assessments.GetByLevel(ctx, level)
		if err != nil {
			return results, fmt.Errorf("load assessment: %w", err)
		}
		if a == nil {
			return results, fmt.Errorf("%w: row %d: unknown level %q", ErrValidation, i+1, level)
		}

		password := req.Password
		generated := ""
		if password == "" {
			if password, err = s.generatePassword(12); err != nil {
				return results, fmt.Errorf("generate password: %w", err)
			}
			generated = password
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
		if err != nil {
			return results, fmt.Errorf("hash password: %w", err)
		}

		created, err := s.credentials.Upsert(ctx, &model.Credential{
			Email:        email,
			PasswordHash: string(hash),
			Level:        level,
			Status:       model.CredentialActive,
		})
		if err != nil {
			return results, fmt.Errorf("upsert credential %s: %w", email, err)
		}
		results = append(results, model.ProvisionResult{
			Email:             email,
			Level:             level,
			Created:           created,
			GeneratedPassword: generated,
		})
	}

	log.Printf("[Provisioning] Upserted %d credentials", len(results))
	return results, nil
}

func (s *ProvisioningService) generatePassword(n int) (string, error) {
	b := make([]byte, n)
	for i := range b {
		j, err := s.source.Intn(len(passwordAlphabet))
		if err != nil {
			return "", err
		}
		b[i] = passwordAlphabet[j]
	}
	return string(b), nil
}
