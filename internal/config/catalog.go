package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/usamatauqir381/questxcopilot/internal/model"
)

// FallbackGrade is used when neither an assessment nor the catalog defines bands
var FallbackGrade = model.GradeBand{MinPercent: 0, Grade: "F", Desc: "Needs Improvement"}

// Catalog is the assessments file: one entry per level plus shared defaults
type Catalog struct {
	AccessCodeRequired bool              `json:"accessCodeRequired"`
	AccessCode         string            `json:"accessCode"`
	GradeBands         []model.GradeBand `json:"gradeBands"`
	Assessments        []CatalogEntry    `json:"assessments"`
}

// CatalogEntry describes one leveled assessment.
// Duration and PerQuestionTime use "mm:ss".
type CatalogEntry struct {
	Slug               string                `json:"slug"`
	Name               string                `json:"name"`
	Level              string                `json:"level"`
	AttemptsLimit      int                   `json:"attemptsLimit"`
	Status             string                `json:"status"`
	StartsAt           *time.Time            `json:"startsAt,omitempty"`
	EndsAt             *time.Time            `json:"endsAt,omitempty"`
	Duration           string                `json:"duration,omitempty"`
	PerQuestionTime    string                `json:"perQuestionTime,omitempty"`
	RandomizeQuestions bool                  `json:"randomizeQuestions"`
	RandomizeOptions   bool                  `json:"randomizeOptions"`
	RequireTutorial    bool                  `json:"requireTutorial"`
	AntiCheat          model.AntiCheatPolicy `json:"antiCheat"`
	GradeBands         []model.GradeBand     `json:"gradeBands,omitempty"`
}

// LoadCatalog reads and validates the assessments file
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates catalog JSON
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	seen := make(map[string]bool)
	for i, e := range c.Assessments {
		if e.Slug == "" || e.Level == "" {
			return nil, fmt.Errorf("catalog entry %d: slug and level are required", i)
		}
		if seen[e.Slug] {
			return nil, fmt.Errorf("catalog entry %d: duplicate slug %q", i, e.Slug)
		}
		seen[e.Slug] = true
		if _, err := e.ToAssessment(nil); err != nil {
			return nil, fmt.Errorf("catalog entry %q: %w", e.Slug, err)
		}
	}
	return &c, nil
}

// ToAssessment converts the entry, applying catalog-level default bands
func (e CatalogEntry) ToAssessment(defaultBands []model.GradeBand) (*model.Assessment, error) {
	duration, err := ParseMMSS(e.Duration)
	if err != nil {
		return nil, fmt.Errorf("duration: %w", err)
	}
	perQuestion, err := ParseMMSS(e.PerQuestionTime)
	if err != nil {
		return nil, fmt.Errorf("perQuestionTime: %w", err)
	}

	status := model.AssessmentStatus(e.Status)
	switch status {
	case "":
		status = model.AssessmentInactive
	case model.AssessmentInactive, model.AssessmentActive, model.AssessmentEnded:
	default:
		return nil, fmt.Errorf("unknown status %q", e.Status)
	}

	policy := e.AntiCheat
	if policy.Action == "" {
		policy.Action = model.ActionWarn
	}
	if !policy.Action.Valid() {
		return nil, fmt.Errorf("unknown anti-cheat action %q", policy.Action)
	}
	if policy.MaxViolations < 0 {
		return nil, fmt.Errorf("maxViolations must not be negative")
	}

	limit := e.AttemptsLimit
	if limit <= 0 {
		limit = 1
	}

	bands := e.GradeBands
	if len(bands) == 0 {
		bands = defaultBands
	}

	return &model.Assessment{
		Slug:               e.Slug,
		Name:               e.Name,
		Level:              e.Level,
		AttemptsLimit:      limit,
		Status:             status,
		StartsAt:           e.StartsAt,
		EndsAt:             e.EndsAt,
		DurationSeconds:    int(duration / time.Second),
		PerQuestionSeconds: int(perQuestion / time.Second),
		RandomizeQuestions: e.RandomizeQuestions,
		RandomizeOptions:   e.RandomizeOptions,
		RequireTutorial:    e.RequireTutorial,
		AntiCheat:          policy,
		GradeBands:         SortBands(bands),
	}, nil
}

// ParseMMSS parses "mm:ss" into a duration. Empty input is zero.
func ParseMMSS(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%q is not mm:ss", s)
	}
	mm, err := strconv.Atoi(parts[0])
	if err != nil || mm < 0 {
		return 0, fmt.Errorf("%q is not mm:ss", s)
	}
	ss, err := strconv.Atoi(parts[1])
	if err != nil || ss < 0 || ss > 59 {
		return 0, fmt.Errorf("%q is not mm:ss", s)
	}
	return time.Duration(mm)*time.Minute + time.Duration(ss)*time.Second, nil
}

// SortBands returns a copy ordered by descending MinPercent
func SortBands(bands []model.GradeBand) []model.GradeBand {
	out := append([]model.GradeBand(nil), bands...)
	// insertion sort keeps equal thresholds in file order
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].MinPercent > out[j-1].MinPercent; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
