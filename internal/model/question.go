package model

import (
	"fmt"
	"strings"
	"time"
)

// OptionKey is a canonical option slot
type OptionKey string

const (
	OptionA OptionKey = "a"
	OptionB OptionKey = "b"
	OptionC OptionKey = "c"
	OptionD OptionKey = "d"
)

// OptionKeys is the canonical slot order
var OptionKeys = [4]OptionKey{OptionA, OptionB, OptionC, OptionD}

// ParseOptionKey normalizes "A", " b " etc. into an OptionKey
func ParseOptionKey(s string) (OptionKey, bool) {
	k := OptionKey(strings.ToLower(strings.TrimSpace(s)))
	for _, valid := range OptionKeys {
		if k == valid {
			return k, true
		}
	}
	return "", false
}

type SetRole string

const (
	SetTutorial SetRole = "tutorial"
	SetMain     SetRole = "main"
)

// QuestionSet groups questions for one assessment by role
type QuestionSet struct {
	ID           string    `json:"id" bson:"_id,omitempty"`
	AssessmentID string    `json:"assessmentId" bson:"assessmentId"`
	Role         SetRole   `json:"role" bson:"role"`
	Shared       bool      `json:"shared" bson:"shared"` // tutorial sets reused by every level
	SourceFile   string    `json:"sourceFile,omitempty" bson:"sourceFile,omitempty"`
	ImportedAt   time.Time `json:"importedAt" bson:"importedAt"`
}

// Options holds the four canonical option texts
type Options struct {
	A string `json:"a" bson:"a"`
	B string `json:"b" bson:"b"`
	C string `json:"c" bson:"c"`
	D string `json:"d" bson:"d"`
}

// Text returns the option text stored under key
func (o Options) Text(key OptionKey) string {
	switch key {
	case OptionA:
		return o.A
	case OptionB:
		return o.B
	case OptionC:
		return o.C
	case OptionD:
		return o.D
	}
	return ""
}

// Question is a canonical question record. CorrectOption is never shuffled.
type Question struct {
	ID            string    `json:"-" bson:"_id,omitempty"`
	SetID         string    `json:"-" bson:"setId"`
	QuestionID    string    `json:"questionId" bson:"questionId"`
	Text          string    `json:"text" bson:"text"`
	MediaRef      string    `json:"mediaRef,omitempty" bson:"mediaRef,omitempty"`
	Options       Options   `json:"options" bson:"options"`
	CorrectOption OptionKey `json:"correctOption" bson:"correctOption"`
	Position      int       `json:"-" bson:"position"`
}

// Validate checks the importer contract: a..d key and non-empty options
func (q *Question) Validate() error {
	if strings.TrimSpace(q.QuestionID) == "" {
		return fmt.Errorf("question id is empty")
	}
	// ids become answer map keys in the attempt document
	if strings.Contains(q.QuestionID, ".") || strings.HasPrefix(q.QuestionID, "$") {
		return fmt.Errorf("question id %q must not contain '.' or start with '$'", q.QuestionID)
	}
	if _, ok := ParseOptionKey(string(q.CorrectOption)); !ok {
		return fmt.Errorf("question %s: correct option %q is not one of a/b/c/d", q.QuestionID, q.CorrectOption)
	}
	for _, k := range OptionKeys {
		if strings.TrimSpace(q.Options.Text(k)) == "" {
			return fmt.Errorf("question %s: option %s is empty", q.QuestionID, k)
		}
	}
	return nil
}

// QuestionRecord is the importer wire shape
type QuestionRecord struct {
	QuestionID    string `json:"question_id"`
	Text          string `json:"question_text"`
	OptionA       string `json:"option_a"`
	OptionB       string `json:"option_b"`
	OptionC       string `json:"option_c"`
	OptionD       string `json:"option_d"`
	CorrectOption string `json:"correct_option"`
	MediaRef      string `json:"media_ref,omitempty"`
}

// ToQuestion converts an importer record into a canonical question
func (r QuestionRecord) ToQuestion(position int) Question {
	key, _ := ParseOptionKey(r.CorrectOption)
	if key == "" {
		key = OptionKey(strings.ToLower(strings.TrimSpace(r.CorrectOption)))
	}
	return Question{
		QuestionID:    strings.TrimSpace(r.QuestionID),
		Text:          r.Text,
		MediaRef:      r.MediaRef,
		Options:       Options{A: r.OptionA, B: r.OptionB, C: r.OptionC, D: r.OptionD},
		CorrectOption: key,
		Position:      position,
	}
}

// PublicQuestion is what a candidate sees: presented option texts, no key
type PublicQuestion struct {
	QuestionID string   `json:"questionId"`
	Text       string   `json:"text"`
	MediaRef   string   `json:"mediaRef,omitempty"`
	Options    []string `json:"options"`
}
