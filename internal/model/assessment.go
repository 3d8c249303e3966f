package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionTypeMCQ         QuestionType = "mcq"
	QuestionTypeDescriptive QuestionType = "descriptive"
)

// DefaultDurationSeconds is used when an assessment carries no duration.
const DefaultDurationSeconds = 3600

// Assessment is a read-only assessment as served by the backend.
type Assessment struct {
	ID              int        `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	DurationMinutes int        `json:"duration_minutes"`
	TotalMarks      int        `json:"total_marks"`
	PassingScore    float64    `json:"passing_score,omitempty"`
	DueDate         *time.Time `json:"due_date,omitempty"`
	Questions       []Question `json:"questions"`
}

// DurationSeconds returns the countdown length for the assessment.
func (a *Assessment) DurationSeconds() int {
	if a == nil || a.DurationMinutes <= 0 {
		return DefaultDurationSeconds
	}
	return a.DurationMinutes * 60
}

// Question is a single immutable assessment question.
type Question struct {
	QuestionText string       `json:"question_text"`
	Type         QuestionType `json:"type"`
	Marks        int          `json:"marks"`
	Options      []string     `json:"options,omitempty"`
}

// Answer is the learner's response to one question.
type Answer struct {
	Answer string `json:"answer"`
}

// AnswerMap maps a 0-based question index to its answer.
// It is sent to the backend keyed by the decimal index.
type AnswerMap map[int]Answer

// MarshalJSON encodes the map with keys in index order so request bodies are
// deterministic.
func (m AnswerMap) MarshalJSON() ([]byte, error) {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	buf := []byte{'{'}
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendQuote(buf, strconv.Itoa(k))
		buf = append(buf, ':')
		v, err := json.Marshal(m[k])
		if err != nil {
			return nil, err
		}
		buf = append(buf, v...)
	}
	return append(buf, '}'), nil
}

// UnmarshalJSON decodes an object keyed by decimal indices.
func (m *AnswerMap) UnmarshalJSON(data []byte) error {
	var raw map[string]Answer
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(AnswerMap, len(raw))
	for k, v := range raw {
		idx, err := strconv.Atoi(k)
		if err != nil {
			return fmt.Errorf("answer key %q: %w", k, err)
		}
		out[idx] = v
	}
	*m = out
	return nil
}

// SubmitAssessmentRequest is the body of the submit endpoint.
type SubmitAssessmentRequest struct {
	Answers AnswerMap `json:"answers"`
}

// AttemptRecord is one past attempt of an assessment.
type AttemptRecord struct {
	AttemptNumber int        `json:"attempt_number"`
	Score         float64    `json:"score"`
	Passed        bool       `json:"passed"`
	SubmittedAt   *time.Time `json:"submitted_at,omitempty"`
	Feedback      string     `json:"feedback,omitempty"`
}

// SubmissionResult is returned by the backend after a submission.
type SubmissionResult struct {
	Passed         bool            `json:"passed"`
	AttemptNumber  int             `json:"attempt_number"`
	CurrentAttempt *AttemptRecord  `json:"current_attempt,omitempty"`
	History        []AttemptRecord `json:"history"`
}

// AssessmentSummary is an assessment as listed under "my assessments".
type AssessmentSummary struct {
	Assessment
	OverallStatus  string          `json:"overall_status,omitempty"`
	LatestScore    *float64        `json:"latest_score,omitempty"`
	BestScore      *float64        `json:"best_score,omitempty"`
	BestPercentage *float64        `json:"best_percentage,omitempty"`
	TotalAttempts  int             `json:"total_attempts,omitempty"`
	Attempts       []AttemptRecord `json:"attempts,omitempty"`
}

// MyAssessments groups the learner's assessments by progress.
type MyAssessments struct {
	Pending    []AssessmentSummary `json:"pending_assessments"`
	InProgress []AssessmentSummary `json:"in_progress_assessments"`
	Completed  []AssessmentSummary `json:"completed_assessments"`
}
