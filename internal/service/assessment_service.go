package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/learning-portal/internal/assessment"
	"github.com/stemsi/learning-portal/internal/client"
	"github.com/stemsi/learning-portal/internal/metrics"
	"github.com/stemsi/learning-portal/internal/model"
)

// ErrAttemptNotFound is returned for an unknown or discarded attempt id.
var ErrAttemptNotFound = errors.New("attempt not found")

// AssessmentMetrics are the summary cards above the assessment list.
type AssessmentMetrics struct {
	Total            int     `json:"total"`
	Pending          int     `json:"pending"`
	InProgress       int     `json:"in_progress"`
	Completed        int     `json:"completed"`
	AverageBestScore float64 `json:"average_best_score"`
}

// AssessmentList is the grouped list plus its metrics.
type AssessmentList struct {
	*model.MyAssessments
	Metrics AssessmentMetrics `json:"metrics"`
}

// finishedRetention is how long a submitted or exited attempt stays readable
// before it is pruned.
const finishedRetention = 30 * time.Minute

// trackedAttempt is an attempt plus the time it reached a terminal state.
type trackedAttempt struct {
	at         *assessment.Attempt
	finishedAt time.Time
}

// AssessmentService lists assessments and owns the live attempts.
type AssessmentService struct {
	api     *client.Client
	metrics *metrics.Metrics
	log     zerolog.Logger

	// ctx outlives requests: attempt clocks keep running between calls.
	ctx       context.Context
	cancel    context.CancelFunc
	newTicker func() assessment.Ticker
	now       func() time.Time

	mu       sync.Mutex
	attempts map[uuid.UUID]*trackedAttempt
}

// NewAssessmentService creates a new AssessmentService. m may be nil.
func NewAssessmentService(api *client.Client, m *metrics.Metrics, log zerolog.Logger) *AssessmentService {
	ctx, cancel := context.WithCancel(context.Background())
	return &AssessmentService{
		api:       api,
		metrics:   m,
		log:       log.With().Str("component", "assessment_service").Logger(),
		ctx:       ctx,
		cancel:    cancel,
		newTicker: func() assessment.Ticker { return assessment.NewTicker(time.Second) },
		now:       time.Now,
		attempts:  make(map[uuid.UUID]*trackedAttempt),
	}
}

// SetTickerFactory replaces the one-second wall clock, for tests and replays.
func (s *AssessmentService) SetTickerFactory(fn func() assessment.Ticker) {
	s.newTicker = fn
}

// ListAssessments fetches the grouped list and computes the metrics.
func (s *AssessmentService) ListAssessments(ctx context.Context) (*AssessmentList, error) {
	mine, err := s.api.MyAssessments(ctx)
	if err != nil {
		return nil, err
	}
	return &AssessmentList{MyAssessments: mine, Metrics: SummarizeAssessments(mine)}, nil
}

// SummarizeAssessments computes the list metrics. The average is the mean of
// best scores over completed assessments, rounded to one decimal.
func SummarizeAssessments(m *model.MyAssessments) AssessmentMetrics {
	out := AssessmentMetrics{
		Pending:    len(m.Pending),
		InProgress: len(m.InProgress),
		Completed:  len(m.Completed),
	}
	out.Total = out.Pending + out.InProgress + out.Completed
	if out.Completed == 0 {
		return out
	}
	var sum float64
	for _, a := range m.Completed {
		if a.BestScore != nil {
			sum += *a.BestScore
		}
	}
	out.AverageBestScore = math.Round(sum/float64(out.Completed)*10) / 10
	return out
}

// GetAssessment fetches one assessment.
func (s *AssessmentService) GetAssessment(ctx context.Context, id int) (*model.Assessment, error) {
	return s.api.Assessment(ctx, id)
}

// StartAttempt loads the assessment and starts a timed attempt.
func (s *AssessmentService) StartAttempt(ctx context.Context, assessmentID int) (*assessment.Attempt, error) {
	a, err := s.api.Assessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	var at *assessment.Attempt
	at = assessment.NewAttempt(a, &countedSubmitter{api: s.api, metrics: s.metrics},
		assessment.WithLogger(s.log),
		assessment.OnFinished(func(assessment.State) { s.finish(at.ID()) }),
	)

	s.mu.Lock()
	s.pruneLocked()
	s.attempts[at.ID()] = &trackedAttempt{at: at}
	s.observeLocked()
	s.mu.Unlock()

	at.Start(s.ctx, s.newTicker())
	s.log.Info().
		Str("attempt_id", at.ID().String()).
		Int("assessment_id", a.ID).
		Int("questions", len(a.Questions)).
		Int("seconds", at.Clock().Total()).
		Msg("Attempt started")
	return at, nil
}

// Attempt returns a live attempt.
func (s *AssessmentService) Attempt(id uuid.UUID) (*assessment.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tr, ok := s.attempts[id]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	return tr.at, nil
}

// DiscardAttempt stops and forgets an attempt, typically after its result was viewed.
func (s *AssessmentService) DiscardAttempt(id uuid.UUID) error {
	s.mu.Lock()
	tr, ok := s.attempts[id]
	delete(s.attempts, id)
	s.observeLocked()
	s.mu.Unlock()
	if !ok {
		return ErrAttemptNotFound
	}
	tr.at.Stop()
	return nil
}

// ActiveCount returns how many attempts are still running.
func (s *AssessmentService) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked()
}

// finish marks an attempt terminal. It stays readable for the result view
// until discarded or pruned.
func (s *AssessmentService) finish(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tr, ok := s.attempts[id]; ok && tr.finishedAt.IsZero() {
		tr.finishedAt = s.now()
	}
	s.observeLocked()
}

func (s *AssessmentService) pruneLocked() {
	cutoff := s.now().Add(-finishedRetention)
	for id, tr := range s.attempts {
		if !tr.finishedAt.IsZero() && tr.finishedAt.Before(cutoff) {
			delete(s.attempts, id)
		}
	}
}

func (s *AssessmentService) activeLocked() int {
	n := 0
	for _, tr := range s.attempts {
		if tr.finishedAt.IsZero() {
			n++
		}
	}
	return n
}

func (s *AssessmentService) observeLocked() {
	if s.metrics != nil {
		s.metrics.ActiveAttempts.Set(float64(s.activeLocked()))
	}
}

// Shutdown cancels every attempt clock.
func (s *AssessmentService) Shutdown() {
	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tr := range s.attempts {
		tr.at.Stop()
	}
}

// countedSubmitter records submission outcomes around the backend call.
type countedSubmitter struct {
	api     *client.Client
	metrics *metrics.Metrics
}

func (c *countedSubmitter) SubmitAssessment(ctx context.Context, id int, answers model.AnswerMap) (*model.SubmissionResult, error) {
	res, err := c.api.SubmitAssessment(ctx, id, answers)
	if c.metrics != nil {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		c.metrics.Submissions.WithLabelValues(outcome).Inc()
	}
	return res, err
}
