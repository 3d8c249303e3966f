// Package assessment runs a timed attempt of an assessment: countdown,
// per-question answers, navigation and the single submission.
package assessment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/learning-portal/internal/model"
)

// SubmitFailedMessage is shown inline when a submission fails.
const SubmitFailedMessage = "Failed to submit assessment. Please try again."

const (
	ActionNext   = "Next"
	ActionSubmit = "Submit Assessment"
)

// State is the attempt's workflow state.
type State string

const (
	StateTaking           State = "taking"
	StateConfirmingSubmit State = "confirming_submit"
	StateSubmitting       State = "submitting"
	StateSubmitted        State = "submitted"
	StateConfirmingExit   State = "confirming_exit"
	StateExited           State = "exited"
)

var (
	ErrSubmitInFlight    = errors.New("submission already in progress")
	ErrAlreadySubmitted  = errors.New("assessment already submitted")
	ErrInvalidTransition = errors.New("action not allowed in the current state")
)

// Marker tags one entry of the question index strip.
type Marker string

const (
	MarkerActive   Marker = "active"
	MarkerAnswered Marker = "answered"
	MarkerPlain    Marker = "plain"
)

// Submitter posts the answers of an attempt. *client.Client satisfies it.
type Submitter interface {
	SubmitAssessment(ctx context.Context, id int, answers model.AnswerMap) (*model.SubmissionResult, error)
}

// View is a consistent snapshot of an attempt for rendering.
type View struct {
	AttemptID     string                  `json:"attempt_id"`
	AssessmentID  int                     `json:"assessment_id"`
	Title         string                  `json:"title"`
	State         State                   `json:"state"`
	Index         int                     `json:"index"`
	Total         int                     `json:"total"`
	Question      *model.Question         `json:"question,omitempty"`
	Answer        string                  `json:"answer"`
	CanPrev       bool                    `json:"can_prev"`
	PrimaryAction string                  `json:"primary_action"`
	Markers       []Marker                `json:"markers"`
	Remaining     int                     `json:"seconds_remaining"`
	Clock         string                  `json:"clock"`
	Tier          Tier                    `json:"tier"`
	Warning       string                  `json:"warning,omitempty"`
	SubmitError   string                  `json:"submit_error,omitempty"`
	Result        *model.SubmissionResult `json:"result,omitempty"`
}

// Option configures an Attempt.
type Option func(*Attempt)

// WithLogger sets the attempt logger.
func WithLogger(log zerolog.Logger) Option {
	return func(a *Attempt) { a.log = log }
}

// OnSubmitted registers a callback invoked once with the result after a successful submission.
func OnSubmitted(fn func(*model.SubmissionResult)) Option {
	return func(a *Attempt) { a.onSubmitted = fn }
}

// OnFinished registers a callback invoked once when the attempt reaches a
// terminal state, submitted or exited.
func OnFinished(fn func(State)) Option {
	return func(a *Attempt) { a.onFinished = fn }
}

// Attempt is one learner's pass through an assessment. All methods are safe
// for concurrent use; the network call of a submission runs outside the lock.
type Attempt struct {
	id         uuid.UUID
	assessment *model.Assessment
	answers    *Answers
	clock      *Countdown
	submitter  Submitter
	log        zerolog.Logger

	mu          sync.Mutex
	state       State
	cursor      int
	result      *model.SubmissionResult
	submitErr   string
	runCtx      context.Context
	cancel      context.CancelFunc
	onSubmitted func(*model.SubmissionResult)
	onFinished  func(State)

	subMu sync.Mutex
	subs  map[chan View]struct{}
}

// NewAttempt prepares an attempt with every answer seeded empty and the
// clock set from the assessment duration. The clock does not run until Start.
func NewAttempt(a *model.Assessment, submitter Submitter, opts ...Option) *Attempt {
	at := &Attempt{
		id:         uuid.New(),
		assessment: a,
		answers:    NewAnswers(len(a.Questions)),
		submitter:  submitter,
		log:        zerolog.Nop(),
		state:      StateTaking,
		runCtx:     context.Background(),
		subs:       make(map[chan View]struct{}),
	}
	for _, opt := range opts {
		opt(at)
	}
	at.log = at.log.With().
		Str("attempt_id", at.id.String()).
		Int("assessment_id", a.ID).
		Logger()
	at.clock = NewCountdown(a.DurationSeconds(), at.expire)
	return at
}

// ID returns the attempt identifier.
func (a *Attempt) ID() uuid.UUID { return a.id }

// Assessment returns the assessment being taken.
func (a *Attempt) Assessment() *model.Assessment { return a.assessment }

// Answers returns the answer tracker.
func (a *Attempt) Answers() *Answers { return a.answers }

// Clock returns the attempt countdown.
func (a *Attempt) Clock() *Countdown { return a.clock }

// Start runs the countdown on t in its own goroutine. The attempt owns the
// cancellation: it stops on submission, exit or Stop.
func (a *Attempt) Start(ctx context.Context, t Ticker) {
	a.mu.Lock()
	if a.cancel != nil || a.state == StateSubmitted || a.state == StateExited {
		a.mu.Unlock()
		t.Stop()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	a.runCtx = context.WithoutCancel(runCtx)
	a.cancel = cancel
	a.mu.Unlock()

	go a.clock.Run(runCtx, t, func(int) { a.publish() })
}

// Stop cancels the countdown. Idempotent.
func (a *Attempt) Stop() {
	a.mu.Lock()
	a.stopLocked()
	a.mu.Unlock()
}

func (a *Attempt) stopLocked() {
	if a.cancel != nil {
		a.cancel()
	}
}

// State returns the current workflow state.
func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Result returns the submission result, nil until submitted.
func (a *Attempt) Result() *model.SubmissionResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result
}

// ─── Navigation ───────────────────────────────────────────────────

func (a *Attempt) last() int { return len(a.assessment.Questions) - 1 }

// Index returns the active question index.
func (a *Attempt) Index() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cursor
}

// Next moves to the following question, bounded at the last one.
func (a *Attempt) Next() error {
	return a.navigate(func() {
		if a.cursor < a.last() {
			a.cursor++
		}
	})
}

// Prev moves to the previous question, bounded at the first one.
func (a *Attempt) Prev() error {
	return a.navigate(func() {
		if a.cursor > 0 {
			a.cursor--
		}
	})
}

// JumpTo moves directly to question i.
func (a *Attempt) JumpTo(i int) error {
	if i < 0 || i > a.last() {
		return ErrQuestionIndex
	}
	return a.navigate(func() { a.cursor = i })
}

func (a *Attempt) navigate(move func()) error {
	a.mu.Lock()
	if a.state != StateTaking {
		a.mu.Unlock()
		return ErrInvalidTransition
	}
	move()
	a.mu.Unlock()
	a.publish()
	return nil
}

// CanPrev reports whether Previous is enabled.
func (a *Attempt) CanPrev() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cursor > 0
}

// PrimaryAction is the label of the forward button for the active question.
func (a *Attempt) PrimaryAction() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.primaryActionLocked()
}

func (a *Attempt) primaryActionLocked() string {
	if a.cursor >= a.last() {
		return ActionSubmit
	}
	return ActionNext
}

// SetAnswer records the answer of the active question. The answer is stored
// under the attempt lock so it cannot land after a submission has started.
func (a *Attempt) SetAnswer(value string) error {
	a.mu.Lock()
	if a.state != StateTaking {
		a.mu.Unlock()
		return ErrInvalidTransition
	}
	err := a.answers.Set(a.cursor, value)
	a.mu.Unlock()

	if err != nil {
		return err
	}
	a.publish()
	return nil
}

// Markers returns one marker per question for the index strip.
func (a *Attempt) Markers() []Marker {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.markersLocked()
}

func (a *Attempt) markersLocked() []Marker {
	out := make([]Marker, len(a.assessment.Questions))
	for i := range out {
		switch {
		case i == a.cursor:
			out[i] = MarkerActive
		case a.answers.IsAnswered(i):
			out[i] = MarkerAnswered
		default:
			out[i] = MarkerPlain
		}
	}
	return out
}

// SubmitWarning returns the non-blocking unanswered warning, empty when every
// question is answered.
func (a *Attempt) SubmitWarning() string {
	answered, total := a.answers.AnsweredCount(), a.answers.Len()
	if answered >= total {
		return ""
	}
	return fmt.Sprintf("You've answered %d out of %d questions.", answered, total)
}

// ─── Submission ───────────────────────────────────────────────────

// OpenSubmit opens the confirmation dialog.
func (a *Attempt) OpenSubmit() error {
	return a.transition(map[State]State{StateTaking: StateConfirmingSubmit})
}

// CancelSubmit closes the confirmation dialog.
func (a *Attempt) CancelSubmit() error {
	return a.transition(map[State]State{StateConfirmingSubmit: StateTaking})
}

// RequestExit opens the exit confirmation.
func (a *Attempt) RequestExit() error {
	return a.transition(map[State]State{StateTaking: StateConfirmingExit})
}

// CancelExit returns to taking.
func (a *Attempt) CancelExit() error {
	return a.transition(map[State]State{StateConfirmingExit: StateTaking})
}

// ConfirmExit abandons the attempt without contacting the backend.
func (a *Attempt) ConfirmExit() error {
	a.mu.Lock()
	if a.state != StateConfirmingExit {
		a.mu.Unlock()
		return ErrInvalidTransition
	}
	a.state = StateExited
	a.stopLocked()
	done := a.onFinished
	a.mu.Unlock()

	a.log.Info().Msg("Attempt exited without submitting")
	if done != nil {
		done(StateExited)
	}
	a.publish()
	return nil
}

func (a *Attempt) transition(allowed map[State]State) error {
	a.mu.Lock()
	next, ok := allowed[a.state]
	if !ok {
		err := a.rejectLocked()
		a.mu.Unlock()
		return err
	}
	a.state = next
	a.submitErr = ""
	a.mu.Unlock()
	a.publish()
	return nil
}

func (a *Attempt) rejectLocked() error {
	switch a.state {
	case StateSubmitting:
		return ErrSubmitInFlight
	case StateSubmitted:
		return ErrAlreadySubmitted
	default:
		return ErrInvalidTransition
	}
}

// ConfirmSubmit posts the full answer map once. On failure the dialog stays
// open with SubmitFailedMessage and the answers intact.
func (a *Attempt) ConfirmSubmit(ctx context.Context) (*model.SubmissionResult, error) {
	a.mu.Lock()
	if a.state != StateConfirmingSubmit {
		err := a.rejectLocked()
		a.mu.Unlock()
		return nil, err
	}
	return a.submitLocked(ctx, "confirm")
}

// expire is the countdown's zero callback: submit without confirmation.
func (a *Attempt) expire() {
	a.mu.Lock()
	switch a.state {
	case StateTaking, StateConfirmingSubmit, StateConfirmingExit:
	default:
		a.mu.Unlock()
		return
	}
	ctx := a.runCtx
	if _, err := a.submitLocked(ctx, "timeout"); err != nil {
		a.log.Warn().Err(err).Msg("Forced submission on timeout failed")
	}
}

// submitLocked must be entered with a.mu held; it releases the lock.
func (a *Attempt) submitLocked(ctx context.Context, trigger string) (*model.SubmissionResult, error) {
	a.state = StateSubmitting
	a.submitErr = ""
	a.mu.Unlock()
	a.publish()

	answers := a.answers.Snapshot()
	a.log.Info().
		Str("trigger", trigger).
		Int("answered", a.answers.AnsweredCount()).
		Int("total", len(answers)).
		Msg("Submitting assessment")

	res, err := a.submitter.SubmitAssessment(ctx, a.assessment.ID, answers)

	a.mu.Lock()
	if err != nil {
		a.state = StateConfirmingSubmit
		a.submitErr = SubmitFailedMessage
		a.mu.Unlock()
		a.publish()
		return nil, fmt.Errorf("submit assessment %d: %w", a.assessment.ID, err)
	}
	a.state = StateSubmitted
	a.result = res
	a.stopLocked()
	cb := a.onSubmitted
	done := a.onFinished
	a.mu.Unlock()

	a.log.Info().Bool("passed", res.Passed).Int("attempt_number", res.AttemptNumber).Msg("Assessment submitted")
	if cb != nil {
		cb(res)
	}
	if done != nil {
		done(StateSubmitted)
	}
	a.publish()
	return res, nil
}

// SubmitError returns the inline error of the last failed submission.
func (a *Attempt) SubmitError() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.submitErr
}

// ─── Rendering ────────────────────────────────────────────────────

// View returns a consistent snapshot of the attempt.
func (a *Attempt) View() View {
	a.mu.Lock()
	defer a.mu.Unlock()

	remaining := a.clock.Remaining()
	v := View{
		AttemptID:     a.id.String(),
		AssessmentID:  a.assessment.ID,
		Title:         a.assessment.Title,
		State:         a.state,
		Index:         a.cursor,
		Total:         len(a.assessment.Questions),
		CanPrev:       a.cursor > 0,
		PrimaryAction: a.primaryActionLocked(),
		Markers:       a.markersLocked(),
		Remaining:     remaining,
		Clock:         FormatClock(remaining),
		Tier:          TierFor(a.clock.PercentLeft()),
		Warning:       a.SubmitWarning(),
		SubmitError:   a.submitErr,
		Result:        a.result,
	}
	if v.Total > 0 {
		q := a.assessment.Questions[a.cursor]
		v.Question = &q
		v.Answer = a.answers.Get(a.cursor)
	}
	return v
}

// Subscribe returns a channel receiving a View after every tick and state
// change. Slow receivers miss updates rather than block the attempt. Call the
// returned func to unsubscribe.
func (a *Attempt) Subscribe() (<-chan View, func()) {
	ch := make(chan View, 1)
	a.subMu.Lock()
	a.subs[ch] = struct{}{}
	a.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.subMu.Lock()
			delete(a.subs, ch)
			a.subMu.Unlock()
		})
	}
}

func (a *Attempt) publish() {
	a.subMu.Lock()
	defer a.subMu.Unlock()
	if len(a.subs) == 0 {
		return
	}
	v := a.View()
	for ch := range a.subs {
		select {
		case ch <- v:
		default:
			// drop the stale view and deliver the latest one
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}
