package assessment

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stemsi/learning-portal/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSubmitter struct {
	mock.Mock
}

func (m *mockSubmitter) SubmitAssessment(ctx context.Context, id int, answers model.AnswerMap) (*model.SubmissionResult, error) {
	args := m.Called(ctx, id, answers)
	res, _ := args.Get(0).(*model.SubmissionResult)
	return res, args.Error(1)
}

// countingSubmitter records calls without expectations, for timer-driven paths.
type countingSubmitter struct {
	calls atomic.Int32
	last  atomic.Value
	err   error
}

func (c *countingSubmitter) SubmitAssessment(_ context.Context, _ int, answers model.AnswerMap) (*model.SubmissionResult, error) {
	c.calls.Add(1)
	c.last.Store(answers)
	if c.err != nil {
		return nil, c.err
	}
	return &model.SubmissionResult{Passed: true, AttemptNumber: 1}, nil
}

func sampleAssessment(n, minutes int) *model.Assessment {
	a := &model.Assessment{ID: 42, Title: "Go Basics", DurationMinutes: minutes, TotalMarks: n * 2}
	for i := 0; i < n; i++ {
		a.Questions = append(a.Questions, model.Question{
			QuestionText: "Q",
			Type:         model.QuestionTypeMCQ,
			Marks:        2,
			Options:      []string{"A", "B", "C"},
		})
	}
	return a
}

func TestNewAttemptSeedsAnswers(t *testing.T) {
	for _, n := range []int{0, 1, 5, 20} {
		at := NewAttempt(sampleAssessment(n, 10), &countingSubmitter{})
		snap := at.Answers().Snapshot()
		require.Len(t, snap, n)
		for i := 0; i < n; i++ {
			assert.Equal(t, model.Answer{Answer: ""}, snap[i])
		}
	}
}

func TestAttemptDurationFallback(t *testing.T) {
	at := NewAttempt(sampleAssessment(1, 0), &countingSubmitter{})
	assert.Equal(t, 3600, at.Clock().Remaining())

	at = NewAttempt(sampleAssessment(1, 15), &countingSubmitter{})
	assert.Equal(t, 900, at.Clock().Remaining())
}

func TestSetAnswerIsolation(t *testing.T) {
	at := NewAttempt(sampleAssessment(5, 10), &countingSubmitter{})
	require.NoError(t, at.SetAnswer("A"))
	require.NoError(t, at.JumpTo(3))
	require.NoError(t, at.SetAnswer("C"))

	before := at.Answers().Snapshot()
	require.NoError(t, at.JumpTo(2))
	require.NoError(t, at.SetAnswer("B"))
	after := at.Answers().Snapshot()

	for i := range before {
		if i == 2 {
			continue
		}
		assert.Equal(t, before[i], after[i], "index %d changed", i)
	}
	assert.Equal(t, "B", after[2].Answer)
}

func TestWhitespaceCountsAsAnswered(t *testing.T) {
	at := NewAttempt(sampleAssessment(2, 10), &countingSubmitter{})
	require.NoError(t, at.SetAnswer("   "))
	assert.True(t, at.Answers().IsAnswered(0))
	assert.False(t, at.Answers().IsAnswered(1))
}

func TestNavigationBounds(t *testing.T) {
	at := NewAttempt(sampleAssessment(3, 10), &countingSubmitter{})
	assert.False(t, at.CanPrev())
	require.NoError(t, at.Prev())
	assert.Equal(t, 0, at.Index())
	assert.Equal(t, ActionNext, at.PrimaryAction())

	require.NoError(t, at.Next())
	require.NoError(t, at.Next())
	assert.Equal(t, 2, at.Index())
	assert.True(t, at.CanPrev())
	assert.Equal(t, ActionSubmit, at.PrimaryAction())

	require.NoError(t, at.Next())
	assert.Equal(t, 2, at.Index())

	assert.ErrorIs(t, at.JumpTo(3), ErrQuestionIndex)
	assert.ErrorIs(t, at.JumpTo(-1), ErrQuestionIndex)
}

func TestMarkers(t *testing.T) {
	at := NewAttempt(sampleAssessment(4, 10), &countingSubmitter{})
	require.NoError(t, at.JumpTo(1))
	require.NoError(t, at.SetAnswer("B"))
	require.NoError(t, at.JumpTo(3))
	require.NoError(t, at.SetAnswer("A"))
	require.NoError(t, at.JumpTo(1))

	assert.Equal(t, []Marker{MarkerPlain, MarkerActive, MarkerPlain, MarkerAnswered}, at.Markers())
}

func TestSubmitWarningIsNonBlocking(t *testing.T) {
	sub := &mockSubmitter{}
	sub.On("SubmitAssessment", mock.Anything, 42, mock.Anything).
		Return(&model.SubmissionResult{Passed: false, AttemptNumber: 1}, nil).Once()

	at := NewAttempt(sampleAssessment(5, 10), sub)
	for _, i := range []int{0, 2, 4} {
		require.NoError(t, at.JumpTo(i))
		require.NoError(t, at.SetAnswer("A"))
	}

	require.NoError(t, at.OpenSubmit())
	w := at.SubmitWarning()
	assert.Contains(t, w, "3")
	assert.Contains(t, w, "5")
	assert.Equal(t, "You've answered 3 out of 5 questions.", w)

	res, err := at.ConfirmSubmit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.AttemptNumber)
	assert.Equal(t, StateSubmitted, at.State())
	sub.AssertExpectations(t)
}

func TestSubmitWarningEmptyWhenComplete(t *testing.T) {
	at := NewAttempt(sampleAssessment(2, 10), &countingSubmitter{})
	require.NoError(t, at.SetAnswer("A"))
	require.NoError(t, at.Next())
	require.NoError(t, at.SetAnswer("B"))
	assert.Empty(t, at.SubmitWarning())
}

func TestSubmitSendsFullAnswerMap(t *testing.T) {
	sub := &mockSubmitter{}
	want := model.AnswerMap{0: {Answer: "A"}, 1: {Answer: ""}, 2: {Answer: "free text"}}
	sub.On("SubmitAssessment", mock.Anything, 42, want).
		Return(&model.SubmissionResult{Passed: true, AttemptNumber: 3}, nil).Once()

	var got *model.SubmissionResult
	at := NewAttempt(sampleAssessment(3, 10), sub, OnSubmitted(func(r *model.SubmissionResult) { got = r }))
	require.NoError(t, at.SetAnswer("A"))
	require.NoError(t, at.JumpTo(2))
	require.NoError(t, at.SetAnswer("free text"))
	require.NoError(t, at.OpenSubmit())

	_, err := at.ConfirmSubmit(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 3, got.AttemptNumber)
	assert.Equal(t, got, at.Result())
	sub.AssertExpectations(t)

	_, err = at.ConfirmSubmit(context.Background())
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	assert.ErrorIs(t, at.OpenSubmit(), ErrAlreadySubmitted)
}

func TestSubmitFailureKeepsDialogAndAnswers(t *testing.T) {
	sub := &mockSubmitter{}
	sub.On("SubmitAssessment", mock.Anything, 42, mock.Anything).Return(nil, errors.New("connection refused")).Once()
	sub.On("SubmitAssessment", mock.Anything, 42, mock.Anything).Return(&model.SubmissionResult{Passed: true}, nil).Once()

	at := NewAttempt(sampleAssessment(2, 10), sub)
	require.NoError(t, at.SetAnswer("A"))
	require.NoError(t, at.OpenSubmit())

	_, err := at.ConfirmSubmit(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateConfirmingSubmit, at.State())
	assert.Equal(t, SubmitFailedMessage, at.SubmitError())
	assert.Equal(t, "A", at.Answers().Get(0))

	_, err = at.ConfirmSubmit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateSubmitted, at.State())
	assert.Empty(t, at.SubmitError())
	sub.AssertNumberOfCalls(t, "SubmitAssessment", 2)
}

func TestConcurrentConfirmSubmitsOnce(t *testing.T) {
	release := make(chan struct{})
	sub := &mockSubmitter{}
	sub.On("SubmitAssessment", mock.Anything, 42, mock.Anything).
		WaitUntil(time.After(50*time.Millisecond)).
		Return(&model.SubmissionResult{Passed: true}, nil).Once()

	at := NewAttempt(sampleAssessment(1, 10), sub)
	require.NoError(t, at.OpenSubmit())

	var wg sync.WaitGroup
	var ok, inFlight, done atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-release
			_, err := at.ConfirmSubmit(context.Background())
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrSubmitInFlight):
				inFlight.Add(1)
			case errors.Is(err, ErrAlreadySubmitted):
				done.Add(1)
			}
		}()
	}
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(7), inFlight.Load()+done.Load())
	sub.AssertNumberOfCalls(t, "SubmitAssessment", 1)
}

func TestTimeoutForcesSingleSubmission(t *testing.T) {
	sub := &countingSubmitter{}
	at := NewAttempt(sampleAssessment(3, 1), sub)
	require.NoError(t, at.SetAnswer("B"))

	for i := 0; i < 61; i++ {
		at.Clock().Tick()
	}

	assert.Equal(t, int32(1), sub.calls.Load())
	assert.Equal(t, 0, at.Clock().Remaining())
	assert.Equal(t, StateSubmitted, at.State())
	assert.Equal(t, "B", sub.last.Load().(model.AnswerMap)[0].Answer)
}

func TestAnswersFreezeAtTimeout(t *testing.T) {
	sub := &countingSubmitter{}
	at := NewAttempt(sampleAssessment(1, 1), sub)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if errors.Is(at.SetAnswer(string(rune('A'+i%3))), ErrInvalidTransition) {
				return
			}
		}
	}()

	for i := 0; i < 60; i++ {
		at.Clock().Tick()
	}
	close(stop)
	wg.Wait()

	require.Equal(t, StateSubmitted, at.State())
	submitted := sub.last.Load().(model.AnswerMap)
	assert.Equal(t, submitted, at.Answers().Snapshot())
	assert.ErrorIs(t, at.SetAnswer("late"), ErrInvalidTransition)
}

func TestTimeoutSubmitsFromExitOverlay(t *testing.T) {
	sub := &countingSubmitter{}
	at := NewAttempt(sampleAssessment(1, 1), sub)
	require.NoError(t, at.RequestExit())

	for i := 0; i < 60; i++ {
		at.Clock().Tick()
	}
	assert.Equal(t, int32(1), sub.calls.Load())
	assert.Equal(t, StateSubmitted, at.State())
}

func TestRunningClockSubmitsOnExpiry(t *testing.T) {
	sub := &countingSubmitter{}
	at := NewAttempt(sampleAssessment(2, 1), sub)

	tick := newFakeTicker(61)
	for i := 0; i < 61; i++ {
		tick.ch <- time.Now()
	}
	at.Start(context.Background(), tick)

	assert.Eventually(t, func() bool { return at.State() == StateSubmitted }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), sub.calls.Load())
	assert.Equal(t, 0, at.Clock().Remaining())
}

func TestExitMakesNoNetworkCall(t *testing.T) {
	sub := &mockSubmitter{}
	at := NewAttempt(sampleAssessment(2, 10), sub)
	tick := newFakeTicker(1)
	at.Start(context.Background(), tick)

	require.NoError(t, at.RequestExit())
	assert.ErrorIs(t, at.Next(), ErrInvalidTransition)
	require.NoError(t, at.CancelExit())
	assert.Equal(t, StateTaking, at.State())

	require.NoError(t, at.RequestExit())
	require.NoError(t, at.ConfirmExit())
	assert.Equal(t, StateExited, at.State())

	select {
	case <-tick.stopped:
	case <-time.After(time.Second):
		t.Fatal("countdown not cancelled on exit")
	}
	sub.AssertNotCalled(t, "SubmitAssessment", mock.Anything, mock.Anything, mock.Anything)
}

func TestExitOnlyFromTaking(t *testing.T) {
	at := NewAttempt(sampleAssessment(2, 10), &countingSubmitter{})
	require.NoError(t, at.OpenSubmit())
	assert.ErrorIs(t, at.RequestExit(), ErrInvalidTransition)
	require.NoError(t, at.CancelSubmit())
	assert.NoError(t, at.RequestExit())
}

func TestSubscribeReceivesLatestView(t *testing.T) {
	at := NewAttempt(sampleAssessment(3, 10), &countingSubmitter{})
	ch, unsubscribe := at.Subscribe()
	defer unsubscribe()

	require.NoError(t, at.Next())
	require.NoError(t, at.Next())

	v := <-ch
	assert.Equal(t, 2, v.Index)
	assert.Equal(t, ActionSubmit, v.PrimaryAction)
	assert.Equal(t, "10:00", v.Clock)
	assert.Equal(t, TierNormal, v.Tier)
}
