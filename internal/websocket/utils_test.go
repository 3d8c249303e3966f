package websocket

import (
	"testing"

	"github.com/stemsi/learning-portal/internal/assessment"
	"github.com/stretchr/testify/assert"
)

func view(remaining int) assessment.View {
	return assessment.View{
		State:     assessment.StateTaking,
		Index:     0,
		Markers:   []assessment.Marker{assessment.MarkerActive, assessment.MarkerPlain},
		Remaining: remaining,
		Clock:     assessment.FormatClock(remaining),
		Tier:      assessment.TierNormal,
	}
}

func TestBuildEventFirstIsView(t *testing.T) {
	ev := BuildEvent(nil, view(60))
	assert.IsType(t, ViewResponse{}, ev)
}

func TestBuildEventClockOnlyIsTick(t *testing.T) {
	prev := view(60)
	ev := BuildEvent(&prev, view(59))
	tick, ok := ev.(TickResponse)
	assert.True(t, ok)
	assert.Equal(t, "0:59", tick.Clock)
	assert.Equal(t, 59, tick.Remaining)
}

func TestBuildEventStateChangeIsView(t *testing.T) {
	prev := view(60)
	next := view(59)
	next.Markers = []assessment.Marker{assessment.MarkerAnswered, assessment.MarkerActive}
	next.Index = 1
	assert.IsType(t, ViewResponse{}, BuildEvent(&prev, next))
}

func TestBuildEventSubmittedIsResult(t *testing.T) {
	prev := view(10)
	done := view(10)
	done.State = assessment.StateSubmitted
	assert.IsType(t, ResultResponse{}, BuildEvent(&prev, done))
}
