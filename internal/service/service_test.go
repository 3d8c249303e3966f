package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stemsi/learning-portal/internal/assessment"
	"github.com/stemsi/learning-portal/internal/client"
	"github.com/stemsi/learning-portal/internal/metrics"
	"github.com/stemsi/learning-portal/internal/model"
	"github.com/stemsi/learning-portal/internal/profile"
	"github.com/stemsi/learning-portal/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend is an in-memory stand-in for the learning backend.
type fakeBackend struct {
	mu      sync.Mutex
	mux     *http.ServeMux
	calls   map[string]int
	bodies  map[string][]byte
	profile *model.Profile
}

func newFakeBackend(t *testing.T) (*fakeBackend, *client.Client, *session.MemoryStore) {
	t.Helper()
	fb := &fakeBackend{
		mux:    http.NewServeMux(),
		calls:  make(map[string]int),
		bodies: make(map[string][]byte),
	}
	srv := httptest.NewServer(http.HandlerFunc(fb.serve))
	t.Cleanup(srv.Close)

	store := session.NewMemoryStore()
	return fb, client.New(srv.URL, store), store
}

func (fb *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	var raw json.RawMessage
	_ = json.NewDecoder(r.Body).Decode(&raw)
	fb.mu.Lock()
	fb.calls[key]++
	fb.bodies[key] = raw
	fb.mu.Unlock()
	fb.mux.ServeHTTP(w, r)
}

func (fb *fakeBackend) count(key string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.calls[key]
}

func (fb *fakeBackend) body(key string) []byte {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.bodies[key]
}

func (fb *fakeBackend) handle(pattern string, status int, body interface{}) {
	fb.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, status, body)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func signIn(t *testing.T, store session.Store) {
	t.Helper()
	require.NoError(t, store.SetTokens(context.Background(), session.Tokens{Access: "acc", Refresh: "ref"}))
}

func fptr(v float64) *float64 { return &v }

// ─── Auth ─────────────────────────────────────────────────────────

func TestLoginRememberMe(t *testing.T) {
	fb, api, store := newFakeBackend(t)
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("k"))
	require.NoError(t, err)
	fb.handle("/auth/student/login/", http.StatusOK, model.TokenPair{Access: access, Refresh: "ref"})

	svc := NewAuthService(api, store, zerolog.Nop())
	ctx := context.Background()

	info, err := svc.Login(ctx, model.StudentLoginRequest{Email: " student@example.com ", Password: "password123", RememberMe: true})
	require.NoError(t, err)
	assert.True(t, info.Authenticated)
	assert.Equal(t, "student@example.com", info.RememberedEmail)
	require.NotNil(t, info.ExpiresAt)
	assert.True(t, exp.Equal(*info.ExpiresAt))

	var sent map[string]string
	require.NoError(t, json.Unmarshal(fb.body("POST /auth/student/login/"), &sent))
	assert.Equal(t, map[string]string{"email": "student@example.com", "password": "password123"}, sent)

	fresh, _ := store.ConsumeNewLogin(ctx)
	assert.True(t, fresh)

	info, err = svc.Login(ctx, model.StudentLoginRequest{Email: "student@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Empty(t, info.RememberedEmail, "login without remember me forgets the email")
}

func TestLogoutKeepsRememberedEmail(t *testing.T) {
	fb, api, store := newFakeBackend(t)
	fb.handle("/auth/logout/", http.StatusOK, map[string]string{"message": "ok"})
	ctx := context.Background()
	signIn(t, store)
	require.NoError(t, store.SetRememberedEmail(ctx, "me@example.com"))

	svc := NewAuthService(api, store, zerolog.Nop())
	require.NoError(t, svc.Logout(ctx))

	info, err := svc.Session(ctx)
	require.NoError(t, err)
	assert.False(t, info.Authenticated)
	assert.Equal(t, "me@example.com", info.RememberedEmail)
	assert.Equal(t, 1, fb.count("POST /auth/logout/"))
}

// ─── Dashboard & career path ──────────────────────────────────────

func TestDashboardDerivesPending(t *testing.T) {
	fb, api, store := newFakeBackend(t)
	signIn(t, store)
	fb.handle("/student/student_dashboard/", http.StatusOK, model.Dashboard{
		Stats: model.DashboardStats{TotalAssessments: 5, CompletedAssessments: 2, AverageScore: 72.5},
	})

	d, err := NewDashboardService(api).GetDashboardData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, d.PendingAssessments)
	assert.Equal(t, 72.5, d.Stats.AverageScore)
}

func TestCareerPathRoleTitle(t *testing.T) {
	fb, api, store := newFakeBackend(t)
	signIn(t, store)
	fb.handle("/student/my_career_path/", http.StatusOK, map[string]interface{}{
		"data": model.CareerPath{PreferredRole: "software_developer", ProgressPercentage: 45},
	})

	cp, err := NewCareerPathService(api).GetCareerPath(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Software Developer", cp.RoleTitle)
	assert.Equal(t, 45.0, cp.ProgressPercentage)
}

func TestRoleTitle(t *testing.T) {
	assert.Equal(t, "Data Scientist", RoleTitle("data_scientist"))
	assert.Equal(t, "Ui Ux Designer", RoleTitle("UI-UX designer"))
	assert.Empty(t, RoleTitle(""))
}

// ─── Assessments ──────────────────────────────────────────────────

func TestSummarizeAssessments(t *testing.T) {
	m := SummarizeAssessments(&model.MyAssessments{
		Pending:    []model.AssessmentSummary{{}, {}},
		InProgress: []model.AssessmentSummary{{}},
		Completed: []model.AssessmentSummary{
			{BestScore: fptr(80)},
			{BestScore: fptr(75.5)},
		},
	})
	assert.Equal(t, AssessmentMetrics{Total: 5, Pending: 2, InProgress: 1, Completed: 2, AverageBestScore: 77.8}, m)

	empty := SummarizeAssessments(&model.MyAssessments{})
	assert.Equal(t, 0.0, empty.AverageBestScore)
}

type manualTicker struct{ ch chan time.Time }

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               {}

func TestStartAndSubmitAttempt(t *testing.T) {
	fb, api, store := newFakeBackend(t)
	signIn(t, store)
	fb.handle("/assessments/3/", http.StatusOK, model.Assessment{
		ID: 3, Title: "Python", DurationMinutes: 20,
		Questions: []model.Question{
			{QuestionText: "2+2?", Type: model.QuestionTypeMCQ, Marks: 1, Options: []string{"3", "4"}},
			{QuestionText: "Explain GIL", Type: model.QuestionTypeDescriptive, Marks: 4},
		},
	})
	fb.handle("/assessments/3/submit/", http.StatusOK, map[string]interface{}{
		"data": model.SubmissionResult{Passed: true, AttemptNumber: 1},
	})

	svc := NewAssessmentService(api, nil, zerolog.Nop())
	svc.SetTickerFactory(func() assessment.Ticker { return &manualTicker{ch: make(chan time.Time)} })
	defer svc.Shutdown()

	ctx := context.Background()
	at, err := svc.StartAttempt(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 1200, at.Clock().Remaining())

	got, err := svc.Attempt(at.ID())
	require.NoError(t, err)
	assert.Same(t, at, got)

	require.NoError(t, at.SetAnswer("4"))
	require.NoError(t, at.OpenSubmit())
	res, err := at.ConfirmSubmit(ctx)
	require.NoError(t, err)
	assert.True(t, res.Passed)

	var body struct {
		Answers map[string]model.Answer `json:"answers"`
	}
	require.NoError(t, json.Unmarshal(fb.body("POST /assessments/3/submit/"), &body))
	assert.Equal(t, map[string]model.Answer{"0": {Answer: "4"}, "1": {Answer: ""}}, body.Answers)

	require.NoError(t, svc.DiscardAttempt(at.ID()))
	_, err = svc.Attempt(at.ID())
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestFinishedAttemptsLeaveActiveGauge(t *testing.T) {
	fb, api, store := newFakeBackend(t)
	signIn(t, store)
	fb.handle("/assessments/3/", http.StatusOK, model.Assessment{
		ID: 3, Title: "Python", DurationMinutes: 20,
		Questions: []model.Question{{QuestionText: "2+2?", Type: model.QuestionTypeMCQ, Marks: 1, Options: []string{"3", "4"}}},
	})
	fb.handle("/assessments/3/submit/", http.StatusOK, map[string]interface{}{
		"data": model.SubmissionResult{Passed: true, AttemptNumber: 1},
	})

	m := metrics.New()
	svc := NewAssessmentService(api, m, zerolog.Nop())
	svc.SetTickerFactory(func() assessment.Ticker { return &manualTicker{ch: make(chan time.Time)} })
	now := time.Now()
	svc.now = func() time.Time { return now }
	defer svc.Shutdown()

	ctx := context.Background()
	submitted, err := svc.StartAttempt(ctx, 3)
	require.NoError(t, err)
	exited, err := svc.StartAttempt(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActiveAttempts))

	require.NoError(t, submitted.OpenSubmit())
	_, err = submitted.ConfirmSubmit(ctx)
	require.NoError(t, err)
	require.NoError(t, exited.RequestExit())
	require.NoError(t, exited.ConfirmExit())

	assert.Zero(t, svc.ActiveCount())
	assert.Zero(t, testutil.ToFloat64(m.ActiveAttempts))

	// The result stays readable until the retention window passes.
	_, err = svc.Attempt(submitted.ID())
	require.NoError(t, err)

	now = now.Add(finishedRetention + time.Minute)
	running, err := svc.StartAttempt(ctx, 3)
	require.NoError(t, err)
	_, err = svc.Attempt(submitted.ID())
	assert.ErrorIs(t, err, ErrAttemptNotFound)
	_, err = svc.Attempt(exited.ID())
	assert.ErrorIs(t, err, ErrAttemptNotFound)
	_, err = svc.Attempt(running.ID())
	assert.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveAttempts))
}

// ─── Profile ──────────────────────────────────────────────────────

func lockedProfile() model.Profile {
	return model.Profile{
		UserEmail:     "student@example.com",
		Phone:         "+1234567890",
		Department:    "Information Technology",
		PreferredRole: "software_developer",
		Batch:         "2020-2024",
		StudentID:     "ABCDEF121",
		CurrentCGPA:   fptr(3.5),
		Skills:        "Python, Java",
	}
}

func TestLockedProfileRefusesEdit(t *testing.T) {
	fb, api, store := newFakeBackend(t)
	signIn(t, store)
	fb.handle("/student/my_profile/", http.StatusOK, map[string]interface{}{"data": lockedProfile()})

	svc := NewProfileService(api, store, zerolog.Nop())
	v, err := svc.GetProfile(context.Background())
	require.NoError(t, err)
	assert.False(t, v.CanEdit)
	assert.Equal(t, profile.KindLocked, v.Permission.Kind)
	for _, f := range v.Fields {
		assert.False(t, f.Editable, f.Name)
		assert.False(t, f.Editing, f.Name)
	}

	_, err = svc.StartEdit(context.Background(), "phone")
	assert.ErrorIs(t, err, profile.ErrNotEditable)
	assert.Zero(t, fb.count("PUT /student/update_profile/"))
}

func TestApprovedProfileFieldSave(t *testing.T) {
	fb, api, store := newFakeBackend(t)
	signIn(t, store)
	p := lockedProfile()
	exp := time.Now().Add(150 * time.Minute)
	p.CanUpdateProfile = true
	p.UpdatePermissionExpiresAt = &exp
	fb.handle("/student/my_profile/", http.StatusOK, map[string]interface{}{"data": p})
	fb.handle("/student/update_profile/", http.StatusOK, map[string]interface{}{"message": "Profile updated"})

	svc := NewProfileService(api, store, zerolog.Nop())
	ctx := context.Background()

	v, err := svc.StartEdit(ctx, "phone")
	require.NoError(t, err)
	require.NotNil(t, v.TimeRemaining)
	assert.InDelta(t, 2.5, *v.TimeRemaining, 0.01)
	assert.Equal(t, "2 hours", v.TimeRemainingText)

	_, err = svc.SaveField(ctx, "phone", "+1234567890")
	require.NoError(t, err)
	assert.Zero(t, fb.count("PUT /student/update_profile/"), "unchanged value must not be sent")

	_, err = svc.StartEdit(ctx, "skills")
	require.NoError(t, err)
	v, err = svc.SaveField(ctx, "skills", "Go, Python, Go")
	require.NoError(t, err)
	assert.Equal(t, 1, fb.count("PUT /student/update_profile/"))
	assert.Equal(t, []string{"Go", "Python"}, v.Skills)

	var sent model.UpdateProfileRequest
	require.NoError(t, json.Unmarshal(fb.body("PUT /student/update_profile/"), &sent))
	assert.Equal(t, "Go, Python", sent.Skills)
	assert.Equal(t, "ABCDEF121", sent.StudentID)
	assert.Equal(t, "2020-2024", sent.Batch)
}

func TestSavingStoredSkillsMakesNoCall(t *testing.T) {
	fb, api, store := newFakeBackend(t)
	signIn(t, store)
	p := lockedProfile()
	exp := time.Now().Add(time.Hour)
	p.CanUpdateProfile = true
	p.UpdatePermissionExpiresAt = &exp
	p.Skills = "Go,Python"
	fb.handle("/student/my_profile/", http.StatusOK, map[string]interface{}{"data": p})
	fb.handle("/student/update_profile/", http.StatusOK, map[string]interface{}{"message": "Profile updated"})

	svc := NewProfileService(api, store, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.StartEdit(ctx, "skills")
	require.NoError(t, err)
	v, err := svc.SaveField(ctx, "skills", "Go,Python")
	require.NoError(t, err)
	assert.Zero(t, fb.count("PUT /student/update_profile/"))
	for _, f := range v.Fields {
		if f.Name == "skills" {
			assert.False(t, f.Editing)
		}
	}
}

func TestRequestPermission(t *testing.T) {
	fb, api, store := newFakeBackend(t)
	signIn(t, store)
	svc := NewProfileService(api, store, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.RequestPermission(ctx, "too short")
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "Please provide a more detailed reason (at least 10 characters).", fe.Fields["reason"])
	assert.Zero(t, fb.count("POST /student/request_update_permission/"))

	fb.handle("/student/request_update_permission/", http.StatusBadRequest, map[string]string{"message": "You already have a pending request"})
	_, err = svc.RequestPermission(ctx, "I need to update my phone number")
	var re *RequestError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "You already have a pending request", re.Message)

	var sent model.PermissionRequest
	require.NoError(t, json.Unmarshal(fb.body("POST /student/request_update_permission/"), &sent))
	assert.Equal(t, "I need to update my phone number", sent.Reason)
}

func TestRequestPermissionGenericFailure(t *testing.T) {
	fb, api, store := newFakeBackend(t)
	signIn(t, store)
	fb.handle("/student/request_update_permission/", http.StatusInternalServerError, map[string]string{})

	_, err := NewProfileService(api, store, zerolog.Nop()).RequestPermission(context.Background(), "   Please unlock my profile   ")
	var re *RequestError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, profile.RequestFailedMessage, re.Message)
}

func TestCompletionPrompt(t *testing.T) {
	fb, api, store := newFakeBackend(t)
	signIn(t, store)
	svc := NewProfileService(api, store, zerolog.Nop())
	ctx := context.Background()

	p, err := svc.CompletionPrompt(ctx)
	require.NoError(t, err)
	assert.False(t, p.Show, "no prompt without a fresh login")

	fb.handle("/student/my_profile/", http.StatusNotFound, map[string]string{"detail": "Profile not found"})
	require.NoError(t, store.MarkNewLogin(ctx))
	p, err = svc.CompletionPrompt(ctx)
	require.NoError(t, err)
	assert.Equal(t, &CompletionPrompt{Show: true, Mode: "create"}, p)

	p, err = svc.CompletionPrompt(ctx)
	require.NoError(t, err)
	assert.False(t, p.Show, "flag is consumed once")
}

func TestCreateProfileValidation(t *testing.T) {
	fb, api, store := newFakeBackend(t)
	signIn(t, store)
	_, err := NewProfileService(api, store, zerolog.Nop()).CreateProfile(context.Background(), model.CreateProfileRequest{Phone: "123"})
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Fields, "phone")
	assert.Zero(t, fb.count("POST /student/create_profile/"))
}

// ─── Notifications ────────────────────────────────────────────────

func TestNotificationReadMarks(t *testing.T) {
	fb, api, store := newFakeBackend(t)
	signIn(t, store)
	created := time.Now().Add(-2 * time.Hour)
	fb.handle("/student/my_notifications/", http.StatusOK, model.NotificationList{
		Notifications: []model.Notification{
			{ID: 1, Title: "New assessment", CreatedAt: &created},
			{ID: 2, Title: "Evaluated", IsRead: true},
		},
		UnreadCount: 1,
	})
	fb.handle("/student/1/mark_notification_read/", http.StatusOK, map[string]string{})
	fb.handle("/student/2/mark_notification_read/", http.StatusOK, map[string]string{})
	fb.handle("/student/mark_all_notifications_read/", http.StatusOK, map[string]string{})

	svc := NewNotificationService(api, nil, zerolog.Nop())
	ctx := context.Background()

	inbox, err := svc.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2 hours ago", inbox.Notifications[0].Age)

	inbox, err = svc.MarkRead(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, inbox.UnreadCount)
	assert.True(t, inbox.Notifications[0].IsRead)

	inbox, err = svc.MarkRead(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, inbox.UnreadCount, "unread never goes below zero")

	_, err = svc.MarkAllRead(ctx)
	require.NoError(t, err)
	assert.Zero(t, fb.count("POST /student/mark_all_notifications_read/"), "nothing to mark")
}

func TestNotificationPollSkippedWhileViewing(t *testing.T) {
	fb, api, store := newFakeBackend(t)
	signIn(t, store)
	fb.handle("/student/my_notifications/", http.StatusOK, model.NotificationList{UnreadCount: 4})

	svc := NewNotificationService(api, nil, zerolog.Nop())
	ctx := context.Background()

	svc.SetViewing(true)
	polled, err := svc.Poll(ctx)
	require.NoError(t, err)
	assert.False(t, polled)
	assert.Zero(t, fb.count("GET /student/my_notifications/"))

	svc.SetViewing(false)
	polled, err = svc.Poll(ctx)
	require.NoError(t, err)
	assert.True(t, polled)
	assert.Equal(t, 4, svc.UnreadCount())
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "Just now"},
		{time.Minute, "1 minute ago"},
		{45 * time.Minute, "45 minutes ago"},
		{time.Hour, "1 hour ago"},
		{5 * time.Hour, "5 hours ago"},
		{24 * time.Hour, "1 day ago"},
		{6 * 24 * time.Hour, "6 days ago"},
		{10 * 24 * time.Hour, "May 10, 2026"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RelativeTime(now, now.Add(-tt.ago)))
	}
}
