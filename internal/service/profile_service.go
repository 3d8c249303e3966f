package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/learning-portal/internal/client"
	"github.com/stemsi/learning-portal/internal/model"
	"github.com/stemsi/learning-portal/internal/profile"
	"github.com/stemsi/learning-portal/internal/session"
	"github.com/stemsi/learning-portal/internal/validator"
)

// ErrUnknownField is returned when editing a field the portal does not expose.
var ErrUnknownField = errors.New("unknown profile field")

// FieldError is a validation failure keyed by field name.
type FieldError struct {
	Fields map[string]string
}

func (e *FieldError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for k, v := range e.Fields {
		parts = append(parts, k+": "+v)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// RequestError is a failed backend write with the message to show the student.
type RequestError struct {
	Message string
	Err     error
}

func (e *RequestError) Error() string { return e.Message }
func (e *RequestError) Unwrap() error { return e.Err }

// ProfileView is the profile with its effective permission.
type ProfileView struct {
	Profile           model.Profile      `json:"profile"`
	Permission        profile.Permission `json:"permission"`
	CanEdit           bool               `json:"can_edit"`
	Status            string             `json:"status"`
	TimeRemaining     *float64           `json:"time_remaining_hours,omitempty"`
	TimeRemainingText string             `json:"time_remaining,omitempty"`
	Skills            []string           `json:"skills"`
	Fields            []FieldView        `json:"fields"`
}

// FieldView is the render state of one editable field.
type FieldView struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Editable bool   `json:"editable"`
	Editing  bool   `json:"editing"`
	Error    string `json:"error,omitempty"`
}

// CompletionPrompt tells the front end whether to show the profile form after login.
type CompletionPrompt struct {
	Show bool   `json:"show"`
	Mode string `json:"mode,omitempty"` // "create" or "update"
}

// ProfileService handles the profile, its permission and edits.
type ProfileService struct {
	api   *client.Client
	store session.Store
	log   zerolog.Logger
	now   func() time.Time

	mu     sync.Mutex
	editor *profile.Editor
}

// NewProfileService creates a new ProfileService.
func NewProfileService(api *client.Client, store session.Store, log zerolog.Logger) *ProfileService {
	return &ProfileService{
		api:   api,
		store: store,
		log:   log.With().Str("component", "profile_service").Logger(),
		now:   time.Now,
	}
}

// GetProfile fetches the profile and recomputes the permission.
func (s *ProfileService) GetProfile(ctx context.Context) (*ProfileView, error) {
	ed, err := s.refresh(ctx)
	if err != nil {
		return nil, err
	}
	return s.view(ed), nil
}

func (s *ProfileService) refresh(ctx context.Context) (*profile.Editor, error) {
	p, err := s.api.MyProfile(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editor == nil {
		s.editor = profile.NewEditor(p, s.api,
			profile.WithClock(s.now),
			profile.WithLogger(s.log),
			profile.OnProfileUpdated(func(up *model.Profile) {
				s.log.Info().Msg("Profile field updated")
			}),
		)
	} else {
		s.editor.Load(p)
	}
	return s.editor, nil
}

func (s *ProfileService) view(ed *profile.Editor) *ProfileView {
	p := ed.Profile()
	perm := ed.Permission()
	now := s.now()
	v := &ProfileView{
		Profile:    p,
		Permission: perm,
		CanEdit:    ed.CanEdit(),
		Status:     perm.Describe(now),
		Skills:     profile.SplitSkills(p.Skills),
	}
	if h, ok := ed.TimeRemaining(); ok {
		v.TimeRemaining = &h
		v.TimeRemainingText = profile.FormatTimeRemaining(h)
	}
	v.Fields = []FieldView{
		fieldView(ed.Phone.Name(), ed.Phone.Draft(), ed.Phone.Editable(), ed.Phone.Editing(), ed.Phone.Error()),
		fieldView(ed.CGPA.Name(), formatCGPA(p.CurrentCGPA, ed.CGPA.Draft(), ed.CGPA.Editing()), ed.CGPA.Editable(), ed.CGPA.Editing(), ed.CGPA.Error()),
		fieldView(ed.Skills.Name(), ed.Skills.Draft(), ed.Skills.Editable(), ed.Skills.Editing(), ed.Skills.Error()),
	}
	return v
}

func fieldView(name, value string, editable, editing bool, errMsg string) FieldView {
	return FieldView{Name: name, Value: value, Editable: editable, Editing: editing, Error: errMsg}
}

func formatCGPA(stored *float64, draft float64, editing bool) string {
	if stored == nil && !editing {
		return ""
	}
	return fmt.Sprintf("%.2f", draft)
}

// StartEdit puts one field into edit mode. It fails with profile.ErrNotEditable
// unless the permission is approved and unexpired.
func (s *ProfileService) StartEdit(ctx context.Context, field string) (*ProfileView, error) {
	ed, err := s.refresh(ctx)
	if err != nil {
		return nil, err
	}
	switch field {
	case "phone":
		err = ed.Phone.StartEdit()
	case "current_cgpa":
		err = ed.CGPA.StartEdit()
	case "skills":
		err = ed.Skills.StartEdit()
	default:
		return nil, ErrUnknownField
	}
	if err != nil {
		return nil, err
	}
	return s.view(ed), nil
}

// CancelEdit discards a field draft.
func (s *ProfileService) CancelEdit(field string) (*ProfileView, error) {
	ed := s.current()
	if ed == nil {
		return nil, profile.ErrNotEditing
	}
	switch field {
	case "phone":
		ed.Phone.Cancel()
	case "current_cgpa":
		ed.CGPA.Cancel()
	case "skills":
		ed.Skills.Cancel()
	default:
		return nil, ErrUnknownField
	}
	return s.view(ed), nil
}

// SaveField sets the draft of a field in edit mode and saves it. An
// unchanged value makes no backend call.
func (s *ProfileService) SaveField(ctx context.Context, field, value string) (*ProfileView, error) {
	ed := s.current()
	if ed == nil {
		return nil, profile.ErrNotEditing
	}

	var err error
	switch field {
	case "phone":
		if err = ed.Phone.SetDraft(strings.TrimSpace(value)); err == nil {
			err = ed.Phone.Save(ctx)
		}
	case "current_cgpa":
		var v float64
		if v, err = profile.ParseCGPA(value); err == nil {
			if err = ed.CGPA.SetDraft(v); err == nil {
				err = ed.CGPA.Save(ctx)
			}
		}
	case "skills":
		if err = ed.Skills.SetDraft(profile.NormalizeSkills(value)); err == nil {
			err = ed.Skills.Save(ctx)
		}
	default:
		return nil, ErrUnknownField
	}
	if err != nil {
		return s.view(ed), err
	}
	return s.view(ed), nil
}

func (s *ProfileService) current() *profile.Editor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor
}

// UpdateProfile sends the full update form. The backend locks the profile
// again after an update, so the view is refetched afterwards.
func (s *ProfileService) UpdateProfile(ctx context.Context, req model.UpdateProfileRequest) (*ProfileView, error) {
	req.Skills = profile.NormalizeSkills(req.Skills)
	if fields := validator.Struct(req); fields != nil {
		return nil, &FieldError{Fields: fields}
	}

	ed, err := s.refresh(ctx)
	if err != nil {
		return nil, err
	}
	if !ed.CanEdit() {
		return nil, profile.ErrNotEditable
	}

	resp, err := s.api.UpdateProfile(ctx, req)
	if err != nil {
		return nil, &RequestError{Message: client.Message(err, profile.SaveFailedMessage), Err: err}
	}

	merged, err := profile.Merge(ed.Profile(), req, resp)
	if err != nil {
		s.log.Warn().Err(err).Msg("Ignoring undecodable profile echo")
	}
	now := s.now()
	merged.LastUpdateDate = &now
	merged.CanUpdateProfile = false
	ed.Load(&merged)
	s.log.Info().Msg("Profile updated")

	if fresh, err := s.refresh(ctx); err == nil {
		return s.view(fresh), nil
	}
	return s.view(ed), nil
}

// CreateProfile submits the profile-completion form.
func (s *ProfileService) CreateProfile(ctx context.Context, req model.CreateProfileRequest) (*model.MessageResponse, error) {
	req.Skills = profile.NormalizeSkills(req.Skills)
	if fields := validator.Struct(req); fields != nil {
		return nil, &FieldError{Fields: fields}
	}
	resp, err := s.api.CreateProfile(ctx, req)
	if err != nil {
		return nil, &RequestError{Message: client.Message(err, "Failed to save profile. Please try again."), Err: err}
	}
	s.log.Info().Msg("Profile created")
	return resp, nil
}

// RequestPermission sends a justification for unlocking profile edits.
func (s *ProfileService) RequestPermission(ctx context.Context, reason string) (string, error) {
	trimmed, msg := profile.ValidateReason(reason)
	if msg != "" {
		return "", &FieldError{Fields: map[string]string{"reason": msg}}
	}
	resp, err := s.api.RequestUpdatePermission(ctx, trimmed)
	if err != nil {
		return "", &RequestError{Message: client.Message(err, profile.RequestFailedMessage), Err: err}
	}
	s.log.Info().Msg("Update permission requested")
	if resp != nil && resp.Message != "" {
		return resp.Message, nil
	}
	return profile.RequestSubmittedMessage, nil
}

// CompletionPrompt consumes the fresh-login flag and decides whether the
// profile form should be shown: create when no profile exists yet, update
// when an administrator has unlocked edits.
func (s *ProfileService) CompletionPrompt(ctx context.Context) (*CompletionPrompt, error) {
	fresh, err := s.store.ConsumeNewLogin(ctx)
	if err != nil {
		return nil, fmt.Errorf("read new login flag: %w", err)
	}
	if !fresh {
		return &CompletionPrompt{}, nil
	}

	p, err := s.api.MyProfile(ctx)
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return &CompletionPrompt{Show: true, Mode: "create"}, nil
	}
	if err != nil {
		return nil, err
	}
	if profileIncomplete(p) {
		return &CompletionPrompt{Show: true, Mode: "create"}, nil
	}
	if profile.FromProfile(p).CanEdit(s.now()) {
		return &CompletionPrompt{Show: true, Mode: "update"}, nil
	}
	return &CompletionPrompt{}, nil
}

func profileIncomplete(p *model.Profile) bool {
	return p.StudentID == "" || p.Phone == "" || p.Department == "" || p.PreferredRole == ""
}
