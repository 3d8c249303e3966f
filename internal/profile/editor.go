package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/learning-portal/internal/model"
	"github.com/stemsi/learning-portal/internal/validator"
)

const (
	// SaveFailedMessage is shown inline when a profile save fails.
	SaveFailedMessage = "Failed to update profile. Please try again."
	// RequestFailedMessage is shown when a permission request fails without a server message.
	RequestFailedMessage = "Failed to submit request. Please try again later."
	// RequestSubmittedMessage confirms a permission request.
	RequestSubmittedMessage = "Update request submitted successfully. You will be notified when approved."
)

// Updater sends profile updates. *client.Client satisfies it.
type Updater interface {
	UpdateProfile(ctx context.Context, req model.UpdateProfileRequest) (*model.UpdateProfileResponse, error)
}

// EditorOption configures an Editor.
type EditorOption func(*Editor)

// WithClock overrides the time source used for permission expiry.
func WithClock(now func() time.Time) EditorOption {
	return func(e *Editor) { e.now = now }
}

// WithLogger sets the editor logger.
func WithLogger(log zerolog.Logger) EditorOption {
	return func(e *Editor) { e.log = log }
}

// OnProfileUpdated registers the callback receiving the merged profile after each save.
func OnProfileUpdated(fn func(*model.Profile)) EditorOption {
	return func(e *Editor) { e.onUpdated = fn }
}

// Editor binds the per-field editors of a profile to one permission and one
// update endpoint.
type Editor struct {
	updater   Updater
	now       func() time.Time
	log       zerolog.Logger
	onUpdated func(*model.Profile)

	mu      sync.RWMutex
	profile model.Profile
	perm    Permission

	Phone  *EditableField[string]
	CGPA   *EditableField[float64]
	Skills *EditableField[string]
}

// NewEditor creates an editor for p.
func NewEditor(p *model.Profile, u Updater, opts ...EditorOption) *Editor {
	e := &Editor{updater: u, now: time.Now, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	e.profile = *p
	e.perm = FromProfile(p)

	e.Phone = NewEditableField("phone", p.Phone, e.CanEdit, ValidatePhone,
		func(ctx context.Context, v string) error {
			return e.save(ctx, func(r *model.UpdateProfileRequest) { r.Phone = v })
		})
	e.CGPA = NewEditableField("current_cgpa", cgpaValue(p.CurrentCGPA), e.CanEdit, ValidateCGPA,
		func(ctx context.Context, v float64) error {
			return e.save(ctx, func(r *model.UpdateProfileRequest) { r.CurrentCGPA = &v })
		})
	// Saved skills are kept in canonical form so an identical resubmission
	// compares equal to what the backend stored.
	e.Skills = NewEditableField("skills", NormalizeSkills(p.Skills), e.CanEdit, ValidateSkills,
		func(ctx context.Context, v string) error {
			return e.save(ctx, func(r *model.UpdateProfileRequest) { r.Skills = NormalizeSkills(v) })
		})
	return e
}

func cgpaValue(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// Load replaces the profile after a refetch and recomputes the permission.
func (e *Editor) Load(p *model.Profile) {
	e.mu.Lock()
	e.profile = *p
	e.perm = FromProfile(p)
	e.mu.Unlock()

	e.Phone.Reset(p.Phone)
	e.CGPA.Reset(cgpaValue(p.CurrentCGPA))
	e.Skills.Reset(NormalizeSkills(p.Skills))
}

// Profile returns a copy of the current profile.
func (e *Editor) Profile() model.Profile {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.profile
}

// Permission returns the effective permission now.
func (e *Editor) Permission() Permission {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Effective(e.now(), e.perm)
}

// CanEdit reports whether the edit controls are interactive.
func (e *Editor) CanEdit() bool {
	return e.Permission().Kind == KindApproved
}

// TimeRemaining returns the hours left on the edit permission.
func (e *Editor) TimeRemaining() (float64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.perm.TimeRemaining(e.now())
}

// CompanionRequest builds the full PUT body the backend requires from p.
func CompanionRequest(p *model.Profile) model.UpdateProfileRequest {
	return model.UpdateProfileRequest{
		Phone:         p.Phone,
		Department:    p.Department,
		PreferredRole: p.PreferredRole,
		Batch:         p.Batch,
		StudentID:     p.StudentID,
		CurrentCGPA:   p.CurrentCGPA,
		Skills:        p.Skills,
	}
}

func (e *Editor) save(ctx context.Context, change func(*model.UpdateProfileRequest)) error {
	current := e.Profile()
	req := CompanionRequest(&current)
	change(&req)

	resp, err := e.updater.UpdateProfile(ctx, req)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}

	merged, err := Merge(current, req, resp)
	if err != nil {
		e.log.Warn().Err(err).Msg("Ignoring undecodable profile echo")
	}
	e.mu.Lock()
	e.profile = merged
	e.mu.Unlock()

	if e.onUpdated != nil {
		e.onUpdated(&merged)
	}
	return nil
}

// Merge applies a successful update to p: the sent fields first, then
// whatever the backend echoed back in the response data. An echo that fails
// to decode is discarded as a whole and reported; the sent fields still apply.
func Merge(p model.Profile, sent model.UpdateProfileRequest, resp *model.UpdateProfileResponse) (model.Profile, error) {
	if sent.Username != "" {
		p.Username = sent.Username
	}
	p.Phone = sent.Phone
	p.Department = sent.Department
	p.PreferredRole = sent.PreferredRole
	p.Batch = sent.Batch
	p.StudentID = sent.StudentID
	p.CurrentCGPA = sent.CurrentCGPA
	p.Skills = sent.Skills

	if resp == nil || len(resp.Data) == 0 {
		return p, nil
	}
	// Unmarshal onto a copy so only echoed fields change.
	echoed := p
	if err := json.Unmarshal(resp.Data, &echoed); err != nil {
		return p, fmt.Errorf("decode profile echo: %w", err)
	}
	return echoed, nil
}

// ─── Field rules ──────────────────────────────────────────────────

// ValidatePhone checks the phone format.
func ValidatePhone(v string) string {
	return validator.Var("phone", strings.TrimSpace(v), "required,phone")
}

// ValidateCGPA checks the CGPA range.
func ValidateCGPA(v float64) string {
	if v < 0 || v > 10 {
		return "CGPA must be between 0 and 10"
	}
	return ""
}

// ParseCGPA parses CGPA text input.
func ParseCGPA(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, &ValidationError{Field: "current_cgpa", Message: "CGPA must be a number"}
	}
	return v, nil
}

// ValidateSkills requires at least one skill.
func ValidateSkills(v string) string {
	if NormalizeSkills(v) == "" {
		return "Please add at least one skill"
	}
	return ""
}

// SplitSkills splits a comma separated skills string.
func SplitSkills(s string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(s, ",") {
		skill := strings.TrimSpace(part)
		if skill == "" {
			continue
		}
		if _, dup := seen[skill]; dup {
			continue
		}
		seen[skill] = struct{}{}
		out = append(out, skill)
	}
	return out
}

// NormalizeSkills trims, dedupes and rejoins skills with ", ".
func NormalizeSkills(s string) string {
	return strings.Join(SplitSkills(s), ", ")
}

// ValidateReason checks a permission request justification and returns the
// trimmed reason or a user-facing message.
func ValidateReason(reason string) (string, string) {
	req := model.PermissionRequest{Reason: reason}
	if fields := validator.Struct(req); fields != nil {
		if msg, ok := fields["reason"]; ok {
			return "", msg
		}
		for _, msg := range fields {
			return "", msg
		}
	}
	return strings.TrimSpace(reason), ""
}
