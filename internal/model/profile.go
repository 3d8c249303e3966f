package model

import (
	"encoding/json"
	"time"
)

// Profile is the student profile as served by the backend.
type Profile struct {
	Username              string     `json:"username,omitempty"`
	UserEmail             string     `json:"user_email,omitempty"`
	Phone                 string     `json:"phone,omitempty"`
	Department            string     `json:"department,omitempty"`
	Batch                 string     `json:"batch,omitempty"`
	StudentID             string     `json:"student_id,omitempty"`
	PreferredRole         string     `json:"preferred_role,omitempty"`
	CurrentCGPA           *float64   `json:"current_cgpa,omitempty"`
	Skills                string     `json:"skills,omitempty"`
	GraduationYear        int        `json:"graduation_year,omitempty"`
	RoleProgress          float64    `json:"role_progress,omitempty"`
	CompletedCurriculum   int        `json:"completed_curriculum,omitempty"`
	CompletedAssessments  int        `json:"completed_assessments,omitempty"`
	ProfileCompletionDate *time.Time `json:"profile_completion_date,omitempty"`
	LastUpdateDate        *time.Time `json:"last_update_date,omitempty"`

	CanUpdateProfile          bool       `json:"can_update_profile"`
	HasPendingRequest         bool       `json:"has_pending_request"`
	UpdatePermissionExpiresAt *time.Time `json:"update_permission_expires_at,omitempty"`
}

// UpdateProfileRequest is the PUT body of update_profile. The backend expects
// the full set of companion fields even when one field changes.
type UpdateProfileRequest struct {
	Username      string   `json:"username,omitempty" validate:"omitempty,min=2,max=100"`
	Phone         string   `json:"phone" validate:"required,phone"`
	Department    string   `json:"department" validate:"required"`
	PreferredRole string   `json:"preferred_role" validate:"required"`
	Batch         string   `json:"batch" validate:"required,batch"`
	StudentID     string   `json:"student_id" validate:"required,min=5"`
	CurrentCGPA   *float64 `json:"current_cgpa,omitempty" validate:"omitempty,gte=0,lte=10"`
	Skills        string   `json:"skills" validate:"required"`
}

// CreateProfileRequest is the POST body of create_profile, sent once after
// the first login.
type CreateProfileRequest struct {
	Username      string   `json:"username" validate:"required,min=2,max=100"`
	Phone         string   `json:"phone" validate:"required,phone"`
	Department    string   `json:"department" validate:"required"`
	PreferredRole string   `json:"preferred_role" validate:"required"`
	Batch         string   `json:"batch" validate:"required,batch"`
	StudentID     string   `json:"student_id" validate:"required,min=5"`
	CurrentCGPA   *float64 `json:"current_cgpa,omitempty" validate:"omitempty,gte=0,lte=10"`
	Skills        string   `json:"skills" validate:"required"`
}

// PermissionRequest asks an administrator to unlock profile edits.
type PermissionRequest struct {
	Reason string `json:"reason" validate:"trimmed_min=10,max=500"`
}

// MessageResponse is the generic acknowledgement body returned by write endpoints.
type MessageResponse struct {
	Message string `json:"message,omitempty"`
	Status  string `json:"status,omitempty"`
}

// UpdateProfileResponse is the body of update_profile. Data holds the fields
// the backend echoes back, which may be a subset of the profile.
type UpdateProfileResponse struct {
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}
