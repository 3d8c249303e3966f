package model

import "time"

// DashboardStats are the headline numbers on the student dashboard.
type DashboardStats struct {
	TotalAssessments     int     `json:"total_assessments"`
	CompletedAssessments int     `json:"completed_assessments"`
	AverageScore         float64 `json:"average_score"`
}

// Activity is one entry of the recent activity feed.
type Activity struct {
	Type        string     `json:"type"`
	Description string     `json:"description"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
}

// Dashboard is the body of student_dashboard.
type Dashboard struct {
	Stats               DashboardStats `json:"stats"`
	RecentActivities    []Activity     `json:"recent_activities,omitempty"`
	UpcomingAssessments []Assessment   `json:"upcoming_assessments,omitempty"`
	ProfileCompleted    *bool          `json:"profile_completed,omitempty"`
}
