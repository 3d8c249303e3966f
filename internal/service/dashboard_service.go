package service

import (
	"context"

	"github.com/stemsi/learning-portal/internal/client"
	"github.com/stemsi/learning-portal/internal/model"
)

// DashboardData is the dashboard with derived counters.
type DashboardData struct {
	*model.Dashboard
	PendingAssessments int `json:"pending_assessments"`
}

// DashboardService serves the student dashboard.
type DashboardService struct {
	api *client.Client
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(api *client.Client) *DashboardService {
	return &DashboardService{api: api}
}

// GetDashboardData fetches the dashboard and derives the pending count.
func (s *DashboardService) GetDashboardData(ctx context.Context) (*DashboardData, error) {
	d, err := s.api.Dashboard(ctx)
	if err != nil {
		return nil, err
	}
	pending := d.Stats.TotalAssessments - d.Stats.CompletedAssessments
	if pending < 0 {
		pending = 0
	}
	return &DashboardData{Dashboard: d, PendingAssessments: pending}, nil
}
