package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/learning-portal/internal/model"
	"github.com/stemsi/learning-portal/internal/response"
	"github.com/stemsi/learning-portal/internal/service"
)

// DashboardHandler serves the dashboard and the career path.
type DashboardHandler struct {
	dashboardService  *service.DashboardService
	careerPathService *service.CareerPathService
	log               zerolog.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService *service.DashboardService, careerPathService *service.CareerPathService, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboardService:  dashboardService,
		careerPathService: careerPathService,
		log:               log.With().Str("component", "dashboard_handler").Logger(),
	}
}

// GetDashboard godoc
// GET /api/v1/dashboard
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	data, err := h.dashboardService.GetDashboardData(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, data)
}

// GetCareerPath godoc
// GET /api/v1/career-path
// Returns the curriculum of the student's preferred role with progress.
func (h *DashboardHandler) GetCareerPath(c *gin.Context) {
	data, err := h.careerPathService.GetCareerPath(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if data.Curriculum == nil {
		data.Curriculum = []model.Curriculum{}
	}
	response.Success(c, http.StatusOK, data)
}
