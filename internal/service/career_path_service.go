package service

import (
	"context"
	"strings"

	"github.com/stemsi/learning-portal/internal/client"
	"github.com/stemsi/learning-portal/internal/model"
)

// CareerPathData is the career path with a display title for the role.
type CareerPathData struct {
	*model.CareerPath
	RoleTitle string `json:"role_title"`
}

// CareerPathService serves the curriculum of the student's preferred role.
type CareerPathService struct {
	api *client.Client
}

// NewCareerPathService creates a new CareerPathService.
func NewCareerPathService(api *client.Client) *CareerPathService {
	return &CareerPathService{api: api}
}

// GetCareerPath fetches the career path.
func (s *CareerPathService) GetCareerPath(ctx context.Context) (*CareerPathData, error) {
	cp, err := s.api.MyCareerPath(ctx)
	if err != nil {
		return nil, err
	}
	return &CareerPathData{CareerPath: cp, RoleTitle: RoleTitle(cp.PreferredRole)}, nil
}

// RoleTitle turns a role key such as "software_developer" into "Software Developer".
func RoleTitle(role string) string {
	words := strings.FieldsFunc(role, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
