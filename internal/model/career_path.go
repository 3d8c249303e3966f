package model

// CurriculumModule is one module of a curriculum with its topics.
type CurriculumModule struct {
	Name   string   `json:"name"`
	Topics []string `json:"topics"`
}

// CurriculumContent is the structured body of a curriculum.
type CurriculumContent struct {
	Modules             []CurriculumModule `json:"modules"`
	RecommendedProjects []string           `json:"recommended_projects,omitempty"`
}

// Curriculum is a course attached to the student's preferred role.
type Curriculum struct {
	ID          int               `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Content     CurriculumContent `json:"content"`
	FileURL     string            `json:"file_url,omitempty"`
}

// CareerPath is the body of my_career_path.
type CareerPath struct {
	PreferredRole      string       `json:"preferred_role"`
	Curriculum         []Curriculum `json:"curriculum"`
	ProgressPercentage float64      `json:"progress_percentage"`
}
