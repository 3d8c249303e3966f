package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/stemsi/learning-portal/internal/model"
)

// MyAssessments lists the student's assessments grouped by progress.
func (c *Client) MyAssessments(ctx context.Context) (*model.MyAssessments, error) {
	var out model.MyAssessments
	if err := c.do(ctx, http.MethodGet, "/student/my_assessments/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Assessment fetches one assessment with its questions.
func (c *Client) Assessment(ctx context.Context, id int) (*model.Assessment, error) {
	var out model.Assessment
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/assessments/%d/", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitAssessment posts the full answer map. It is never retried automatically
// beyond the single refresh-and-retry on 401.
func (c *Client) SubmitAssessment(ctx context.Context, id int, answers model.AnswerMap) (*model.SubmissionResult, error) {
	var out envelope[*model.SubmissionResult]
	req := model.SubmitAssessmentRequest{Answers: answers}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/assessments/%d/submit/", id), req, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return nil, fmt.Errorf("submit assessment %d: empty result", id)
	}
	return out.Data, nil
}
