package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/stemsi/learning-portal/internal/model"
)

// Dashboard fetches the student dashboard.
func (c *Client) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	var out model.Dashboard
	if err := c.do(ctx, http.MethodGet, "/student/student_dashboard/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MyProfile fetches the student's profile.
func (c *Client) MyProfile(ctx context.Context) (*model.Profile, error) {
	var out envelope[*model.Profile]
	if err := c.do(ctx, http.MethodGet, "/student/my_profile/", nil, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return nil, fmt.Errorf("my_profile: empty response")
	}
	return out.Data, nil
}

// CreateProfile submits the profile-completion form after the first login.
func (c *Client) CreateProfile(ctx context.Context, req model.CreateProfileRequest) (*model.MessageResponse, error) {
	var out model.MessageResponse
	if err := c.do(ctx, http.MethodPost, "/student/create_profile/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile sends a full profile update. Only allowed while an update permission is active.
func (c *Client) UpdateProfile(ctx context.Context, req model.UpdateProfileRequest) (*model.UpdateProfileResponse, error) {
	var out model.UpdateProfileResponse
	if err := c.do(ctx, http.MethodPut, "/student/update_profile/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestUpdatePermission asks an administrator to unlock profile edits.
func (c *Client) RequestUpdatePermission(ctx context.Context, reason string) (*model.MessageResponse, error) {
	var out model.MessageResponse
	if err := c.do(ctx, http.MethodPost, "/student/request_update_permission/", model.PermissionRequest{Reason: reason}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MyCareerPath fetches the curriculum for the student's preferred role.
func (c *Client) MyCareerPath(ctx context.Context) (*model.CareerPath, error) {
	var out envelope[*model.CareerPath]
	if err := c.do(ctx, http.MethodGet, "/student/my_career_path/", nil, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return &model.CareerPath{}, nil
	}
	return out.Data, nil
}

// Notifications fetches the inbox and unread count.
func (c *Client) Notifications(ctx context.Context) (*model.NotificationList, error) {
	var out model.NotificationList
	if err := c.do(ctx, http.MethodGet, "/student/my_notifications/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkNotificationRead marks a single notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/student/%d/mark_notification_read/", id), nil, nil)
}

// MarkAllNotificationsRead marks every notification as read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/student/mark_all_notifications_read/", nil, nil)
}
