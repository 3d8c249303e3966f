package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/learning-portal/internal/client"
	"github.com/stemsi/learning-portal/internal/metrics"
	"github.com/stemsi/learning-portal/internal/model"
)

// NotificationItem is a notification with its relative time label.
type NotificationItem struct {
	model.Notification
	Age string `json:"age,omitempty"`
}

// NotificationInbox is the cached inbox.
type NotificationInbox struct {
	Notifications []NotificationItem `json:"notifications"`
	UnreadCount   int                `json:"unread_count"`
	FetchedAt     *time.Time         `json:"fetched_at,omitempty"`
}

// NotificationService caches the inbox between polls and applies read marks locally.
type NotificationService struct {
	api     *client.Client
	metrics *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time

	mu        sync.Mutex
	list      model.NotificationList
	fetchedAt time.Time
	viewing   bool
}

// NewNotificationService creates a new NotificationService. m may be nil.
func NewNotificationService(api *client.Client, m *metrics.Metrics, log zerolog.Logger) *NotificationService {
	return &NotificationService{
		api:     api,
		metrics: m,
		log:     log.With().Str("component", "notification_service").Logger(),
		now:     time.Now,
	}
}

// Fetch loads the inbox from the backend and replaces the cache.
func (s *NotificationService) Fetch(ctx context.Context) (*NotificationInbox, error) {
	list, err := s.api.Notifications(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.list = *list
	s.fetchedAt = s.now()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.UnreadNotifications.Set(float64(list.UnreadCount))
	}
	return s.Inbox(), nil
}

// Poll refreshes the cache unless the inbox is being viewed. It reports
// whether a fetch happened.
func (s *NotificationService) Poll(ctx context.Context) (bool, error) {
	s.mu.Lock()
	viewing := s.viewing
	s.mu.Unlock()
	if viewing {
		s.observePoll("skipped")
		return false, nil
	}
	if _, err := s.Fetch(ctx); err != nil {
		s.observePoll("error")
		return false, err
	}
	s.observePoll("ok")
	return true, nil
}

func (s *NotificationService) observePoll(result string) {
	if s.metrics != nil {
		s.metrics.NotificationPolls.WithLabelValues(result).Inc()
	}
}

// SetViewing marks the inbox as open or closed.
func (s *NotificationService) SetViewing(open bool) {
	s.mu.Lock()
	s.viewing = open
	s.mu.Unlock()
}

// Inbox returns the cached inbox with age labels.
func (s *NotificationService) Inbox() *NotificationInbox {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	out := &NotificationInbox{
		Notifications: make([]NotificationItem, 0, len(s.list.Notifications)),
		UnreadCount:   s.list.UnreadCount,
	}
	if !s.fetchedAt.IsZero() {
		t := s.fetchedAt
		out.FetchedAt = &t
	}
	for _, n := range s.list.Notifications {
		item := NotificationItem{Notification: n}
		if n.CreatedAt != nil {
			item.Age = RelativeTime(now, *n.CreatedAt)
		}
		out.Notifications = append(out.Notifications, item)
	}
	return out
}

// UnreadCount returns the cached unread count.
func (s *NotificationService) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list.UnreadCount
}

// MarkRead marks one notification read and decrements the unread count, never below zero.
func (s *NotificationService) MarkRead(ctx context.Context, id int) (*NotificationInbox, error) {
	if err := s.api.MarkNotificationRead(ctx, id); err != nil {
		return nil, err
	}
	s.mu.Lock()
	for i := range s.list.Notifications {
		if s.list.Notifications[i].ID == id {
			s.list.Notifications[i].IsRead = true
		}
	}
	if s.list.UnreadCount > 0 {
		s.list.UnreadCount--
	}
	s.mu.Unlock()
	return s.Inbox(), nil
}

// MarkAllRead marks every notification read. Nothing is sent when the
// cached unread count is already zero.
func (s *NotificationService) MarkAllRead(ctx context.Context) (*NotificationInbox, error) {
	if s.UnreadCount() == 0 {
		return s.Inbox(), nil
	}
	if err := s.api.MarkAllNotificationsRead(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	for i := range s.list.Notifications {
		s.list.Notifications[i].IsRead = true
	}
	s.list.UnreadCount = 0
	s.mu.Unlock()
	return s.Inbox(), nil
}

// RelativeTime labels t relative to now: "Just now", "N minutes ago", "N
// hours ago", "N days ago", then the calendar date.
func RelativeTime(now, t time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return "Just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour") + " ago"
	case d < 7*24*time.Hour:
		return plural(int(d/(24*time.Hour)), "day") + " ago"
	default:
		return t.Format("Jan 2, 2006")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
