package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/Skotchmaster/sweet_shop/pkg/events"
	"github.com/Skotchmaster/sweet_shop/pkg/logging"
	"github.com/Skotchmaster/sweet_shop/pkg/mail"
	"github.com/Skotchmaster/sweet_shop/services/notify/internal/models"
)

var (
	ErrValidation = errors.New("validation")
	ErrNotFound   = errors.New("not found")
)

type Store interface {
	InsertNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	ReadUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	ReadAllUsers(ctx context.Context) ([]models.User, error)
}

// Pusher delivers a stored notification to the user's open connections.
type Pusher interface {
	Push(userID uuid.UUID, v any) int
}

type Recipient struct {
	UserID uuid.UUID
	Name   string
	Email  string
}

func RecipientFrom(u models.User) Recipient {
	r := Recipient{UserID: u.ID, Name: u.Name}
	if u.Email != nil {
		r.Email = strings.TrimSpace(*u.Email)
	}
	return r
}

type Payload struct {
	Title       string
	Message     string
	Type        string
	ReferenceID *string
}

// Sender identifies who sent a notification; the zero value is the system.
type Sender struct {
	ID   *uuid.UUID
	Name string
}

type EmailOutcome string

const (
	EmailSkipped EmailOutcome = "skipped"
	EmailSent    EmailOutcome = "sent"
	EmailError   EmailOutcome = "error"
)

type RecipientResult struct {
	Recipient      Recipient
	NotificationID uuid.UUID
	InsertErr      error
	Email          EmailOutcome
	EmailErr       error
}

// Failed reports whether the notification row could not be stored. Email
// outcomes are tracked separately.
func (r RecipientResult) Failed() bool { return r.InsertErr != nil }

type Summary struct {
	Recipients  int `json:"recipients"`
	Sent        int `json:"sent"`
	Failed      int `json:"failed"`
	Emailed     int `json:"emailed"`
	EmailFailed int `json:"email_failed"`
}

func (s Summary) PartialFanoutFailure() bool { return s.Failed > 0 }

func Summarize(results []RecipientResult) Summary {
	s := Summary{Recipients: len(results)}
	for _, r := range results {
		if r.Failed() {
			s.Failed++
		} else {
			s.Sent++
		}
		switch r.Email {
		case EmailSent:
			s.Emailed++
		case EmailError:
			s.EmailFailed++
		}
	}
	return s
}

type NotifyService struct {
	Repo     Store
	Language string
	Mail     mail.Sender
	Push     Pusher
	Events   events.Publisher
	Outcomes *prometheus.CounterVec
}

func defaultTitle(kind string) string {
	switch kind {
	case models.TypeOrder:
		return "Order update"
	case models.TypeProduct:
		return "New in the shop"
	default:
		return "Sweet Shop"
	}
}

func normalize(p Payload) (Payload, error) {
	p.Message = strings.TrimSpace(p.Message)
	p.Title = strings.TrimSpace(p.Title)
	if p.Type == "" {
		p.Type = models.TypeText
	}
	if p.Message == "" {
		return p, fmt.Errorf("message required: %w", ErrValidation)
	}
	switch p.Type {
	case models.TypeText, models.TypeProduct, models.TypeOrder:
	default:
		return p, fmt.Errorf("unknown type %q: %w", p.Type, ErrValidation)
	}
	if p.Type != models.TypeText && (p.ReferenceID == nil || *p.ReferenceID == "") {
		return p, fmt.Errorf("%s notifications need reference_id: %w", p.Type, ErrValidation)
	}
	if p.Title == "" {
		p.Title = defaultTitle(p.Type)
	}
	return p, nil
}

// NotifyUsers stores one notification per recipient and emails those with
// an address. Each recipient is handled on its own: failures are logged and
// recorded in that recipient's result and never stop the batch.
func (s *NotifyService) NotifyUsers(ctx context.Context, recipients []Recipient, payload Payload, sender Sender) []RecipientResult {
	return s.fanout(ctx, recipients, payload, sender, false)
}

// fanout with storedOnly set emails a recipient only once the notification
// row exists, for callers that retry the whole delivery on insert failure.
func (s *NotifyService) fanout(ctx context.Context, recipients []Recipient, payload Payload, sender Sender, storedOnly bool) []RecipientResult {
	l := logging.FromContext(ctx).With("type", payload.Type)

	results := make([]RecipientResult, 0, len(recipients))
	for _, rcpt := range recipients {
		res := RecipientResult{Recipient: rcpt, Email: EmailSkipped}

		n := &models.Notification{
			ID:          uuid.New(),
			UserID:      rcpt.UserID,
			Title:       payload.Title,
			Message:     payload.Message,
			Type:        payload.Type,
			ReferenceID: payload.ReferenceID,
			SenderID:    sender.ID,
			SenderName:  sender.Name,
		}
		if err := s.Repo.InsertNotification(ctx, n); err != nil {
			res.InsertErr = err
			l.Error("notification_insert_failed", "user_id", rcpt.UserID, "error", err)
			s.count("insert_failed")
		} else {
			res.NotificationID = n.ID
			s.count("stored")
			if s.Push != nil {
				s.Push.Push(rcpt.UserID, n)
			}
		}

		if rcpt.Email != "" && s.Mail != nil && (res.InsertErr == nil || !storedOnly) {
			res.Email, res.EmailErr = s.email(ctx, rcpt, payload, sender)
			if res.EmailErr != nil {
				l.Warn("notification_email_failed", "user_id", rcpt.UserID, "error", res.EmailErr)
				s.count("email_failed")
			} else {
				s.count("emailed")
			}
		}

		results = append(results, res)
	}

	sum := Summarize(results)
	if sum.PartialFanoutFailure() {
		l.Warn("notification_fanout_partial", "recipients", sum.Recipients, "failed", sum.Failed)
	} else {
		l.Info("notification_fanout_done", "recipients", sum.Recipients, "emailed", sum.Emailed)
	}
	s.publish(ctx, payload, sender, sum)
	return results
}

func (s *NotifyService) email(ctx context.Context, rcpt Recipient, payload Payload, sender Sender) (EmailOutcome, error) {
	body, err := renderEmail(emailData{
		Title:      payload.Title,
		Name:       rcpt.Name,
		Message:    payload.Message,
		SenderName: sender.Name,
	})
	if err != nil {
		return EmailError, err
	}
	if err := s.Mail.Send(ctx, rcpt.Email, payload.Title, body); err != nil {
		return EmailError, err
	}
	return EmailSent, nil
}

func (s *NotifyService) NotifyUser(ctx context.Context, userID uuid.UUID, payload Payload, sender Sender) (RecipientResult, error) {
	payload, err := normalize(payload)
	if err != nil {
		return RecipientResult{}, err
	}
	u, err := s.Repo.ReadUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RecipientResult{}, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return RecipientResult{}, err
	}
	return s.NotifyUsers(ctx, []Recipient{RecipientFrom(*u)}, payload, sender)[0], nil
}

func (s *NotifyService) NotifyAll(ctx context.Context, payload Payload, sender Sender) ([]RecipientResult, error) {
	payload, err := normalize(payload)
	if err != nil {
		return nil, err
	}
	users, err := s.Repo.ReadAllUsers(ctx)
	if err != nil {
		return nil, err
	}
	recipients := make([]Recipient, 0, len(users))
	for _, u := range users {
		recipients = append(recipients, RecipientFrom(u))
	}
	return s.NotifyUsers(ctx, recipients, payload, sender), nil
}

func (s *NotifyService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]models.Notification, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	items, err := s.Repo.ListNotifications(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.Repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return items, unread, nil
}

func (s *NotifyService) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.Repo.MarkRead(ctx, userID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("notification %s: %w", id, ErrNotFound)
		}
		return err
	}
	return nil
}

func (s *NotifyService) count(outcome string) {
	if s.Outcomes != nil {
		s.Outcomes.WithLabelValues(outcome).Inc()
	}
}

func (s *NotifyService) publish(ctx context.Context, payload Payload, sender Sender, sum Summary) {
	if s.Events == nil {
		return
	}
	key := "system"
	if sender.ID != nil {
		key = sender.ID.String()
	}
	err := s.Events.Publish(ctx, events.TopicNotification, key, "notification_batch_sent", map[string]any{
		"type":         payload.Type,
		"reference_id": payload.ReferenceID,
		"summary":      sum,
	})
	if err != nil {
		logging.FromContext(ctx).Warn("notification_event_publish_failed", "error", err)
	}
}
