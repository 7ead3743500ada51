package service

import (
	"context"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/IgrejaBoT/internal/metrics"
	"github.com/Kerhoff/IgrejaBoT/internal/models"
	"github.com/Kerhoff/IgrejaBoT/internal/repository"
)

// MessageSender delivers a plain text message to a Telegram chat.
type MessageSender interface {
	SendMessage(chatID int64, text string) error
}

// Options carries the optional collaborators of the service.
type Options struct {
	// PublicBaseURL prefixes class invite links, e.g. https://igreja.example.org
	PublicBaseURL string
	Metrics       *metrics.Metrics
	// Now overrides the clock; defaults to time.Now.
	Now func() time.Time
}

// Service is the business logic layer. It holds every repository and
// exposes the operations used by the HTTP API, the Telegram handlers and
// the class watcher.
type Service struct {
	logger      *logrus.Logger
	tx          repository.TxManager
	Members     repository.MemberRepository
	Groups      repository.GroupRepository
	Memberships repository.MembershipRepository
	Sessions    repository.SessionRepository
	Classes     repository.ClassRepository

	metrics       *metrics.Metrics
	policy        *bluemonday.Policy
	publicBaseURL string
	sender        MessageSender
	now           func() time.Time
}

// New creates a new Service with all required dependencies.
func New(logger *logrus.Logger, tx repository.TxManager,
	members repository.MemberRepository,
	groups repository.GroupRepository,
	memberships repository.MembershipRepository,
	sessions repository.SessionRepository,
	classes repository.ClassRepository,
	opts Options,
) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		logger: logger, tx: tx,
		Members: members, Groups: groups, Memberships: memberships,
		Sessions: sessions, Classes: classes,
		metrics:       opts.Metrics,
		policy:        bluemonday.StrictPolicy(),
		publicBaseURL: strings.TrimRight(opts.PublicBaseURL, "/"),
		now:           now,
	}
}

// SetMessageSender wires the chat transport used by the communication
// operations. Without one, sending fails and the rest keeps working.
func (s *Service) SetMessageSender(sender MessageSender) {
	s.sender = sender
}

// observe is deferred by public operations with a pointer to their named
// error result.
func (s *Service) observe(operation string, start time.Time, errp *error) {
	s.metrics.Observe(operation, start, *errp)
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.tx.RunInTx(ctx, fn)
}

// clean strips any markup from user supplied text and trims it.
func (s *Service) clean(v string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(v)))
}

func (s *Service) today() string {
	return s.now().Format(models.DateLayout)
}

// fieldErrors accumulates validation problems before any persistence call.
type fieldErrors []models.FieldError

func (f *fieldErrors) add(field, message string) {
	*f = append(*f, models.FieldError{Field: field, Message: message})
}

func (f *fieldErrors) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		f.add(field, "is required")
	}
}

func (f *fieldErrors) date(field, value string) {
	if strings.TrimSpace(value) == "" {
		f.add(field, "is required")
		return
	}
	if _, err := time.Parse(models.DateLayout, value); err != nil {
		f.add(field, "must be a date in YYYY-MM-DD format")
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &models.ValidationError{Errors: f}
}

// uniqueIDs drops duplicates and keeps first-seen order.
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func trimPtr(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}
