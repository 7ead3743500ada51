package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/Kerhoff/IgrejaBoT/internal/models"
)

// DefaultClassPollInterval is how often the class watcher looks for new
// registrations.
const DefaultClassPollInterval = 30 * time.Second

// RegistrationCallback is invoked with the students that appeared in a class
// since the previous poll.
type RegistrationCallback func(class *models.NewMemberClass, newStudents []models.Member)

// ClassWatcher polls the new member classes and reports every student that
// joined a class since the previous poll, whether through the public
// registration form or added by an admin. Classes and students that disappear
// are forgotten, so a student enrolled again is reported again.
type ClassWatcher struct {
	svc      *Service
	interval time.Duration
	callback RegistrationCallback

	known    map[int64]map[int64]struct{}
	primed   bool
	lastPoll *atomic.Time
	running  *atomic.Bool
}

// NewClassWatcher creates a watcher. A non-positive interval falls back to
// DefaultClassPollInterval.
func (s *Service) NewClassWatcher(interval time.Duration, callback RegistrationCallback) *ClassWatcher {
	if interval <= 0 {
		interval = DefaultClassPollInterval
	}
	return &ClassWatcher{
		svc:      s,
		interval: interval,
		callback: callback,
		known:    map[int64]map[int64]struct{}{},
		lastPoll: atomic.NewTime(time.Time{}),
		running:  atomic.NewBool(false),
	}
}

// Run polls until ctx is cancelled. It blocks, so launch it in its own
// goroutine. The first poll happens immediately and only records the current
// students.
func (w *ClassWatcher) Run(ctx context.Context) {
	if !w.running.CompareAndSwap(false, true) {
		w.svc.logger.Warn("Class watcher already running")
		return
	}
	defer w.running.Store(false)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.svc.logger.WithField("interval", w.interval).Info("Class watcher started")
	w.Poll(ctx)

	for {
		select {
		case <-ctx.Done():
			w.svc.logger.Info("Class watcher stopped")
			return
		case <-ticker.C:
			w.Poll(ctx)
		}
	}
}

// Poll runs a single check and must not be called concurrently with Run.
// Errors are logged and the previous state is kept, so students are reported
// on the next successful poll.
func (w *ClassWatcher) Poll(ctx context.Context) {
	classes, err := w.svc.ListClasses(ctx)
	if err != nil {
		w.svc.logger.WithError(err).Error("Failed to poll classes")
		return
	}

	current := make(map[int64]struct{}, len(classes))
	for _, class := range classes {
		current[class.ID] = struct{}{}
		seen := w.known[class.ID]

		enrolled := make(map[int64]struct{}, len(class.Students))
		var fresh []models.Member
		for _, student := range class.Students {
			enrolled[student.ID] = struct{}{}
			if _, ok := seen[student.ID]; ok {
				continue
			}
			if w.primed {
				fresh = append(fresh, student)
			}
		}
		w.known[class.ID] = enrolled

		w.svc.metrics.SetClassStudents(classLabel(class.ID), len(class.Students))

		if len(fresh) > 0 && w.callback != nil {
			w.svc.logger.WithFields(logrus.Fields{
				"class_id":     class.ID,
				"new_students": len(fresh),
			}).Info("New class registrations")
			w.callback(class, fresh)
		}
	}

	for id := range w.known {
		if _, ok := current[id]; !ok {
			delete(w.known, id)
			w.svc.metrics.ForgetClass(classLabel(id))
		}
	}

	w.primed = true
	now := w.svc.now()
	w.lastPoll.Store(now)
	w.svc.metrics.SetLastPoll(now)
}

// LastPoll returns the time of the last successful poll, zero before the first.
func (w *ClassWatcher) LastPoll() time.Time {
	return w.lastPoll.Load()
}

// Running reports whether Run is active.
func (w *ClassWatcher) Running() bool {
	return w.running.Load()
}
