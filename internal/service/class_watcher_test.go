package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/IgrejaBoT/internal/models"
)

type registrationLog struct {
	mu    sync.Mutex
	calls map[int64][]string
}

func (l *registrationLog) record(class *models.NewMemberClass, students []models.Member) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range students {
		l.calls[class.ID] = append(l.calls[class.ID], s.Name)
	}
}

func (l *registrationLog) names(classID int64) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls[classID]...)
}

func TestClassWatcher_ReportsOnlyNewStudents(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	class, err := svc.CreateClass(ctx, "Turma", "2024-03-03")
	require.NoError(t, err)
	token := class.RegistrationToken.String()

	_, err = svc.RegisterForClass(ctx, token, models.Registration{Name: "Ana"})
	require.NoError(t, err)

	log := &registrationLog{calls: map[int64][]string{}}
	w := svc.NewClassWatcher(time.Minute, log.record)

	assert.True(t, w.LastPoll().IsZero())
	w.Poll(ctx)
	assert.Empty(t, log.names(class.ID))
	assert.Equal(t, fixedNow, w.LastPoll())

	_, err = svc.RegisterForClass(ctx, token, models.Registration{Name: "Bruno"})
	require.NoError(t, err)
	w.Poll(ctx)
	assert.Equal(t, []string{"Bruno"}, log.names(class.ID))

	w.Poll(ctx)
	assert.Equal(t, []string{"Bruno"}, log.names(class.ID))

	later, err := svc.CreateClass(ctx, "Turma 2", "2024-04-07")
	require.NoError(t, err)
	_, err = svc.RegisterForClass(ctx, later.RegistrationToken.String(), models.Registration{Name: "Carla"})
	require.NoError(t, err)
	w.Poll(ctx)
	assert.Equal(t, []string{"Carla"}, log.names(later.ID))
}

func TestClassWatcher_ReportsAdminEnrollmentsAndForgetsRemovals(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(t)
	ctx := context.Background()

	class, err := svc.CreateClass(ctx, "Turma", "2024-03-03")
	require.NoError(t, err)
	gone, err := svc.CreateClass(ctx, "Turma Cancelada", "2024-03-10")
	require.NoError(t, err)
	dani, err := svc.CreateMember(ctx, models.Member{Name: "Dani"})
	require.NoError(t, err)

	log := &registrationLog{calls: map[int64][]string{}}
	w := svc.NewClassWatcher(time.Minute, log.record)
	w.Poll(ctx)
	require.Contains(t, w.known, gone.ID)

	_, err = svc.AddStudents(ctx, class.ID, []int64{dani.ID})
	require.NoError(t, err)
	w.Poll(ctx)
	assert.Equal(t, []string{"Dani"}, log.names(class.ID))

	require.NoError(t, svc.RemoveStudent(ctx, class.ID, dani.ID))
	w.Poll(ctx)
	assert.NotContains(t, w.known[class.ID], dani.ID)

	_, err = svc.AddStudents(ctx, class.ID, []int64{dani.ID})
	require.NoError(t, err)
	w.Poll(ctx)
	assert.Equal(t, []string{"Dani", "Dani"}, log.names(class.ID))

	store.DeleteClass(gone.ID)
	w.Poll(ctx)
	assert.NotContains(t, w.known, gone.ID)
	assert.Len(t, w.known, 1)
}

func TestClassWatcher_RunStopsOnCancel(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	w := svc.NewClassWatcher(10*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return !w.LastPoll().IsZero() }, time.Second, 5*time.Millisecond)
	assert.True(t, w.Running())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
	assert.False(t, w.Running())
}
