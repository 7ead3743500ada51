package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/IgrejaBoT/internal/models"
	"github.com/Kerhoff/IgrejaBoT/internal/testutil"
)

// fixedNow is a Wednesday.
var fixedNow = time.Date(2024, time.March, 6, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *testutil.MemStore) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := testutil.NewMemStore()
	svc := New(logger, store.TxManager(),
		store.Members(), store.Groups(), store.Memberships(), store.Sessions(), store.Classes(),
		Options{
			PublicBaseURL: "https://igreja.example.org/",
			Now:           func() time.Time { return fixedNow },
		},
	)
	return svc, store
}

func mustGroup(t *testing.T, svc *Service, name, day string) *models.Group {
	t.Helper()
	g, err := svc.CreateGroup(context.Background(), models.Group{
		Name:        name,
		Leader:      "Pr. Carlos",
		MeetingDay:  day,
		MeetingTime: "19:30",
		Location:    "Salão 2",
	})
	require.NoError(t, err)
	return g
}

func mustMember(t *testing.T, svc *Service, name string) *models.Member {
	t.Helper()
	m, err := svc.CreateMember(context.Background(), models.Member{Name: name})
	require.NoError(t, err)
	return m
}

func ptr[T any](v T) *T { return &v }
