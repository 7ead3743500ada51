package service

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/IgrejaBoT/internal/models"
)

func TestAddMembers_AddsEachWithDefaultRole(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	g := mustGroup(t, svc, "Casais", "Sábado")
	a := mustMember(t, svc, "Ana")
	b := mustMember(t, svc, "Bruno")
	c := mustMember(t, svc, "Carla")

	res, err := svc.AddMembers(ctx, g.ID, []int64{a.ID, b.ID, c.ID})
	require.NoError(t, err)
	assert.Equal(t, models.AddResult{Added: 3, AlreadyMembers: 0}, res)

	roster, err := svc.ListMembers(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, roster, 3)
	for _, rm := range roster {
		assert.Equal(t, "Participant", rm.Role)
	}
	assert.ElementsMatch(t, []int64{a.ID, b.ID, c.ID}, rosterIDs(roster))
}

func TestAddMembers_ExistingPairsAreCountedNotFailed(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	g := mustGroup(t, svc, "Jovens", "Quinta-feira")
	a := mustMember(t, svc, "Ana")
	b := mustMember(t, svc, "Bruno")

	_, err := svc.AddMembers(ctx, g.ID, []int64{a.ID})
	require.NoError(t, err)

	res, err := svc.AddMembers(ctx, g.ID, []int64{a.ID, b.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, models.AddResult{Added: 1, AlreadyMembers: 1}, res)

	roster, err := svc.ListMembers(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, roster, 2)
}

func TestAddMembers_UnknownMemberAddsNothing(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	g := mustGroup(t, svc, "Jovens", "Quinta-feira")
	a := mustMember(t, svc, "Ana")

	_, err := svc.AddMembers(ctx, g.ID, []int64{a.ID, 9999})
	require.ErrorIs(t, err, models.ErrNotFound)

	roster, err := svc.ListMembers(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, roster)
}

func TestAddMembers_Validation(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	g := mustGroup(t, svc, "Jovens", "Quinta-feira")

	_, err := svc.AddMembers(ctx, g.ID, nil)
	require.ErrorIs(t, err, models.ErrValidation)

	a := mustMember(t, svc, "Ana")
	_, err = svc.AddMembers(ctx, 4242, []int64{a.ID})
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestRemoveMember_Idempotent(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	g := mustGroup(t, svc, "Jovens", "Quinta-feira")
	a := mustMember(t, svc, "Ana")
	b := mustMember(t, svc, "Bruno")
	_, err := svc.AddMembers(ctx, g.ID, []int64{a.ID})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveMember(ctx, g.ID, b.ID))
	require.NoError(t, svc.RemoveMember(ctx, 777, a.ID))

	roster, err := svc.ListMembers(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID}, rosterIDs(roster))

	require.NoError(t, svc.RemoveMember(ctx, g.ID, a.ID))
	require.NoError(t, svc.RemoveMember(ctx, g.ID, a.ID))

	roster, err = svc.ListMembers(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, roster)
}

func TestRemoveMember_LogsOnlyActualRemovals(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	hook := logtest.NewLocal(svc.logger)
	ctx := context.Background()

	g := mustGroup(t, svc, "Jovens", "Quinta-feira")
	a := mustMember(t, svc, "Ana")
	_, err := svc.AddMembers(ctx, g.ID, []int64{a.ID})
	require.NoError(t, err)

	removals := func() int {
		n := 0
		for _, e := range hook.AllEntries() {
			if e.Message == "Removed member from group" {
				n++
			}
		}
		return n
	}

	require.NoError(t, svc.RemoveMember(ctx, g.ID, 999))
	assert.Zero(t, removals())

	require.NoError(t, svc.RemoveMember(ctx, g.ID, a.ID))
	require.Equal(t, 1, removals())
	last := hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, last.Level)
	assert.Equal(t, a.ID, last.Data["member_id"])

	require.NoError(t, svc.RemoveMember(ctx, g.ID, a.ID))
	assert.Equal(t, 1, removals())
}

func rosterIDs(roster []*models.RosterMember) []int64 {
	ids := make([]int64, 0, len(roster))
	for _, rm := range roster {
		ids = append(ids, rm.ID)
	}
	return ids
}
