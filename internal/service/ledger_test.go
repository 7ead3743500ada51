package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/IgrejaBoT/internal/models"
)

func TestSaveSession_EmptyPresenceReplacesAttendance(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	g := mustGroup(t, svc, "Jovens", "Quinta-feira")
	a := mustMember(t, svc, "Ana")
	b := mustMember(t, svc, "Bruno")

	id, err := svc.SaveSession(ctx, g.ID, models.SessionInput{
		Date: "2024-03-01", LessonName: "Aula 1", PresentMemberIDs: []int64{a.ID, b.ID},
	})
	require.NoError(t, err)

	_, err = svc.SaveSession(ctx, g.ID, models.SessionInput{
		ID: &id, Date: "2024-03-01", LessonName: "Aula 1", PresentMemberIDs: []int64{},
	})
	require.NoError(t, err)

	history, err := svc.ListSessions(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, id, history[0].ID)
	assert.Empty(t, history[0].PresentMemberIDs)
}

func TestSaveSession_KeepsRemovedMembersInHistory(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	g := mustGroup(t, svc, "Jovens", "Quinta-feira")
	a := mustMember(t, svc, "Ana")
	b := mustMember(t, svc, "Bruno")
	_, err := svc.AddMembers(ctx, g.ID, []int64{a.ID, b.ID})
	require.NoError(t, err)

	_, err = svc.SaveSession(ctx, g.ID, models.SessionInput{
		Date: "2024-03-01", LessonName: "Aula 1", PresentMemberIDs: []int64{a.ID, b.ID},
	})
	require.NoError(t, err)
	require.NoError(t, svc.RemoveMember(ctx, g.ID, b.ID))

	history, err := svc.ListSessions(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.ElementsMatch(t, []int64{a.ID, b.ID}, history[0].PresentMemberIDs)
	assert.Equal(t, 1, history[0].TotalMembers)
}

func TestSaveSession_AcceptsNonRosterMembers(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	g := mustGroup(t, svc, "Jovens", "Quinta-feira")
	visitor := mustMember(t, svc, "Visitante")

	_, err := svc.SaveSession(ctx, g.ID, models.SessionInput{
		Date: "2024-03-01", LessonName: "Aula 1", PresentMemberIDs: []int64{visitor.ID},
	})
	require.NoError(t, err)

	history, err := svc.ListSessions(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, []int64{visitor.ID}, history[0].PresentMemberIDs)
	assert.Zero(t, history[0].AttendanceRate)
}

func TestListSessions_MostRecentFirst(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	g := mustGroup(t, svc, "Jovens", "Quinta-feira")
	for _, date := range []string{"2024-01-10", "2024-02-01", "2024-01-20"} {
		_, err := svc.SaveSession(ctx, g.ID, models.SessionInput{Date: date, LessonName: "Estudo"})
		require.NoError(t, err)
	}

	history, err := svc.ListSessions(ctx, g.ID)
	require.NoError(t, err)

	dates := make([]string, 0, len(history))
	for _, h := range history {
		dates = append(dates, h.Date)
	}
	assert.Equal(t, []string{"2024-02-01", "2024-01-20", "2024-01-10"}, dates)
}

func TestGroupAttendanceScenario(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	g := mustGroup(t, svc, "Jovens", "Quinta-feira")
	a := mustMember(t, svc, "Ana")
	b := mustMember(t, svc, "Bruno")

	_, err := svc.AddMembers(ctx, g.ID, []int64{a.ID, b.ID})
	require.NoError(t, err)

	roster, err := svc.ListMembers(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.ElementsMatch(t, []int64{a.ID, b.ID}, rosterIDs(roster))
	for _, rm := range roster {
		assert.Equal(t, models.DefaultRole, rm.Role)
	}

	id, err := svc.SaveSession(ctx, g.ID, models.SessionInput{
		Date: "2024-03-01", LessonName: "Aula 1", PresentMemberIDs: []int64{a.ID},
	})
	require.NoError(t, err)

	history, err := svc.ListSessions(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Aula 1", history[0].LessonName)
	assert.Equal(t, []int64{a.ID}, history[0].PresentMemberIDs)
	assert.Equal(t, 2, history[0].TotalMembers)
	assert.InDelta(t, 0.5, history[0].AttendanceRate, 1e-9)

	sameID, err := svc.SaveSession(ctx, g.ID, models.SessionInput{
		ID: &id, Date: "2024-03-01", LessonName: "Aula 1 Revisada", PresentMemberIDs: []int64{a.ID, b.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, id, sameID)

	history, err = svc.ListSessions(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, id, history[0].ID)
	assert.Equal(t, "Aula 1 Revisada", history[0].LessonName)
	assert.ElementsMatch(t, []int64{a.ID, b.ID}, history[0].PresentMemberIDs)
}

func TestSaveSession_Validation(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(t)
	ctx := context.Background()
	g := mustGroup(t, svc, "Jovens", "Quinta-feira")

	tests := []struct {
		name   string
		input  models.SessionInput
		fields []string
	}{
		{"missing everything", models.SessionInput{}, []string{"date", "lesson_name"}},
		{"bad date", models.SessionInput{Date: "01/03/2024", LessonName: "Aula"}, []string{"date"}},
		{"blank lesson", models.SessionInput{Date: "2024-03-01", LessonName: "   "}, []string{"lesson_name"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SaveSession(ctx, g.ID, tt.input)
			require.ErrorIs(t, err, models.ErrValidation)

			var verr *models.ValidationError
			require.ErrorAs(t, err, &verr)
			fields := make([]string, 0, len(verr.Errors))
			for _, fe := range verr.Errors {
				fields = append(fields, fe.Field)
			}
			assert.Equal(t, tt.fields, fields)
		})
	}
	assert.Zero(t, store.SessionCount(g.ID))
}

func TestSaveSession_UnknownSessionOrGroup(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	jovens := mustGroup(t, svc, "Jovens", "Quinta-feira")
	casais := mustGroup(t, svc, "Casais", "Sábado")

	id, err := svc.SaveSession(ctx, casais.ID, models.SessionInput{Date: "2024-03-02", LessonName: "Aula"})
	require.NoError(t, err)

	_, err = svc.SaveSession(ctx, jovens.ID, models.SessionInput{ID: &id, Date: "2024-03-01", LessonName: "Outra"})
	require.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.SaveSession(ctx, 999, models.SessionInput{Date: "2024-03-01", LessonName: "Aula"})
	require.ErrorIs(t, err, models.ErrNotFound)

	history, err := svc.ListSessions(ctx, casais.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Aula", history[0].LessonName)
}

func TestSaveSession_RollsBackOnAttendanceFailure(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(t)
	ctx := context.Background()

	g := mustGroup(t, svc, "Jovens", "Quinta-feira")
	a := mustMember(t, svc, "Ana")

	_, err := svc.SaveSession(ctx, g.ID, models.SessionInput{
		Date: "2024-03-01", LessonName: "Aula 1", PresentMemberIDs: []int64{a.ID, 12345},
	})
	require.ErrorIs(t, err, models.ErrNotFound)
	assert.Zero(t, store.SessionCount(g.ID))

	id, err := svc.SaveSession(ctx, g.ID, models.SessionInput{
		Date: "2024-03-01", LessonName: "Aula 1", PresentMemberIDs: []int64{a.ID},
	})
	require.NoError(t, err)

	_, err = svc.SaveSession(ctx, g.ID, models.SessionInput{
		ID: &id, Date: "2024-03-08", LessonName: "Aula 2", PresentMemberIDs: []int64{12345},
	})
	require.ErrorIs(t, err, models.ErrNotFound)

	history, err := svc.ListSessions(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "2024-03-01", history[0].Date)
	assert.Equal(t, "Aula 1", history[0].LessonName)
	assert.Equal(t, []int64{a.ID}, history[0].PresentMemberIDs)
}
