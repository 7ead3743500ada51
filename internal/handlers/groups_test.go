package handlers

import (
	"context"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/IgrejaBoT/internal/models"
	"github.com/Kerhoff/IgrejaBoT/internal/service"
	"github.com/Kerhoff/IgrejaBoT/internal/testutil"
)

const chatID = int64(-1001)

func newTestService(t *testing.T) (*service.Service, *logrus.Logger) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := testutil.NewMemStore()
	svc := service.New(logger, store.TxManager(),
		store.Members(), store.Groups(), store.Memberships(), store.Sessions(), store.Classes(),
		service.Options{
			// Wednesday
			Now: func() time.Time { return time.Date(2024, time.March, 6, 10, 0, 0, 0, time.UTC) },
		},
	)
	return svc, logger
}

func seedGroup(t *testing.T, svc *service.Service) *models.Group {
	t.Helper()
	ctx := context.Background()

	g, err := svc.CreateGroup(ctx, models.Group{
		Name:        "Jovens",
		Leader:      "Pr. Carlos",
		MeetingDay:  "Quinta-feira",
		MeetingTime: "19:30",
		Location:    "Salão 2",
	})
	require.NoError(t, err)

	ana, err := svc.CreateMember(ctx, models.Member{Name: "Ana"})
	require.NoError(t, err)
	bia, err := svc.CreateMember(ctx, models.Member{Name: "Bia"})
	require.NoError(t, err)

	_, err = svc.AddMembers(ctx, g.ID, []int64{ana.ID, bia.ID})
	require.NoError(t, err)
	_, err = svc.SaveSession(ctx, g.ID, models.SessionInput{
		Date:             "2024-02-29",
		LessonName:       "Oração",
		PresentMemberIDs: []int64{ana.ID},
	})
	require.NoError(t, err)
	return g
}

func TestGroupsHandler(t *testing.T) {
	svc, logger := newTestService(t)
	h := NewGroupsHandler(svc, logger)
	bot := &testutil.FakeBot{}

	require.NoError(t, h.Handle(bot, testutil.CommandMessage(chatID, "/grupos"), nil))
	assert.Contains(t, bot.LastText(), "Nenhum grupo")

	g := seedGroup(t, svc)
	require.NoError(t, h.Handle(bot, testutil.CommandMessage(chatID, "/grupos"), nil))
	assert.Contains(t, bot.LastText(), "#"+itoa(g.ID)+" Jovens")
	assert.Contains(t, bot.LastText(), "2 membros")
}

func TestGroupHandler(t *testing.T) {
	svc, logger := newTestService(t)
	h := NewGroupHandler(svc, logger)
	bot := &testutil.FakeBot{}
	g := seedGroup(t, svc)

	require.NoError(t, h.Handle(bot, testutil.CommandMessage(chatID, "/grupo"), nil))
	assert.Contains(t, bot.LastText(), "Uso: /grupo")

	require.NoError(t, h.Handle(bot, testutil.CommandMessage(chatID, "/grupo 999"), []string{"999"}))
	assert.Equal(t, groupNotFound, bot.LastText())

	require.NoError(t, h.Handle(bot, testutil.CommandMessage(chatID, "/grupo"), []string{itoa(g.ID)}))
	text := bot.LastText()
	assert.Contains(t, text, "Líder: Pr. Carlos")
	assert.Contains(t, text, "Próximo encontro: 07/03/2024")
	assert.Contains(t, text, "29/02/2024 Oração: 1/2 presentes")
}

func TestNextMeetingHandler(t *testing.T) {
	svc, logger := newTestService(t)
	g := seedGroup(t, svc)
	bot := &testutil.FakeBot{}
	next := NewNextMeetingHandler(svc, logger)

	require.NoError(t, next.Handle(bot, testutil.CommandMessage(chatID, "/proximo"), nil))
	assert.Contains(t, bot.LastText(), "não está ligado")

	require.NoError(t, next.Handle(bot, testutil.CommandMessage(chatID, "/proximo"), []string{"abc"}))
	assert.Contains(t, bot.LastText(), "inválido")

	require.NoError(t, next.Handle(bot, testutil.CommandMessage(chatID, "/proximo"), []string{itoa(g.ID)}))
	assert.Contains(t, bot.LastText(), "Quinta-feira, 07/03/2024 às 19:30")
	assert.Contains(t, bot.LastText(), "Salão 2")
}

func TestLinkAndUnlinkHandlers(t *testing.T) {
	svc, logger := newTestService(t)
	g := seedGroup(t, svc)
	bot := &testutil.FakeBot{}
	ctx := context.Background()

	link := NewLinkHandler(svc, logger)
	require.NoError(t, link.Handle(bot, testutil.CommandMessage(chatID, "/vincular"), []string{"#" + itoa(g.ID)}))
	assert.Contains(t, bot.LastText(), "grupo Jovens")

	linked, err := svc.GroupByChat(ctx, chatID)
	require.NoError(t, err)
	assert.Equal(t, g.ID, linked.ID)

	next := NewNextMeetingHandler(svc, logger)
	require.NoError(t, next.Handle(bot, testutil.CommandMessage(chatID, "/proximo"), nil))
	assert.Contains(t, bot.LastText(), "Próximo encontro de Jovens")

	require.NoError(t, link.Handle(bot, testutil.CommandMessage(chatID, "/vincular"), []string{"404"}))
	assert.Equal(t, groupNotFound, bot.LastText())

	unlink := NewUnlinkHandler(svc, logger)
	require.NoError(t, unlink.Handle(bot, testutil.CommandMessage(chatID, "/desvincular"), nil))
	_, err = svc.GroupByChat(ctx, chatID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestLinkHandler_OtherChatCannotTakeOver(t *testing.T) {
	svc, logger := newTestService(t)
	g := seedGroup(t, svc)
	link := NewLinkHandler(svc, logger)
	ctx := context.Background()

	owner := &testutil.FakeBot{}
	require.NoError(t, link.Handle(owner, testutil.CommandMessage(chatID, "/vincular"), []string{itoa(g.ID)}))

	stranger := &testutil.FakeBot{}
	require.NoError(t, link.Handle(stranger, testutil.CommandMessage(777, "/vincular"), []string{itoa(g.ID)}))
	assert.Equal(t, groupAlreadyLinked, stranger.LastText())

	linked, err := svc.GroupByChat(ctx, chatID)
	require.NoError(t, err)
	assert.Equal(t, g.ID, linked.ID)

	_, err = svc.GroupByChat(ctx, 777)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestStartAndHelp(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	bot := &testutil.FakeBot{}

	require.NoError(t, NewStartHandler(logger).Handle(bot, testutil.CommandMessage(chatID, "/start"), nil))
	assert.Contains(t, bot.LastText(), "/vincular")

	require.NoError(t, NewHelpHandler(logger).Handle(bot, testutil.CommandMessage(chatID, "/help"), nil))
	assert.Contains(t, bot.LastText(), "/desvincular")
	assert.Empty(t, bot.Messages()[1].ParseMode)
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "07/03/2024", formatDate("2024-03-07"))
	assert.Equal(t, "Sábado", formatDate("Sábado"))
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
