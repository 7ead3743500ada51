package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/IgrejaBoT/internal/models"
	"github.com/Kerhoff/IgrejaBoT/internal/service"
	"github.com/Kerhoff/IgrejaBoT/internal/telegram"
)

// commandTimeout bounds the service calls made for one command.
const commandTimeout = 10 * time.Second

// recentSessions is how many sessions /grupo shows.
const recentSessions = 3

const (
	groupNotFound      = "❌ Grupo não encontrado. Use /grupos para ver os ids."
	groupAlreadyLinked = "🔒 Este grupo já está ligado a outro chat. Use /desvincular no chat atual antes."
)

func reply(bot telegram.Sender, chatID int64, text string) error {
	_, err := bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// groupIDArg parses the first argument as a group id.
func groupIDArg(args []string) (int64, bool) {
	if len(args) == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// formatDate turns YYYY-MM-DD into DD/MM/YYYY; other values pass through.
func formatDate(date string) string {
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("02/01/2006")
}

// ---------------------------------------------------------------------------
// GroupsHandler – /grupos
// ---------------------------------------------------------------------------

// GroupsHandler lists every discipleship group.
type GroupsHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewGroupsHandler creates a new GroupsHandler.
func NewGroupsHandler(svc *service.Service, logger *logrus.Logger) *GroupsHandler {
	return &GroupsHandler{svc: svc, logger: logger}
}

func (h *GroupsHandler) Handle(bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	groups, err := h.svc.ListGroups(ctx)
	if err != nil {
		return fmt.Errorf("list groups: %w", err)
	}

	if len(groups) == 0 {
		return reply(bot, message.Chat.ID, "📭 Nenhum grupo de discipulado cadastrado.")
	}

	var sb strings.Builder
	sb.WriteString("📋 Grupos de discipulado\n\n")
	for _, g := range groups {
		fmt.Fprintf(&sb, "#%d %s\n   %s às %s · %d membros\n", g.ID, g.Name, g.MeetingDay, g.MeetingTime, g.MembersCount)
	}
	return reply(bot, message.Chat.ID, sb.String())
}

// ---------------------------------------------------------------------------
// GroupHandler – /grupo <id>
// ---------------------------------------------------------------------------

// GroupHandler shows the detail of one group.
type GroupHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewGroupHandler creates a new GroupHandler.
func NewGroupHandler(svc *service.Service, logger *logrus.Logger) *GroupHandler {
	return &GroupHandler{svc: svc, logger: logger}
}

func (h *GroupHandler) Handle(bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	id, ok := groupIDArg(args)
	if !ok {
		return reply(bot, message.Chat.ID, "❌ Informe o id do grupo.\nUso: /grupo 3")
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	snap, err := h.svc.GroupSnapshot(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return reply(bot, message.Chat.ID, groupNotFound)
	}
	if err != nil {
		return fmt.Errorf("group snapshot: %w", err)
	}

	g := snap.Group
	var sb strings.Builder
	fmt.Fprintf(&sb, "👥 %s (#%d)\n", g.Name, g.ID)
	fmt.Fprintf(&sb, "Líder: %s\n", g.Leader)
	fmt.Fprintf(&sb, "Encontros: %s às %s\n", g.MeetingDay, g.MeetingTime)
	if g.Location != "" {
		fmt.Fprintf(&sb, "Local: %s\n", g.Location)
	}
	if g.TargetAudience != "" {
		fmt.Fprintf(&sb, "Público: %s\n", g.TargetAudience)
	}
	fmt.Fprintf(&sb, "Membros: %d\n", g.MembersCount)
	fmt.Fprintf(&sb, "Próximo encontro: %s\n", formatDate(snap.NextMeeting))

	if len(snap.History) > 0 {
		sb.WriteString("\nÚltimos encontros:\n")
		for i, entry := range snap.History {
			if i == recentSessions {
				break
			}
			fmt.Fprintf(&sb, "• %s %s: %d/%d presentes\n",
				formatDate(entry.Date), entry.LessonName, len(entry.PresentMemberIDs), entry.TotalMembers)
		}
	}

	return reply(bot, message.Chat.ID, sb.String())
}

// ---------------------------------------------------------------------------
// NextMeetingHandler – /proximo [id]
// ---------------------------------------------------------------------------

// NextMeetingHandler answers with the next meeting date of a group. Without
// an id it uses the group linked to the current chat.
type NextMeetingHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewNextMeetingHandler creates a new NextMeetingHandler.
func NewNextMeetingHandler(svc *service.Service, logger *logrus.Logger) *NextMeetingHandler {
	return &NextMeetingHandler{svc: svc, logger: logger}
}

func (h *NextMeetingHandler) Handle(bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var (
		group *models.Group
		err   error
	)
	if len(args) == 0 {
		group, err = h.svc.GroupByChat(ctx, message.Chat.ID)
		if errors.Is(err, models.ErrNotFound) {
			return reply(bot, message.Chat.ID, "❌ Este chat não está ligado a um grupo.\nUse /proximo <id> ou /vincular <id>.")
		}
	} else {
		id, ok := groupIDArg(args)
		if !ok {
			return reply(bot, message.Chat.ID, "❌ Id de grupo inválido.\nUso: /proximo 3")
		}
		group, err = h.svc.GetGroup(ctx, id)
		if errors.Is(err, models.ErrNotFound) {
			return reply(bot, message.Chat.ID, groupNotFound)
		}
	}
	if err != nil {
		return fmt.Errorf("find group: %w", err)
	}

	next := h.svc.NextMeetingDate(group)
	text := fmt.Sprintf("📅 Próximo encontro de %s: %s, %s às %s",
		group.Name, group.MeetingDay, formatDate(next), group.MeetingTime)
	if group.Location != "" {
		text += "\n📍 " + group.Location
	}
	return reply(bot, message.Chat.ID, text)
}

// ---------------------------------------------------------------------------
// LinkHandler – /vincular <id>
// ---------------------------------------------------------------------------

// LinkHandler binds the current chat to a group so it receives the group's
// messages and broadcasts.
type LinkHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewLinkHandler creates a new LinkHandler.
func NewLinkHandler(svc *service.Service, logger *logrus.Logger) *LinkHandler {
	return &LinkHandler{svc: svc, logger: logger}
}

func (h *LinkHandler) Handle(bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	id, ok := groupIDArg(args)
	if !ok {
		return reply(bot, message.Chat.ID, "❌ Informe o id do grupo.\nUso: /vincular 3")
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	group, err := h.svc.LinkGroupChat(ctx, id, message.Chat.ID)
	if errors.Is(err, models.ErrNotFound) {
		return reply(bot, message.Chat.ID, groupNotFound)
	}
	if errors.Is(err, models.ErrAlreadyExists) {
		return reply(bot, message.Chat.ID, groupAlreadyLinked)
	}
	if err != nil {
		return fmt.Errorf("link chat: %w", err)
	}

	return reply(bot, message.Chat.ID,
		fmt.Sprintf("🔗 Este chat agora recebe os avisos do grupo %s.", group.Name))
}

// ---------------------------------------------------------------------------
// UnlinkHandler – /desvincular
// ---------------------------------------------------------------------------

// UnlinkHandler removes the binding of the current chat.
type UnlinkHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewUnlinkHandler creates a new UnlinkHandler.
func NewUnlinkHandler(svc *service.Service, logger *logrus.Logger) *UnlinkHandler {
	return &UnlinkHandler{svc: svc, logger: logger}
}

func (h *UnlinkHandler) Handle(bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := h.svc.UnlinkGroupChat(ctx, message.Chat.ID); err != nil {
		return fmt.Errorf("unlink chat: %w", err)
	}
	return reply(bot, message.Chat.ID, "✅ Este chat não está mais ligado a nenhum grupo.")
}
