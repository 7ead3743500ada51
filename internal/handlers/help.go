package handlers

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/IgrejaBoT/internal/telegram"
)

const helpText = `📚 Comandos do IgrejaBoT

Grupos de discipulado:
• /grupos - lista os grupos
• /grupo <id> - detalhes do grupo
• /proximo [id] - próximo encontro (sem id, usa o grupo deste chat)

Comunicação:
• /vincular <id> - liga este chat ao grupo para receber avisos
• /desvincular - remove a ligação deste chat

Presença, membros e turmas de novos membros são gerenciados pelo painel web.`

// HelpHandler handles the /help command
type HelpHandler struct {
	logger *logrus.Logger
}

func NewHelpHandler(logger *logrus.Logger) *HelpHandler {
	return &HelpHandler{logger: logger}
}

func (h *HelpHandler) Handle(bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	if err := reply(bot, message.Chat.ID, helpText); err != nil {
		return fmt.Errorf("failed to send help message: %w", err)
	}

	h.logger.WithField("chat_id", message.Chat.ID).Info("Sent help message")
	return nil
}
