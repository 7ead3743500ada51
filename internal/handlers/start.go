package handlers

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/IgrejaBoT/internal/telegram"
)

const welcomeText = `👋 Olá! Eu sou o IgrejaBoT.

Ajudo líderes de discipulado a acompanhar seus grupos:
• /grupos - lista os grupos de discipulado
• /grupo <id> - detalhes, membros e últimos encontros
• /proximo [id] - data do próximo encontro
• /vincular <id> - liga este chat a um grupo
• /desvincular - desliga este chat do grupo

Use /help para ver todos os comandos.`

// StartHandler handles the /start command
type StartHandler struct {
	logger *logrus.Logger
}

// NewStartHandler creates a new start command handler
func NewStartHandler(logger *logrus.Logger) *StartHandler {
	return &StartHandler{
		logger: logger,
	}
}

// Handle processes the /start command
func (h *StartHandler) Handle(bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	if err := reply(bot, message.Chat.ID, welcomeText); err != nil {
		return fmt.Errorf("failed to send start message: %w", err)
	}

	h.logger.WithField("chat_id", message.Chat.ID).Info("Sent start message")
	return nil
}
