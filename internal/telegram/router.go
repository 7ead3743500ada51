package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

const (
	failureReply = "❌ Não foi possível processar o comando. Tente novamente."
	unknownReply = "❓ Comando desconhecido. Use /help para ver os comandos disponíveis."
)

// Sender is the part of the bot API used to answer updates. *tgbotapi.BotAPI
// satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Router handles message routing and command parsing
type Router struct {
	logger   *logrus.Logger
	handlers map[string]CommandHandler
}

// CommandHandler defines the interface for command handlers
type CommandHandler interface {
	Handle(bot Sender, message *tgbotapi.Message, args []string) error
}

// NewRouter creates a new message router
func NewRouter(logger *logrus.Logger) *Router {
	return &Router{
		logger:   logger,
		handlers: make(map[string]CommandHandler),
	}
}

// RegisterCommand registers a command handler
func (r *Router) RegisterCommand(command string, handler CommandHandler) {
	r.handlers[command] = handler
	r.logger.Debugf("Registered command: %s", command)
}

// HandleMessage dispatches a command message to its handler. Non-command
// messages are ignored.
func (r *Router) HandleMessage(bot Sender, message *tgbotapi.Message) {
	if message.Text == "" || !message.IsCommand() {
		return
	}

	command := message.Command()
	args := strings.Fields(message.CommandArguments())

	fields := logrus.Fields{
		"command":    command,
		"chat_id":    message.Chat.ID,
		"message_id": message.MessageID,
	}
	if message.From != nil {
		fields["user_id"] = message.From.ID
		fields["username"] = message.From.UserName
	}
	log := r.logger.WithFields(fields)
	log.Info("Received command")

	handler, exists := r.handlers[command]
	if !exists {
		log.Warn("Unknown command")
		r.reply(bot, message.Chat.ID, unknownReply)
		return
	}

	if err := handler.Handle(bot, message, args); err != nil {
		log.WithError(err).Error("Command handler failed")
		r.reply(bot, message.Chat.ID, failureReply)
	}
}

// HandleCallbackQuery acknowledges callback queries so clients stop showing
// a spinner. No command uses inline keyboards yet.
func (r *Router) HandleCallbackQuery(bot Sender, callbackQuery *tgbotapi.CallbackQuery) {
	r.logger.WithFields(logrus.Fields{
		"callback_id": callbackQuery.ID,
		"user_id":     callbackQuery.From.ID,
		"data":        callbackQuery.Data,
	}).Info("Received callback query")

	if _, err := bot.Request(tgbotapi.NewCallback(callbackQuery.ID, "")); err != nil {
		r.logger.WithError(err).Warn("Failed to answer callback query")
	}
}

func (r *Router) reply(bot Sender, chatID int64, text string) {
	if _, err := bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.logger.WithError(err).WithField("chat_id", chatID).Error("Failed to send reply")
	}
}
