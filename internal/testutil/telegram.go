package testutil

import (
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// FakeBot records what handlers send instead of calling Telegram.
type FakeBot struct {
	mu       sync.Mutex
	messages []tgbotapi.MessageConfig
	requests int
	SendErr  error
}

func (b *FakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.SendErr != nil {
		return tgbotapi.Message{}, b.SendErr
	}
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		b.messages = append(b.messages, msg)
	}
	return tgbotapi.Message{}, nil
}

func (b *FakeBot) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// Messages returns the messages sent so far.
func (b *FakeBot) Messages() []tgbotapi.MessageConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), b.messages...)
}

// LastText returns the text of the last message, or "".
func (b *FakeBot) LastText() string {
	msgs := b.Messages()
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1].Text
}

// Requests returns how many non-message requests were made.
func (b *FakeBot) Requests() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests
}

// CommandMessage builds an incoming message carrying a bot command, such as
// "/grupo 3", sent from chatID.
func CommandMessage(chatID int64, text string) *tgbotapi.Message {
	length := len(text)
	if i := strings.IndexByte(text, ' '); i >= 0 {
		length = i
	}
	return &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: 42, UserName: "lider"},
		Chat:      &tgbotapi.Chat{ID: chatID, Type: "group", Title: "Jovens"},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}},
	}
}
