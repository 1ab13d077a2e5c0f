// Package filters решает, какие сообщения бот вообще обрабатывает.
package filters

import (
	"strings"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
)

// ChatFilter пропускает только личные сообщения от пользователей.
// Проверка на бота привязана к пользователю, в группах она не имеет смысла.
type ChatFilter struct {
	// botUsername — имя бота без @, для команд вида /start@bot
	botUsername string
	// notify вызывается, когда боту адресуют команду в группе (подсказка перейти в личку)
	notify func(chatID int64)
}

func NewChatFilter(botUsername string, notify func(chatID int64)) *ChatFilter {
	return &ChatFilter{botUsername: botUsername, notify: notify}
}

func (f *ChatFilter) CheckAccess(message *telego.Message) bool {
	if message == nil {
		log.WithField("component", "ChatFilter").Warn("nil message")
		return false
	}
	if message.From == nil {
		log.WithFields(log.Fields{
			"component": "ChatFilter",
			"chat_id":   message.Chat.ID,
			"chat_type": message.Chat.Type,
		}).Warn("nil message.From (service/channel message?)")
		return false
	}
	if message.From.IsBot {
		return false
	}

	logger := log.WithFields(log.Fields{
		"component": "ChatFilter",
		"chat_id":   message.Chat.ID,
		"chat_type": message.Chat.Type,
		"user_id":   message.From.ID,
	})

	if message.Chat.Type == telego.ChatTypePrivate {
		logger.Debug("allow: private")
		return true
	}

	logger.Debug("deny: not private")
	// Без privacy mode бот видит всю переписку группы, отвечаем только на свои команды
	if f.notify != nil && f.addressedToBot(message.Text) {
		f.notify(message.Chat.ID)
	}
	return false
}

// addressedToBot — команда без адресата или с @ именем этого бота.
func (f *ChatFilter) addressedToBot(text string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return false
	}
	_, target, found := strings.Cut(fields[0], "@")
	if !found {
		return true
	}
	return f.botUsername != "" && strings.EqualFold(target, f.botUsername)
}
