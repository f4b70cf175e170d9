// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const notAdminReply = "抱歉，只有管理员可以使用这个机器人。"

// RegisterBotCommands wires /start and /help. Only the configured admin gets
// a real answer.
func RegisterBotCommands(b *telebot.Bot, adminTelegramID int64, baseLogger *logrus.Entry) {
	h := &commandHandlers{adminTelegramID: adminTelegramID, logger: baseLogger.WithField("handler_group", "start_help")}
	b.Handle("/start", h.start)
	b.Handle("/help", h.help)
}

type commandHandlers struct {
	adminTelegramID int64
	logger          *logrus.Entry
}

// senderID is false for updates without a user, such as channel posts.
func senderID(c telebot.Context) (int64, bool) {
	if c.Sender() == nil {
		return 0, false
	}
	return c.Sender().ID, true
}

func (h *commandHandlers) start(c telebot.Context) error {
	id, ok := senderID(c)
	if !ok {
		h.logger.WithField("command", "/start").Debug("Ignoring command without sender")
		return nil
	}
	logCtx := h.logger.WithFields(logrus.Fields{"command": "/start", "sender_id": id})
	logCtx.Info("Processing /start command")

	if id != h.adminTelegramID {
		logCtx.Info("User is not the admin")
		return c.Send(notAdminReply)
	}
	return c.Send(fmt.Sprintf("你好，%s！作业助手已就绪，发送 /help 查看可用命令。", c.Sender().FirstName))
}

func (h *commandHandlers) help(c telebot.Context) error {
	id, ok := senderID(c)
	if !ok {
		h.logger.WithField("command", "/help").Debug("Ignoring command without sender")
		return nil
	}
	logCtx := h.logger.WithFields(logrus.Fields{"command": "/help", "sender_id": id})
	logCtx.Info("Processing /help command")

	if id != h.adminTelegramID {
		return c.Send(notAdminReply)
	}

	var helpText strings.Builder
	helpText.WriteString("管理员命令:\n\n")
	helpText.WriteString("/today\n - 查看今日各科作业完成情况\n\n")
	helpText.WriteString("/digest\n - 立即把作业进度发送到作业群\n\n")
	helpText.WriteString("/help\n - 显示本帮助")
	return c.Send(helpText.String())
}
