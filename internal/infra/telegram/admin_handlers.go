package telegram

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"homework_portal/internal/app"
)

const commandTimeout = 30 * time.Second

// DigestSource is the part of the digest service the admin commands need.
type DigestSource interface {
	Progress(ctx context.Context) (string, []app.SubjectProgress, error)
	SendDigest(ctx context.Context) error
}

// RegisterAdminHandlers registers /today and /digest for the admin.
func RegisterAdminHandlers(b *telebot.Bot, digest DigestSource, adminTelegramID int64, baseLogger *logrus.Entry) {
	h := &adminHandlers{digest: digest, adminTelegramID: adminTelegramID, logger: baseLogger}
	b.Handle("/today", h.today)
	b.Handle("/digest", h.sendDigest)
}

type adminHandlers struct {
	digest          DigestSource
	adminTelegramID int64
	logger          *logrus.Entry
}

func (h *adminHandlers) authorize(c telebot.Context, command string) (*logrus.Entry, bool) {
	id, ok := senderID(c)
	if !ok {
		h.logger.WithField("handler", command).Debug("Ignoring command without sender")
		return nil, false
	}
	handlerLogger := h.logger.WithFields(logrus.Fields{
		"handler":   command,
		"sender_id": id,
	})
	handlerLogger.Info("Command received")
	if id != h.adminTelegramID {
		handlerLogger.Warn("Unauthorized access attempt")
		return handlerLogger, false
	}
	return handlerLogger, true
}

// refuse answers non-admins. Updates without a sender get no reply.
func refuse(c telebot.Context) error {
	if _, ok := senderID(c); !ok {
		return nil
	}
	return c.Send(notAdminReply)
}

func (h *adminHandlers) today(c telebot.Context) error {
	handlerLogger, ok := h.authorize(c, "/today")
	if !ok {
		return refuse(c)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	today, progress, err := h.digest.Progress(ctx)
	if err != nil {
		handlerLogger.WithError(err).Error("Failed to build today's progress")
		return c.Send("读取作业数据失败，请稍后再试。")
	}

	handlerLogger.WithField("assignments", len(progress)).Info("Sent today's progress")
	return c.Send(app.FormatDigest(today, progress))
}

func (h *adminHandlers) sendDigest(c telebot.Context) error {
	handlerLogger, ok := h.authorize(c, "/digest")
	if !ok {
		return refuse(c)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := h.digest.SendDigest(ctx); err != nil {
		handlerLogger.WithError(err).Error("Failed to send digest")
		return c.Send("发送作业进度失败，请稍后再试。")
	}
	return c.Send("作业进度已发送到作业群。")
}
