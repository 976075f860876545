package telegram

import (
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier - односторонний канал доставки: только отправка сообщений в группы.
// Прием апдейтов (команды, NLU) живет в отдельном сервисе и сюда не относится.
type Notifier struct {
	bot     *tgbotapi.BotAPI
	adminID int64
	logger  *slog.Logger
}

func NewNotifier(bot *tgbotapi.BotAPI, adminID int64, logger *slog.Logger) *Notifier {
	return &Notifier{
		bot:     bot,
		adminID: adminID,
		logger:  logger.With(slog.String("component", "telegram_notifier")),
	}
}

// SendToChat отправляет HTML-сообщение в группу.
// Ошибка возвращается вызывающему: он решает, двигать ли watermark алерта.
func (n *Notifier) SendToChat(chatID int64, message string) error {
	msg := tgbotapi.NewMessage(chatID, message)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send to %d: %w", chatID, err)
	}
	return nil
}

// NotifyAdmin шлет служебное сообщение админу. Без админа в конфиге - no-op.
func (n *Notifier) NotifyAdmin(message string) error {
	if n.adminID == 0 {
		return nil
	}
	if err := n.SendToChat(n.adminID, message); err != nil {
		n.logger.Warn("Не удалось уведомить админа", slog.String("err", err.Error()))
		return err
	}
	return nil
}
