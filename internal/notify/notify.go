// Package notify delivers run alerts and digests to operators.
package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	appLog "duty-planner/internal/log"
	"duty-planner/internal/service"
)

// maxFailuresShown caps the failure lines of one alert; Telegram rejects
// messages over 4096 characters.
const maxFailuresShown = 10

// Notifier is told about every finished batch run and can forward text.
type Notifier interface {
	RunFinished(ctx context.Context, report *service.Report) error
	Send(ctx context.Context, text string) error
}

// LogNotifier only writes to the application log. It is used when no
// Telegram token is configured.
type LogNotifier struct{}

func (LogNotifier) RunFinished(_ context.Context, report *service.Report) error {
	if report.OK() {
		appLog.Info("run ok", "kind", report.Kind, "run_id", report.RunID)
		return nil
	}
	for _, f := range report.Failures {
		appLog.Info("run item failed", "kind", report.Kind, "run_id", report.RunID,
			"item", f.Item, "id", f.ID, "day", f.Day, "error", f.Error)
	}
	return nil
}

func (LogNotifier) Send(_ context.Context, text string) error {
	appLog.Info("notification", "text", text)
	return nil
}

// Sender is the part of tgbotapi.BotAPI used here.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts failure alerts and digests to one ops chat.
type TelegramNotifier struct {
	api    Sender
	chatID int64
}

func NewTelegram(token string, chatID int64) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	appLog.Info("telegram notifier ready", "account", api.Self.UserName, "chat_id", chatID)
	return NewTelegramWithSender(api, chatID), nil
}

func NewTelegramWithSender(api Sender, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{api: api, chatID: chatID}
}

// RunFinished alerts only on runs with failures.
func (n *TelegramNotifier) RunFinished(ctx context.Context, report *service.Report) error {
	if report.OK() {
		return nil
	}
	return n.Send(ctx, FormatAlert(report))
}

func (n *TelegramNotifier) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := n.api.Send(msg); err != nil {
		appLog.Error("telegram send failed", err, "chat_id", n.chatID)
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

// FormatAlert renders a failed report in Telegram HTML.
func FormatAlert(report *service.Report) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🚨 <b>%s run had %d failure(s)</b>\n", html.EscapeString(report.Kind), len(report.Failures)))
	sb.WriteString(fmt.Sprintf("🗓 %s · <code>%s</code>\n\n", report.Now.Format("02.01.2006"), report.RunID))

	for i, f := range report.Failures {
		if i == maxFailuresShown {
			sb.WriteString(fmt.Sprintf("… and %d more\n", len(report.Failures)-maxFailuresShown))
			break
		}
		line := html.EscapeString(f.Item)
		if f.ID != 0 {
			line += fmt.Sprintf(" #%d", f.ID)
		}
		if f.Day != "" {
			line += " (" + f.Day + ")"
		}
		sb.WriteString(fmt.Sprintf("• %s: %s\n", line, html.EscapeString(f.Error)))
	}
	return strings.TrimSpace(sb.String())
}
