package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duty-planner/internal/clock"
	"duty-planner/internal/service"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func failedReport(n int) *service.Report {
	r := &service.Report{RunID: "run-1", Kind: service.RunRollover, Now: clock.Date(2024, 1, 11)}
	for i := 0; i < n; i++ {
		r.Fail("carry", uint(i+1), clock.Date(2024, 1, 10), fmt.Errorf("payload <missing> %d", i))
	}
	return r
}

func TestTelegram_AlertsOnlyOnFailure(t *testing.T) {
	sender := &fakeSender{}
	n := NewTelegramWithSender(sender, 42)
	ctx := context.Background()

	require.NoError(t, n.RunFinished(ctx, &service.Report{Kind: service.RunExpansion, Now: time.Now()}))
	assert.Empty(t, sender.sent)

	require.NoError(t, n.RunFinished(ctx, failedReport(2)))
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
	assert.Contains(t, msg.Text, "rollover run had 2 failure(s)")
	assert.Contains(t, msg.Text, "• carry #1 (2024-01-10): payload &lt;missing&gt; 0")
}

func TestTelegram_SendError(t *testing.T) {
	n := NewTelegramWithSender(&fakeSender{err: errors.New("flood wait")}, 1)
	err := n.Send(context.Background(), "hi")
	assert.ErrorContains(t, err, "flood wait")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.Send(ctx, "hi"), context.Canceled)
}

func TestFormatAlert_Truncates(t *testing.T) {
	text := FormatAlert(failedReport(maxFailuresShown + 3))
	assert.Contains(t, text, "… and 3 more")
	assert.NotContains(t, text, fmt.Sprintf("#%d ", maxFailuresShown+1))
}

func TestLogNotifier(t *testing.T) {
	var n Notifier = LogNotifier{}
	assert.NoError(t, n.RunFinished(context.Background(), failedReport(1)))
	assert.NoError(t, n.Send(context.Background(), "digest"))
}
