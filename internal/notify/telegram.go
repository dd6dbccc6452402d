// Package notify delivers emitted signals to a Telegram channel.
package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantfx/signalengine/models"
)

// Telegram sends formatted signal messages to a chat. It satisfies
// models.SignalSink.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("initializing telegram bot: %w", err)
	}
	return &Telegram{
		bot:    bot,
		chatID: chatID,
		logger: log.With().Str("component", "telegram").Logger(),
	}, nil
}

// SendSignal formats and delivers one signal.
func (t *Telegram) SendSignal(ctx context.Context, sig models.TradingSignal) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(t.chatID, FormatSignal(sig))
	msg.ParseMode = "Markdown"

	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	t.logger.Info().Str("id", sig.ID).Msg("signal notification sent")
	return nil
}

// FormatSignal renders a signal as a Markdown message.
func FormatSignal(sig models.TradingSignal) string {
	emoji := "🟢"
	if sig.Action == models.ActionSell {
		emoji = "🔴"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s %s* — Grade %s (%s)\n\n", emoji, sig.Action, sig.Pair, sig.Grade, sig.Confidence)
	fmt.Fprintf(&b, "Entry: `%.3f`\n", sig.Entry)
	fmt.Fprintf(&b, "Stop: `%.3f`\n", sig.StopLoss)
	fmt.Fprintf(&b, "TP1: `%.3f`  TP2: `%.3f`\n", sig.TakeProfit1, sig.TakeProfit2)
	fmt.Fprintf(&b, "Size: `%.0f` units  Risk: `$%.0f`  RR: `%.1f`\n\n", sig.Size, sig.RiskAmount, sig.RiskReward)
	fmt.Fprintf(&b, "Score: `%.1f`\n", sig.ConfluenceScore)
	fmt.Fprintf(&b, "_%s_", sig.Reason)
	return b.String()
}
