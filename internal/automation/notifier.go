package automation

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	engerrors "github.com/quangtran88/signalbot/internal/errors"
	"github.com/quangtran88/signalbot/internal/risk"
	"github.com/quangtran88/signalbot/internal/strategy"
)

// Notifier delivers signal alerts to the operator.
type Notifier interface {
	NotifySignal(ctx context.Context, sig *strategy.TradingSignal, dec risk.Decision, note string) error
}

// TelegramNotifier sends alerts through the Telegram bot API.
type TelegramNotifier struct {
	client *resty.Client
	token  string
	chatID string
}

// NewTelegramNotifier creates a notifier for the given bot token and chat.
func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		client: resty.New(),
		token:  token,
		chatID: chatID,
	}
}

func (t *TelegramNotifier) NotifySignal(ctx context.Context, sig *strategy.TradingSignal, dec risk.Decision, note string) error {
	emoji := "📈"
	if sig.Direction == strategy.DirectionSell {
		emoji = "📉"
	}

	text := fmt.Sprintf("%s *%s %s* (%s)\nConfidence: %.2f\nPrice: %.2f\nQuantity: %.4f",
		emoji, sig.Direction, sig.Symbol, sig.Timeframe, sig.Confidence, sig.Price, dec.SizedQuantity)
	if dec.StopLossPrice > 0 {
		text += fmt.Sprintf("\nStop loss: %.2f", dec.StopLossPrice)
	}
	if note != "" {
		text += "\n" + note
	}

	apiURL := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)
	resp, err := t.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"chat_id":    t.chatID,
			"text":       text,
			"parse_mode": "Markdown",
		}).
		Post(apiURL)
	if err != nil {
		return engerrors.Wrap(err, engerrors.CategoryNetwork, "notifier", "NotifySignal")
	}
	if resp.StatusCode() != 200 {
		return engerrors.New(engerrors.CategoryUnavailable, "notifier", "NotifySignal",
			fmt.Sprintf("telegram API returned status %d", resp.StatusCode()))
	}
	return nil
}

// LogNotifier writes alerts to the log. It is the fallback when no
// Telegram credentials are configured.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifySignal(ctx context.Context, sig *strategy.TradingSignal, dec risk.Decision, note string) error {
	n.log.Info().
		Str("symbol", sig.Symbol).
		Str("direction", string(sig.Direction)).
		Str("timeframe", sig.Timeframe).
		Float64("confidence", sig.Confidence).
		Float64("quantity", dec.SizedQuantity).
		Str("note", note).
		Msg("signal alert")
	return nil
}
