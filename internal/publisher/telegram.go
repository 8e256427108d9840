package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/trendpilot/trendpilot/internal/models"
)

// telegramAPI is the slice of the bot API the publisher uses; satisfied by
// *tgbotapi.BotAPI and by test fakes.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramPublisher posts to a Telegram chat or channel. The target chat
// comes from the agent's platform options, so one bot serves many agents.
type TelegramPublisher struct {
	bot    telegramAPI
	logger *slog.Logger
}

// NewTelegramPublisher creates a publisher backed by the bot token.
func NewTelegramPublisher(token string, logger *slog.Logger) (*TelegramPublisher, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	return &TelegramPublisher{bot: bot, logger: logger}, nil
}

// newTelegramPublisherWithAPI wires a custom API implementation. Test hook.
func newTelegramPublisherWithAPI(bot telegramAPI, logger *slog.Logger) *TelegramPublisher {
	return &TelegramPublisher{bot: bot, logger: logger}
}

// Platform implements Publisher.
func (p *TelegramPublisher) Platform() models.Platform { return models.PlatformTelegram }

// Publish sends the text to the chat named in options: "chat_id" (numeric)
// or "channel" (@username). A mediaURL becomes a photo with the text as
// caption.
func (p *TelegramPublisher) Publish(ctx context.Context, text, mediaURL string, options map[string]string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var msg tgbotapi.Chattable
	switch {
	case options["chat_id"] != "":
		chatID, err := strconv.ParseInt(options["chat_id"], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid telegram chat_id %q: %w", options["chat_id"], err)
		}
		msg = p.buildMessage(chatID, "", text, mediaURL)
	case options["channel"] != "":
		msg = p.buildMessage(0, options["channel"], text, mediaURL)
	default:
		return nil, fmt.Errorf("agent has no telegram chat_id or channel configured")
	}

	sent, err := p.bot.Send(msg)
	if err != nil {
		return nil, fmt.Errorf("telegram send: %w", err)
	}

	result := &Result{PostID: strconv.Itoa(sent.MessageID)}
	if sent.Chat != nil && sent.Chat.UserName != "" {
		result.URL = fmt.Sprintf("https://t.me/%s/%d", sent.Chat.UserName, sent.MessageID)
	}

	p.logger.Info("telegram message posted", "message_id", sent.MessageID)
	return result, nil
}

func (p *TelegramPublisher) buildMessage(chatID int64, channel, text, mediaURL string) tgbotapi.Chattable {
	if mediaURL != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(mediaURL))
		photo.Caption = text
		if channel != "" {
			photo.ChannelUsername = channel
		}
		return photo
	}
	if channel != "" {
		return tgbotapi.NewMessageToChannel(channel, text)
	}
	return tgbotapi.NewMessage(chatID, text)
}
