// Package source feeds raw channel messages into the pipeline. The only
// production source is Telegram channel posts via the Bot API; tests drive
// the pipeline channel directly.
package source

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/akaramanis/signalbridge/internal/pipeline"
)

// TelegramListener long-polls the Bot API and forwards channel posts that
// pass the keyword pre-filter. The bot must be an admin of each monitored
// channel to receive its posts.
type TelegramListener struct {
	bot      *tgbotapi.BotAPI
	channels map[string]bool
	out      chan<- pipeline.Message
	filter   func(string) bool
	log      zerolog.Logger
}

// NewTelegramListener connects to the Bot API. channels is a list of
// channel usernames (without @); empty means accept posts from any channel
// the bot can see. filter may be nil to forward everything.
func NewTelegramListener(token string, channels []string, out chan<- pipeline.Message, filter func(string) bool, log zerolog.Logger) (*TelegramListener, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	allowed := make(map[string]bool, len(channels))
	for _, ch := range channels {
		allowed[strings.ToLower(strings.TrimPrefix(ch, "@"))] = true
	}

	l := &TelegramListener{
		bot:      bot,
		channels: allowed,
		out:      out,
		filter:   filter,
		log:      log.With().Str("component", "telegram_source").Logger(),
	}

	l.log.Info().Str("bot", bot.Self.UserName).Int("channels", len(channels)).Msg("Telegram source connected")
	return l, nil
}

// Run consumes updates until the context is cancelled.
func (l *TelegramListener) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"channel_post"}

	updates := l.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			l.bot.StopReceivingUpdates()
			l.log.Info().Msg("Telegram source stopped")
			return
		case update, ok := <-updates:
			if !ok {
				l.log.Warn().Msg("Telegram update channel closed")
				return
			}
			l.handle(update)
		}
	}
}

func (l *TelegramListener) handle(update tgbotapi.Update) {
	post := update.ChannelPost
	if post == nil || post.Text == "" {
		return
	}

	channel := strings.ToLower(post.Chat.UserName)
	if len(l.channels) > 0 && !l.channels[channel] {
		return
	}
	if l.filter != nil && !l.filter(post.Text) {
		l.log.Debug().
			Int("message_id", post.MessageID).
			Str("channel", channel).
			Msg("Message skipped by keyword pre-filter")
		return
	}

	msg := pipeline.Message{
		Text:      post.Text,
		MessageID: int64(post.MessageID),
		Channel:   channel,
		Timestamp: post.Time(),
	}

	// Never block the update loop: dropping a message under backpressure
	// beats falling behind the Bot API long-poll.
	select {
	case l.out <- msg:
	default:
		l.log.Warn().
			Int64("message_id", msg.MessageID).
			Str("channel", channel).
			Msg("Pipeline backlogged, message dropped")
	}
}
