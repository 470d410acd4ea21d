package source

import (
	"context"
	"fmt"
	"sort"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/theimaginaryfoundation/digest-o-bot/digest"
)

// TelegramSource drains pending channel posts from the Bot API. The bot must
// be an admin of the channels it watches; getUpdates only surfaces posts
// made while the bot was subscribed.
type TelegramSource struct {
	bot *tgbotapi.BotAPI
	// pollTimeout is the long-poll timeout in seconds.
	pollTimeout int
}

// NewTelegramSource authenticates against the Bot API.
func NewTelegramSource(token string) (*TelegramSource, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram source: auth: %w", err)
	}
	return &TelegramSource{bot: bot, pollTimeout: 5}, nil
}

// Fetch drains queued channel posts, keeping those inside the window and
// channel set, ordered by timestamp then arrival.
func (s *TelegramSource) Fetch(ctx context.Context, window Window, channels []string) ([]digest.Message, error) {
	if s == nil || s.bot == nil {
		return nil, fmt.Errorf("telegram source: nil bot")
	}
	filter := newChannelFilter(channels)

	var messages []digest.Message
	offset := 0
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		cfg := tgbotapi.NewUpdate(offset)
		cfg.Timeout = s.pollTimeout
		cfg.AllowedUpdates = []string{"channel_post"}
		updates, err := s.bot.GetUpdates(cfg)
		if err != nil {
			return nil, fmt.Errorf("telegram source: get updates: %w", err)
		}
		if len(updates) == 0 {
			break
		}
		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			post := update.ChannelPost
			if post == nil {
				continue
			}
			msg, ok := postToMessage(post, window, filter)
			if !ok {
				continue
			}
			messages = append(messages, msg)
		}
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].TimestampUTC < messages[j].TimestampUTC
	})
	for i := range messages {
		messages[i].SourceIndex = i
	}
	return messages, nil
}

func postToMessage(post *tgbotapi.Message, window Window, filter channelFilter) (digest.Message, bool) {
	text := post.Text
	if text == "" {
		text = post.Caption
	}
	if text == "" || post.Chat == nil {
		return digest.Message{}, false
	}
	if !filter.allows(post.Chat.UserName) {
		return digest.Message{}, false
	}
	t := time.Unix(int64(post.Date), 0).UTC()
	if !window.Contains(t) {
		return digest.Message{}, false
	}
	return digest.Message{
		Text:          text,
		TimestampUTC:  digest.FormatTimestamp(t),
		ChannelTitle:  post.Chat.Title,
		ChannelHandle: post.Chat.UserName,
	}, true
}
