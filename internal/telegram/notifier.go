// Package telegram implements the outbound notification side of the bot:
// sending replies, broadcast questions, and digests to Telegram chats.
// Sends are fire-and-forget from the caller's perspective: failures are
// logged, never propagated to the turn flow.
//
// Telegram rejects messages above its length limit, and long digests easily
// exceed it, so texts are chunked at newline boundaries with a "(Часть i/n)"
// header when more than one chunk is needed.
package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// defaultChunkSize keeps each message comfortably below Telegram's limit
// while staying readable.
const defaultChunkSize = 1000

// sender is the slice of the Telegram Bot API the notifier needs; satisfied
// by *tgbotapi.BotAPI and by test fakes.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier sends texts to Telegram chats with chunking and pacing.
type Notifier struct {
	api       sender
	chunkSize int
	pause     time.Duration
	log       zerolog.Logger
}

// NewNotifier wraps a Bot API handle. chunkSize <= 0 selects the default;
// pause is the delay between consecutive chunks of one message (Telegram
// throttles rapid sends to the same chat).
func NewNotifier(api *tgbotapi.BotAPI, chunkSize int, pause time.Duration, log zerolog.Logger) *Notifier {
	return newNotifier(api, chunkSize, pause, log)
}

func newNotifier(api sender, chunkSize int, pause time.Duration, log zerolog.Logger) *Notifier {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &Notifier{api: api, chunkSize: chunkSize, pause: pause, log: log}
}

// Notify sends text to chatID, splitting into parts when needed. It returns
// the first send error so callers can log it; earlier chunks already sent
// are not retracted.
func (n *Notifier) Notify(ctx context.Context, chatID int64, text string) error {
	chunks := splitChunks(text, n.chunkSize)
	for i, part := range chunks {
		if len(chunks) > 1 {
			part = fmt.Sprintf("(Часть %d/%d)\n%s", i+1, len(chunks), part)
		}
		if _, err := n.api.Send(tgbotapi.NewMessage(chatID, part)); err != nil {
			n.log.Error().Err(err).Int64("chat_id", chatID).Int("part", i+1).Msg("telegram send failed")
			return err
		}
		if n.pause > 0 && i+1 < len(chunks) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(n.pause):
			}
		}
	}
	return nil
}

// splitChunks breaks text into pieces of at most size bytes, preferring to
// cut at the last newline inside the window so lines stay intact. A cut that
// would land mid-rune is backed up to the previous rune boundary so every
// chunk stays valid UTF-8.
func splitChunks(text string, size int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var chunks []string
	for len(text) > 0 {
		if len(text) <= size {
			chunks = append(chunks, text)
			break
		}
		cut := size
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		if cut == 0 {
			// size smaller than the first rune; emit the rune whole.
			_, cut = utf8.DecodeRuneInString(text)
		}
		part := text[:cut]
		if nl := strings.LastIndex(part, "\n"); nl > 0 {
			part = text[:nl]
		}
		chunks = append(chunks, strings.TrimSpace(part))
		text = strings.TrimLeft(text[len(part):], "\n ")
	}
	return chunks
}
