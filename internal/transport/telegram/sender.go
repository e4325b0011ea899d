package telegram

import (
	"context"
	"strings"

	"github.com/sandevgo/mualim/pkg/conv"
	"github.com/sandevgo/mualim/pkg/log"
	tele "gopkg.in/telebot.v3"
)

const maxTelegramMsgLen = 4000 // Safety margin below 4096

type sender struct {
	bot *tele.Bot
}

func newSender(bot *tele.Bot) *sender {
	return &sender{bot: bot}
}

func (s *sender) renderHTML(md string) string {
	return strings.TrimSpace(conv.MarkdownToTelegramHTML([]byte(md)))
}

// finalize replaces the streamed placeholder with the complete answer,
// chunked when it exceeds the message limit. Extra chunks go out as
// separate messages after the edited one.
func (s *sender) finalize(ctx context.Context, to tele.Recipient, placeholder *tele.Message, md, lastHTML string) error {
	logger := log.FromCtx(ctx)
	html := s.renderHTML(md)
	if html == "" {
		html = md
	}

	chunks := splitHTML(html, maxTelegramMsgLen)
	if chunks[0] != lastHTML {
		if _, err := s.bot.Edit(placeholder, chunks[0], tele.ModeHTML); err != nil {
			logger.Error().Err(err).Msg("failed to edit final telegram message")
			return err
		}
	}

	for i, chunk := range chunks[1:] {
		if _, err := s.bot.Send(to, chunk, tele.ModeHTML); err != nil {
			logger.Error().Err(err).Int("chunk", i+1).Int("len", len(chunk)).Msg("failed to send telegram chunk")
			return err
		}
	}
	return nil
}

// splitHTML splits text into chunks respecting Telegram's limit.
// It tries to split at newlines to preserve formatting.
func splitHTML(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}

		cut := maxLen
		// Try to find a good break point (newline) in the second half of the chunk
		if idx := strings.LastIndex(text[:maxLen], "\n"); idx > maxLen/3 {
			cut = idx
		}

		chunks = append(chunks, text[:cut])
		text = strings.TrimSpace(text[cut:])
	}
	return chunks
}
