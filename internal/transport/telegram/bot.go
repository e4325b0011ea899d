package telegram

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sandevgo/mualim/internal/config"
	"github.com/sandevgo/mualim/internal/core"
	"github.com/sandevgo/mualim/internal/service/tutor"
	"github.com/sandevgo/mualim/pkg/log"
	tele "gopkg.in/telebot.v3"
)

const (
	baseContextKey = "base_context"

	// Minimum interval between streamed message edits. Telegram
	// throttles bots editing faster than roughly once per second.
	editInterval = 1500 * time.Millisecond

	historyFetchLimit = 16
)

const (
	msgWelcome       = "أهلاً بك في المعلم الذكي 🎓\nاختر صفك الدراسي للبدء:"
	msgPickSubject   = "اختر المادة:"
	msgReadyToAsk    = "تمام! اسأل سؤالك الآن، أو أرسل صورة للتمرين 📸"
	msgPickGradeHint = "من فضلك اختر صفك الدراسي أولاً عبر /start"
	msgThinking      = "✍️ ..."
)

type session struct {
	grade   core.Grade
	subject core.Subject
}

type Bot struct {
	bot      *tele.Bot
	cfg      *config.TelegramConfig
	resolver *tutor.Resolver
	turns    core.TurnsRepository
	crowd    core.CrowdRepository
	sender   *sender

	mu       sync.Mutex
	sessions map[int64]*session
}

func NewBot(
	ctx context.Context,
	cfg *config.TelegramConfig,
	resolver *tutor.Resolver,
	turns core.TurnsRepository,
	crowd core.CrowdRepository,
) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	bot := &Bot{
		bot:      b,
		cfg:      cfg,
		resolver: resolver,
		turns:    turns,
		crowd:    crowd,
		sender:   newSender(b),
		sessions: make(map[int64]*session),
	}

	// Use context from Signal with logger
	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			c.Set(baseContextKey, ctx)
			return next(c)
		}
	})

	b.Handle("/start", bot.handleStart)
	b.Handle("/stats", bot.handleStats)
	b.Handle(tele.OnText, bot.handleText)
	b.Handle(tele.OnPhoto, bot.handlePhoto)

	return bot, nil
}

func (b *Bot) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Msg("starting telegram bot")
	b.bot.Start()
	return nil
}

func (b *Bot) Shutdown(ctx context.Context) error {
	b.bot.Stop()
	return nil
}

func (b *Bot) session(chatID int64) *session {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[chatID]
	if !ok {
		s = &session{}
		b.sessions[chatID] = s
	}
	return s
}

func (b *Bot) handleStart(c tele.Context) error {
	b.mu.Lock()
	b.sessions[c.Chat().ID] = &session{}
	b.mu.Unlock()

	return c.Send(msgWelcome, gradeKeyboard())
}

func (b *Bot) handleStats(c tele.Context) error {
	ctx := c.Get(baseContextKey).(context.Context)

	if b.cfg.AdminID == 0 || c.Sender().ID != b.cfg.AdminID {
		return nil
	}

	stats, err := b.crowd.Stats(ctx)
	if err != nil {
		return c.Send(fmt.Sprintf("stats error: %v", err))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 <b>Crowd cache</b>\nRecords: %d\nPopular (&gt;5 asks): %d\n", stats.TotalRecords, stats.PopularCount)

	popular, err := b.crowd.Popular(ctx, 5)
	if err == nil && len(popular) > 0 {
		sb.WriteString("\nTop questions:\n")
		for _, rec := range popular {
			fmt.Fprintf(&sb, "• %s (%d)\n", rec.Question, rec.TimesAsked)
		}
	}

	return c.Send(sb.String(), tele.ModeHTML)
}

func (b *Bot) handleText(c tele.Context) error {
	text := strings.TrimSpace(c.Text())
	sess := b.session(c.Chat().ID)

	if grade, ok := gradeByLabel(text); ok {
		sess.grade = grade
		return c.Send(msgPickSubject, subjectKeyboard())
	}
	if subject, ok := subjectByLabel(text); ok {
		sess.subject = subject
		return c.Send(msgReadyToAsk, &tele.ReplyMarkup{RemoveKeyboard: true})
	}

	if sess.grade == "" || sess.subject == "" {
		return c.Send(msgPickGradeHint)
	}

	return b.answer(c, sess, text, nil)
}

func (b *Bot) handlePhoto(c tele.Context) error {
	ctx := c.Get(baseContextKey).(context.Context)
	logger := log.FromCtx(ctx)
	sess := b.session(c.Chat().ID)

	if sess.grade == "" || sess.subject == "" {
		return c.Send(msgPickGradeHint)
	}

	photo := c.Message().Photo
	if photo == nil {
		return nil
	}

	rc, err := b.bot.File(&photo.File)
	if err != nil {
		logger.Error().Err(err).Msg("failed to download photo")
		return c.Send(tutor.FallbackBusy)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		logger.Error().Err(err).Msg("failed to read photo")
		return c.Send(tutor.FallbackBusy)
	}

	attachment := &core.Attachment{
		MimeType: "image/jpeg",
		Data:     base64.StdEncoding.EncodeToString(data),
	}

	query := strings.TrimSpace(c.Message().Caption)
	if query == "" {
		query = "حل التمرين الموجود في الصورة وقدم خطوات الحل"
	}

	return b.answer(c, sess, query, attachment)
}

// answer resolves one question and streams the reply by editing a
// placeholder message at a throttled rate.
func (b *Bot) answer(c tele.Context, sess *session, query string, attachment *core.Attachment) error {
	ctx := c.Get(baseContextKey).(context.Context)
	logger := log.FromCtx(ctx)
	sessionID := fmt.Sprintf("telegram-%d", c.Chat().ID)
	requesterID := fmt.Sprintf("tg-%d", c.Sender().ID)

	_ = c.Notify(tele.Typing)

	history, err := b.turns.GetTurns(ctx, sessionID, historyFetchLimit)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load turns")
	}

	placeholder, err := b.bot.Send(c.Chat(), msgThinking)
	if err != nil {
		return err
	}

	var (
		lastEdit time.Time
		lastHTML string
	)
	answer := b.resolver.Resolve(ctx, tutor.Request{
		Query:       query,
		Subject:     sess.subject,
		Grade:       sess.grade,
		History:     history,
		Attachment:  attachment,
		RequesterID: requesterID,
	}, func(total string) {
		if time.Since(lastEdit) < editInterval {
			return
		}
		html := b.sender.renderHTML(total)
		if html == "" || html == lastHTML || len(html) > maxTelegramMsgLen {
			return
		}
		if _, err := b.bot.Edit(placeholder, html, tele.ModeHTML); err == nil {
			lastEdit = time.Now()
			lastHTML = html
		}
	})

	if err := b.sender.finalize(ctx, c.Chat(), placeholder, answer, lastHTML); err != nil {
		logger.Error().Err(err).Msg("failed to deliver answer")
	}

	if attachment == nil {
		b.saveTurns(ctx, sessionID, query, answer)
	}
	return nil
}

func (b *Bot) saveTurns(ctx context.Context, sessionID, query, answer string) {
	logger := log.FromCtx(ctx)
	if err := b.turns.AddTurn(ctx, sessionID, core.Turn{Role: core.RoleUser, Content: query}); err != nil {
		logger.Error().Err(err).Msg("failed to save user turn")
	}
	if err := b.turns.AddTurn(ctx, sessionID, core.Turn{Role: core.RoleAssistant, Content: answer}); err != nil {
		logger.Error().Err(err).Msg("failed to save assistant turn")
	}
}

func gradeKeyboard() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
	rows := make([]tele.Row, 0, len(core.Grades()))
	for _, g := range core.Grades() {
		rows = append(rows, markup.Row(markup.Text(g.Label())))
	}
	markup.Reply(rows...)
	return markup
}

func subjectKeyboard() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
	subjects := core.Subjects()
	var rows []tele.Row
	for i := 0; i < len(subjects); i += 2 {
		if i+1 < len(subjects) {
			rows = append(rows, markup.Row(markup.Text(subjects[i].Label()), markup.Text(subjects[i+1].Label())))
		} else {
			rows = append(rows, markup.Row(markup.Text(subjects[i].Label())))
		}
	}
	markup.Reply(rows...)
	return markup
}

func gradeByLabel(text string) (core.Grade, bool) {
	for _, g := range core.Grades() {
		if g.Label() == text {
			return g, true
		}
	}
	return "", false
}

func subjectByLabel(text string) (core.Subject, bool) {
	for _, s := range core.Subjects() {
		if s.Label() == text {
			return s, true
		}
	}
	return "", false
}
