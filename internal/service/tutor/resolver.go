package tutor

import (
	"context"
	"unicode/utf8"

	"github.com/sandevgo/mualim/internal/core"
	"github.com/sandevgo/mualim/internal/service/bank"
	"github.com/sandevgo/mualim/pkg/log"
)

// User-facing copy. Every failure path terminates in one of these;
// the transport layer never sees an error.
const (
	FallbackBusy = "⚠️ المعلم مشغول حالياً بضغط كبير من الطلاب. يرجى تجربة الدروس المسجلة في الفهرس أو المحاولة بعد دقائق."

	FallbackBadCredential = "🔑 مفتاح الخدمة الحالي غير صالح. يرجى إبلاغ المشرف لتحديث الإعدادات، وحتى ذلك الحين جرب الدروس المحفوظة."

	OfflinePrefix = "📡 إجابة تقريبية من الأرشيف (بدون اتصال):\n\n"

	OfflineMiss = "📡 لا يوجد اتصال بالإنترنت حالياً ولا توجد إجابة محفوظة قريبة من سؤالك. عند عودة الاتصال سيجيب المعلم ويحفظ الإجابة للمرات القادمة."
)

type Request struct {
	Query       string
	Subject     core.Subject
	Grade       core.Grade
	History     []core.Turn
	Attachment  *core.Attachment
	RequesterID string
}

type Config struct {
	// Answers shorter than this (in runes) are not written back to the
	// crowd cache; truncated or empty output must not pollute it.
	MinCacheableAnswerLen int
	MaxHistoryTurns       int
	HistoryTokenBudget    int
}

// Resolver is the answer-resolution engine: static bank, then crowd
// cache, then offline partial match, then one serialized remote call.
// It owns the serializer; the credential pool lives inside the
// provider. No package-level state, so independent resolvers can
// coexist (one per test).
type Resolver struct {
	static     *bank.StaticBank
	crowd      core.CrowdRepository
	provider   core.InferenceProvider
	serializer *Serializer
	online     func(ctx context.Context) bool
	cfg        Config
}

func NewResolver(
	static *bank.StaticBank,
	crowd core.CrowdRepository,
	provider core.InferenceProvider,
	online func(ctx context.Context) bool,
	cfg Config,
) *Resolver {
	if cfg.MinCacheableAnswerLen <= 0 {
		cfg.MinCacheableAnswerLen = 20
	}
	if cfg.MaxHistoryTurns <= 0 {
		cfg.MaxHistoryTurns = 8
	}
	return &Resolver{
		static:     static,
		crowd:      crowd,
		provider:   provider,
		serializer: NewSerializer(64),
		online:     online,
		cfg:        cfg,
	}
}

func (r *Resolver) Close() {
	r.serializer.Close()
}

// Resolve answers one question. Strict tier precedence, first match
// wins; only the last tier touches the network. Always returns a
// complete user-facing string and mirrors it through onDelta.
func (r *Resolver) Resolve(ctx context.Context, req Request, onDelta core.StreamFunc) string {
	logger := log.FromCtx(ctx)

	// Local tiers only apply to plain text questions; a photographed
	// exercise is never the same as a cached text question.
	if req.Attachment == nil {
		if entry := r.static.Lookup(req.Query, req.Subject, req.Grade); entry != nil {
			logger.Debug().Str("topic", entry.Topic).Msg("static bank hit")
			return emit(onDelta, entry.Answer)
		}

		rec, err := r.crowd.Search(ctx, req.Query, req.Subject, req.Grade)
		if err != nil {
			// Corrupt or unreadable cache is treated as empty
			logger.Error().Err(err).Msg("crowd cache search failed")
		}
		if rec != nil {
			logger.Debug().Int64("record", rec.ID).Msg("crowd cache hit")
			return emit(onDelta, rec.Answer)
		}
	}

	if r.online != nil && !r.online(ctx) {
		return r.resolveOffline(ctx, req, onDelta)
	}

	answer, err := r.serializer.Do(ctx, func(ctx context.Context) (string, error) {
		return r.provider.Stream(ctx, core.PromptRequest{
			Query:      req.Query,
			Subject:    req.Subject,
			Grade:      req.Grade,
			History:    TrimHistory(req.History, r.cfg.MaxHistoryTurns, r.cfg.HistoryTokenBudget),
			Attachment: req.Attachment,
		}, onDelta)
	})
	if err != nil {
		logger.Error().Err(err).Str("subject", string(req.Subject)).Msg("remote resolution failed")
		if core.IsInvalidCredential(err) {
			return emit(onDelta, FallbackBadCredential)
		}
		return emit(onDelta, FallbackBusy)
	}

	if utf8.RuneCountInString(answer) >= r.cfg.MinCacheableAnswerLen && req.Attachment == nil {
		if err := r.crowd.Add(ctx, req.Query, answer, req.Subject, req.Grade, req.RequesterID); err != nil {
			logger.Error().Err(err).Msg("failed to store crowd answer")
		}
	}

	return answer
}

func (r *Resolver) resolveOffline(ctx context.Context, req Request, onDelta core.StreamFunc) string {
	logger := log.FromCtx(ctx)

	if req.Attachment == nil {
		rec, err := r.crowd.SearchPartial(ctx, req.Query, req.Subject)
		if err != nil {
			logger.Error().Err(err).Msg("crowd partial search failed")
		}
		if rec != nil {
			logger.Debug().Int64("record", rec.ID).Msg("offline partial match")
			return emit(onDelta, OfflinePrefix+rec.Answer)
		}
	}

	return emit(onDelta, OfflineMiss)
}

func emit(onDelta core.StreamFunc, text string) string {
	if onDelta != nil {
		onDelta(text)
	}
	return text
}
