package tutor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sandevgo/mualim/internal/core"
	"github.com/sandevgo/mualim/internal/service/bank"
)

type addedRecord struct {
	question    string
	answer      string
	subject     core.Subject
	grade       core.Grade
	requesterID string
}

type fakeCrowd struct {
	searchRec  *core.CacheRecord
	searchErr  error
	partialRec *core.CacheRecord
	partialErr error
	added      []addedRecord
	addErr     error
}

func (f *fakeCrowd) Search(ctx context.Context, query string, subject core.Subject, grade core.Grade) (*core.CacheRecord, error) {
	return f.searchRec, f.searchErr
}

func (f *fakeCrowd) SearchPartial(ctx context.Context, query string, subject core.Subject) (*core.CacheRecord, error) {
	return f.partialRec, f.partialErr
}

func (f *fakeCrowd) Add(ctx context.Context, question, answer string, subject core.Subject, grade core.Grade, requesterID string) error {
	f.added = append(f.added, addedRecord{question, answer, subject, grade, requesterID})
	return f.addErr
}

func (f *fakeCrowd) Stats(ctx context.Context) (core.CacheStats, error) {
	return core.CacheStats{}, nil
}

func (f *fakeCrowd) Popular(ctx context.Context, limit int) ([]core.CacheRecord, error) {
	return nil, nil
}

type fakeProvider struct {
	answer string
	err    error
	calls  int
}

func (f *fakeProvider) Stream(ctx context.Context, req core.PromptRequest, onDelta core.StreamFunc) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if onDelta != nil {
		half := len(f.answer) / 2
		onDelta(f.answer[:half])
		onDelta(f.answer)
	}
	return f.answer, nil
}

func online(ctx context.Context) bool  { return true }
func offline(ctx context.Context) bool { return false }

func newTestResolver(static *bank.StaticBank, crowd *fakeCrowd, provider *fakeProvider, isOnline func(context.Context) bool) *Resolver {
	if static == nil {
		static = bank.NewStaticBankFromEntries(nil)
	}
	return NewResolver(static, crowd, provider, isOnline, Config{
		MinCacheableAnswerLen: 20,
		MaxHistoryTurns:       8,
		HistoryTokenBudget:    4096,
	})
}

func TestResolve_StaticBankWins(t *testing.T) {
	static := bank.NewStaticBankFromEntries([]core.KnowledgeEntry{
		{Topic: "قانون نيوتن", Question: "قانون نيوتن الأول", Answer: "الجسم الساكن يظل ساكناً ما لم تؤثر عليه قوة خارجية."},
	})
	crowd := &fakeCrowd{searchRec: &core.CacheRecord{Answer: "should not be used"}}
	provider := &fakeProvider{answer: "should not be called"}
	r := newTestResolver(static, crowd, provider, online)
	defer r.Close()

	var emitted []string
	got := r.Resolve(context.Background(), Request{
		Query:   "اشرح قانون نيوتن الأول",
		Subject: core.SubjectPhysics,
		Grade:   core.Grade12,
	}, func(total string) { emitted = append(emitted, total) })

	if !strings.Contains(got, "الجسم الساكن") {
		t.Fatalf("expected the curated answer, got %q", got)
	}
	if provider.calls != 0 {
		t.Error("provider must not be called on a static hit")
	}
	if len(crowd.added) != 0 {
		t.Error("static hits must not be written to the crowd cache")
	}
	if len(emitted) != 1 || emitted[0] != got {
		t.Errorf("expected a single full emit, got %v", emitted)
	}
}

func TestResolve_CrowdBeatsRemote(t *testing.T) {
	crowd := &fakeCrowd{searchRec: &core.CacheRecord{ID: 7, Answer: "إجابة محفوظة من طالب سابق"}}
	provider := &fakeProvider{answer: "remote"}
	r := newTestResolver(nil, crowd, provider, online)
	defer r.Close()

	got := r.Resolve(context.Background(), Request{Query: "سؤال", Subject: core.SubjectMath, Grade: core.Grade11}, nil)
	if got != "إجابة محفوظة من طالب سابق" {
		t.Fatalf("expected the cached answer, got %q", got)
	}
	if provider.calls != 0 {
		t.Error("provider must not be called on a cache hit")
	}
	if len(crowd.added) != 0 {
		t.Error("cache reads must not mutate the cache")
	}
}

func TestResolve_RemoteAnswerIsCached(t *testing.T) {
	crowd := &fakeCrowd{}
	provider := &fakeProvider{answer: "هذه إجابة مفصلة وطويلة بما يكفي لتخزينها في الذاكرة الجماعية."}
	r := newTestResolver(nil, crowd, provider, online)
	defer r.Close()

	got := r.Resolve(context.Background(), Request{
		Query:       "اشرح قانون أوم",
		Subject:     core.SubjectPhysics,
		Grade:       core.Grade12,
		RequesterID: "student-1",
	}, nil)

	if got != provider.answer {
		t.Fatalf("expected the remote answer, got %q", got)
	}
	if len(crowd.added) != 1 {
		t.Fatalf("expected one cache write, got %d", len(crowd.added))
	}
	add := crowd.added[0]
	if add.question != "اشرح قانون أوم" || add.answer != provider.answer {
		t.Errorf("cache write mismatch: %+v", add)
	}
	if add.requesterID != "student-1" {
		t.Errorf("expected requester id to propagate, got %q", add.requesterID)
	}
}

func TestResolve_ShortAnswerNotCached(t *testing.T) {
	crowd := &fakeCrowd{}
	provider := &fakeProvider{answer: "نعم."}
	r := newTestResolver(nil, crowd, provider, online)
	defer r.Close()

	got := r.Resolve(context.Background(), Request{Query: "سؤال", Subject: core.SubjectMath, Grade: core.Grade10}, nil)
	if got != "نعم." {
		t.Fatalf("expected the short answer back, got %q", got)
	}
	if len(crowd.added) != 0 {
		t.Error("short answers must not pollute the cache")
	}
}

func TestResolve_OfflinePartialMatch(t *testing.T) {
	crowd := &fakeCrowd{partialRec: &core.CacheRecord{Answer: "إجابة قديمة مناسبة"}}
	provider := &fakeProvider{answer: "remote"}
	r := newTestResolver(nil, crowd, provider, offline)
	defer r.Close()

	got := r.Resolve(context.Background(), Request{Query: "سؤال", Subject: core.SubjectChemistry, Grade: core.Grade11}, nil)
	if !strings.HasPrefix(got, OfflinePrefix) {
		t.Fatalf("expected the offline prefix, got %q", got)
	}
	if !strings.Contains(got, "إجابة قديمة مناسبة") {
		t.Errorf("expected the partial answer, got %q", got)
	}
	if provider.calls != 0 {
		t.Error("provider must not be called while offline")
	}
}

func TestResolve_OfflineMiss(t *testing.T) {
	crowd := &fakeCrowd{}
	provider := &fakeProvider{answer: "remote"}
	r := newTestResolver(nil, crowd, provider, offline)
	defer r.Close()

	got := r.Resolve(context.Background(), Request{Query: "سؤال جديد تماماً", Subject: core.SubjectBiology, Grade: core.Grade10}, nil)
	if got != OfflineMiss {
		t.Fatalf("expected the offline miss message, got %q", got)
	}
	if provider.calls != 0 {
		t.Error("provider must not be called while offline")
	}
}

func TestResolve_RateLimitedFallsBack(t *testing.T) {
	crowd := &fakeCrowd{}
	provider := &fakeProvider{err: core.NewProviderError(core.FailRateLimited, 429, errors.New("quota"))}
	r := newTestResolver(nil, crowd, provider, online)
	defer r.Close()

	var last string
	got := r.Resolve(context.Background(), Request{Query: "سؤال", Subject: core.SubjectMath, Grade: core.Grade12}, func(total string) { last = total })
	if got != FallbackBusy {
		t.Fatalf("expected the busy fallback, got %q", got)
	}
	if last != FallbackBusy {
		t.Errorf("fallback must also reach the stream, got %q", last)
	}
	if len(crowd.added) != 0 {
		t.Error("failures must not be cached")
	}
}

func TestResolve_InvalidCredentialFallback(t *testing.T) {
	crowd := &fakeCrowd{}
	provider := &fakeProvider{err: core.NewProviderError(core.FailInvalidCredential, 403, errors.New("bad key"))}
	r := newTestResolver(nil, crowd, provider, online)
	defer r.Close()

	got := r.Resolve(context.Background(), Request{Query: "سؤال", Subject: core.SubjectMath, Grade: core.Grade12}, nil)
	if got != FallbackBadCredential {
		t.Fatalf("expected the credential fallback, got %q", got)
	}
}

func TestResolve_AttachmentSkipsLocalTiers(t *testing.T) {
	static := bank.NewStaticBankFromEntries([]core.KnowledgeEntry{
		{Question: "سؤال", Answer: "curated"},
	})
	crowd := &fakeCrowd{searchRec: &core.CacheRecord{Answer: "cached"}}
	provider := &fakeProvider{answer: "إجابة مفصلة للتمرين المصور خطوة بخطوة."}
	r := newTestResolver(static, crowd, provider, online)
	defer r.Close()

	got := r.Resolve(context.Background(), Request{
		Query:      "سؤال",
		Subject:    core.SubjectMath,
		Grade:      core.Grade12,
		Attachment: &core.Attachment{MimeType: "image/jpeg", Data: "aGVsbG8="},
	}, nil)

	if got != provider.answer {
		t.Fatalf("expected the remote answer for attachments, got %q", got)
	}
	if provider.calls != 1 {
		t.Errorf("expected exactly one provider call, got %d", provider.calls)
	}
	// An answer about a photo is not reusable as a text answer
	if len(crowd.added) != 0 {
		t.Error("attachment answers must not be cached")
	}
}

func TestResolve_CrowdErrorTreatedAsEmpty(t *testing.T) {
	crowd := &fakeCrowd{searchErr: errors.New("database is locked")}
	provider := &fakeProvider{answer: "إجابة من النموذج البعيد بطول كافٍ للتخزين."}
	r := newTestResolver(nil, crowd, provider, online)
	defer r.Close()

	got := r.Resolve(context.Background(), Request{Query: "سؤال", Subject: core.SubjectMath, Grade: core.Grade12}, nil)
	if got != provider.answer {
		t.Fatalf("a broken cache must fall through to the provider, got %q", got)
	}
	if provider.calls != 1 {
		t.Errorf("expected one provider call, got %d", provider.calls)
	}
}
