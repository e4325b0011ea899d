package bank

import (
	"testing"

	"github.com/sandevgo/mualim/internal/core"
)

func TestStaticBank_EmbeddedBankLoads(t *testing.T) {
	b, err := NewStaticBank("")
	if err != nil {
		t.Fatalf("failed to load embedded bank: %v", err)
	}
	if b.Size() == 0 {
		t.Fatal("embedded bank must not be empty")
	}
}

func TestStaticBank_LookupBidirectional(t *testing.T) {
	b := NewStaticBankFromEntries([]core.KnowledgeEntry{
		{Question: "قانون أوم", Answer: "answer", Subject: core.SubjectPhysics, Grade: core.Grade12},
	})

	if e := b.Lookup("اشرح قانون أوم بالتفصيل", core.SubjectPhysics, core.Grade12); e == nil {
		t.Error("query containing the question must hit")
	}
	if e := b.Lookup("أوم", core.SubjectPhysics, core.Grade12); e == nil {
		t.Error("query contained by the question must hit")
	}
	if e := b.Lookup("قانون نيوتن", core.SubjectPhysics, core.Grade12); e != nil {
		t.Error("unrelated query must miss")
	}
}

func TestStaticBank_ScopeFilters(t *testing.T) {
	b := NewStaticBankFromEntries([]core.KnowledgeEntry{
		{Question: "قانون أوم", Answer: "answer", Subject: core.SubjectPhysics, Grade: core.Grade12},
	})

	if e := b.Lookup("قانون أوم", core.SubjectChemistry, core.Grade12); e != nil {
		t.Error("wrong subject must miss")
	}
	if e := b.Lookup("قانون أوم", core.SubjectPhysics, core.Grade10); e != nil {
		t.Error("wrong grade must miss")
	}
}

func TestStaticBank_EmptyScopeIsWildcard(t *testing.T) {
	b := NewStaticBankFromEntries([]core.KnowledgeEntry{
		{Question: "سؤال عام", Answer: "answer"},
	})

	// Entry without subject or grade matches any scope
	if e := b.Lookup("سؤال عام", core.SubjectHistory, core.Grade11); e == nil {
		t.Error("scopeless entry must match any scope")
	}
	// Caller without scope matches scoped entries too
	scoped := NewStaticBankFromEntries([]core.KnowledgeEntry{
		{Question: "سؤال خاص", Answer: "answer", Subject: core.SubjectMath, Grade: core.Grade12},
	})
	if e := scoped.Lookup("سؤال خاص", "", ""); e == nil {
		t.Error("unscoped query must match scoped entries")
	}
}

func TestStaticBank_FirstMatchWins(t *testing.T) {
	b := NewStaticBankFromEntries([]core.KnowledgeEntry{
		{Question: "المناخ", Answer: "first"},
		{Question: "المناخ المتوسطي", Answer: "second"},
	})

	e := b.Lookup("المناخ المتوسطي", "", "")
	if e == nil || e.Answer != "first" {
		t.Errorf("expected the first matching entry, got %v", e)
	}
}

func TestStaticBank_BlankQueryMisses(t *testing.T) {
	b := NewStaticBankFromEntries([]core.KnowledgeEntry{
		{Question: "سؤال", Answer: "answer"},
	})
	if e := b.Lookup("   ", "", ""); e != nil {
		t.Error("blank query must miss")
	}
}
