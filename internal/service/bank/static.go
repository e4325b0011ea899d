package bank

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sandevgo/mualim/internal/core"
)

//go:embed curriculum.json
var embeddedCurriculum []byte

// StaticBank is the read-only curated question bank, loaded once at
// startup. Lookups are pure over immutable data; there is no failure
// mode after construction.
type StaticBank struct {
	entries []core.KnowledgeEntry
}

// NewStaticBank loads the embedded curriculum. If overridePath names
// an existing file, its entries are loaded instead (lets schools ship
// their own bank without rebuilding).
func NewStaticBank(overridePath string) (*StaticBank, error) {
	data := embeddedCurriculum
	if overridePath != "" {
		if content, err := os.ReadFile(overridePath); err == nil {
			data = content
		}
	}

	var entries []core.KnowledgeEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse curriculum bank: %w", err)
	}
	return &StaticBank{entries: entries}, nil
}

func NewStaticBankFromEntries(entries []core.KnowledgeEntry) *StaticBank {
	return &StaticBank{entries: entries}
}

// EmbeddedCurriculum exposes the raw shipped bank, used to seed the
// runtime override file during installation.
func EmbeddedCurriculum() []byte {
	return embeddedCurriculum
}

func (b *StaticBank) Size() int {
	return len(b.entries)
}

// Lookup returns the first entry whose question contains, or is
// contained by, the query (case-insensitive). Deliberately loose:
// recall over precision, the first match is authoritative. Entries
// with an empty subject or grade match any scope.
func (b *StaticBank) Lookup(query string, subject core.Subject, grade core.Grade) *core.KnowledgeEntry {
	norm := strings.ToLower(strings.TrimSpace(query))
	if norm == "" {
		return nil
	}

	for i := range b.entries {
		e := &b.entries[i]
		if e.Subject != "" && subject != "" && e.Subject != subject {
			continue
		}
		if e.Grade != "" && grade != "" && e.Grade != grade {
			continue
		}
		q := strings.ToLower(e.Question)
		if strings.Contains(norm, q) || strings.Contains(q, norm) {
			return e
		}
	}
	return nil
}
