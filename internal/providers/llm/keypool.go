package llm

import (
	"strings"
	"sync"
	"time"
)

// cooldownDuration is how long a rate-limited key stays out of
// selection before it becomes eligible again.
const cooldownDuration = 60 * time.Second

type keyState struct {
	key        string
	blocked    bool
	lastUsed   time.Time
	errorCount int
}

// KeyPool manages the ordered provider credential list. A blocked key
// re-enters rotation once its cooldown elapses; if every key is
// blocked, the least-recently-used one is force-unblocked so a call
// can always proceed.
type KeyPool struct {
	mu       sync.Mutex
	keys     []keyState
	cooldown time.Duration
	now      func() time.Time
}

// NewKeyPool filters out empty entries; an all-empty list yields a
// zero-size pool and Current returns "".
func NewKeyPool(keys []string) *KeyPool {
	p := &KeyPool{
		cooldown: cooldownDuration,
		now:      time.Now,
	}
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		p.keys = append(p.keys, keyState{key: k})
	}
	return p
}

func (p *KeyPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}

// Current returns the first usable key. Never fails once at least one
// key is configured.
func (p *KeyPool) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.keys) == 0 {
		return ""
	}

	p.sweepLocked()

	if idx := p.currentLocked(); idx >= 0 {
		return p.keys[idx].key
	}

	// All blocked: force-unblock the least-recently-used key
	lru := 0
	for i := range p.keys {
		if p.keys[i].lastUsed.Before(p.keys[lru].lastUsed) {
			lru = i
		}
	}
	p.keys[lru].blocked = false
	return p.keys[lru].key
}

// Rotate blocks the currently selected key and stamps its use time.
// Returns false when the pool has one key or fewer, where rotation is
// meaningless.
func (p *KeyPool) Rotate() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sweepLocked()

	if idx := p.currentLocked(); idx >= 0 {
		p.keys[idx].blocked = true
		p.keys[idx].lastUsed = p.now()
		p.keys[idx].errorCount++
	}

	return len(p.keys) > 1
}

func (p *KeyPool) currentLocked() int {
	for i := range p.keys {
		if !p.keys[i].blocked {
			return i
		}
	}
	return -1
}

func (p *KeyPool) sweepLocked() {
	now := p.now()
	for i := range p.keys {
		if p.keys[i].blocked && now.Sub(p.keys[i].lastUsed) > p.cooldown {
			p.keys[i].blocked = false
		}
	}
}
