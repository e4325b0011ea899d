package llm

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Probe supplies the online/offline signal the resolver consults
// before touching the remote tier. Results are cached briefly so a
// burst of questions does not hammer the endpoint.
type Probe struct {
	mu      sync.Mutex
	client  *http.Client
	url     string
	ttl     time.Duration
	checked time.Time
	online  bool
}

func NewProbe() *Probe {
	return NewProbeURL(geminiBaseURL)
}

func NewProbeURL(url string) *Probe {
	return &Probe{
		client: &http.Client{Timeout: 3 * time.Second},
		url:    url,
		ttl:    30 * time.Second,
	}
}

func (p *Probe) Online(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if time.Since(p.checked) < p.ttl {
		return p.online
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	p.checked = time.Now()
	p.online = err == nil
	if resp != nil {
		resp.Body.Close()
	}
	return p.online
}
