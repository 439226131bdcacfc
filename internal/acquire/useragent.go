package acquire

import "sync/atomic"

var defaultUserAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_6) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.6 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:132.0) Gecko/20100101 Firefox/132.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
}

// UserAgentPool hands out client identifiers round-robin. Safe for concurrent use.
type UserAgentPool struct {
	agents []string
	next   atomic.Uint64
}

// NewUserAgentPool creates a pool; an empty list uses built-in desktop agents.
func NewUserAgentPool(agents ...string) *UserAgentPool {
	if len(agents) == 0 {
		agents = defaultUserAgents
	}
	return &UserAgentPool{agents: agents}
}

// Next returns the next agent in rotation.
func (p *UserAgentPool) Next() string {
	n := p.next.Add(1) - 1
	return p.agents[n%uint64(len(p.agents))]
}
