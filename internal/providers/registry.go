package providers

import (
	"strings"
	"sync"
)

// Backend is a model family the core can route to.
type Backend string

const (
	BackendText   Backend = "text"
	BackendVision Backend = "vision"
)

// Provider describes the upstream that serves a backend family.
type Provider struct {
	Name         string
	Backend      Backend
	UpstreamURL  string
	DefaultModel string
}

var registry = map[Backend]Provider{
	BackendText: {
		Name:         "anthropic",
		Backend:      BackendText,
		UpstreamURL:  "https://api.anthropic.com",
		DefaultModel: "claude-sonnet-4-5",
	},
	BackendVision: {
		Name:         "google",
		Backend:      BackendVision,
		UpstreamURL:  "https://generativelanguage.googleapis.com",
		DefaultModel: "gemini-2.5-pro",
	},
}

var (
	overridesMu sync.RWMutex
	// customUpstreams and customModels hold operator overrides, e.g. a local
	// gateway in front of the real API.
	customUpstreams = map[Backend]string{}
	customModels    = map[Backend]string{}
)

// SetCustomUpstream overrides the upstream URL for a backend.
func SetCustomUpstream(b Backend, url string) {
	overridesMu.Lock()
	defer overridesMu.Unlock()
	customUpstreams[b] = url
}

// SetModel overrides the model name for a backend.
func SetModel(b Backend, model string) {
	overridesMu.Lock()
	defer overridesMu.Unlock()
	customModels[b] = model
}

func Get(name string) (Provider, bool) {
	p, ok := registry[Backend(strings.ToLower(name))]
	if !ok {
		return Provider{}, false
	}

	overridesMu.RLock()
	defer overridesMu.RUnlock()
	if u, found := customUpstreams[p.Backend]; found && u != "" {
		p.UpstreamURL = u
	}
	if m, found := customModels[p.Backend]; found && m != "" {
		p.DefaultModel = m
	}
	return p, true
}

func All() []Backend {
	return []Backend{BackendText, BackendVision}
}
