package llm

import (
	"log/slog"
	"sort"
)

// ModelInfo describes one known model for catalog listings.
type ModelInfo struct {
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	ContextWindow int    `json:"context_window,omitempty"`
}

// Selector resolves which model backend serves a request and owns the
// per-model fallback chains. It is immutable after construction and
// safe for concurrent use.
type Selector struct {
	def    string
	known  map[string]ModelInfo
	chains map[string][]string
	logger *slog.Logger
}

// NewSelector builds a selector from the known model set. Fallback
// chain entries naming unknown models are kept as-is; the chain is
// advisory and the backend has the final say on what exists.
func NewSelector(def string, models []ModelInfo, chains map[string][]string, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	known := make(map[string]ModelInfo, len(models))
	for _, m := range models {
		known[m.Name] = m
	}
	return &Selector{
		def:    def,
		known:  known,
		chains: chains,
		logger: logger,
	}
}

// Default returns the default model identifier.
func (s *Selector) Default() string {
	return s.def
}

// Resolve validates a requested model identifier against the known
// set. Empty or unknown identifiers fall back to the default.
func (s *Selector) Resolve(requested string) string {
	if requested == "" {
		return s.def
	}
	if _, ok := s.known[requested]; ok {
		return requested
	}
	s.logger.Debug("unknown model requested, using default",
		"requested", requested,
		"default", s.def,
	)
	return s.def
}

// FallbackChain returns the ordered alternatives tried when model
// reports permanent unavailability. The returned slice is a copy.
func (s *Selector) FallbackChain(model string) []string {
	chain := s.chains[model]
	if len(chain) == 0 {
		return nil
	}
	out := make([]string, len(chain))
	copy(out, chain)
	return out
}

// Known returns the known models sorted by name, for catalog listings.
func (s *Selector) Known() []ModelInfo {
	out := make([]ModelInfo, 0, len(s.known))
	for _, m := range s.known {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
