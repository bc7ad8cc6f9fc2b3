package utils

import (
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"
)

// RunIDGenerator hands out readable, collision-free run identifiers of the
// form "<slug>-<hash>" and "<slug>-<hash>-N" on repeats.
type RunIDGenerator struct {
	mu      sync.Mutex
	used    map[string]struct{}
	counter map[string]int
}

func NewRunIDGenerator(reserved ...string) *RunIDGenerator {
	g := &RunIDGenerator{
		used:    make(map[string]struct{}, len(reserved)+8),
		counter: make(map[string]int, len(reserved)+8),
	}
	for _, id := range reserved {
		if id = strings.TrimSpace(id); id != "" {
			g.used[id] = struct{}{}
		}
	}
	return g
}

// Next returns a fresh id derived from seed.
func (g *RunIDGenerator) Next(seed string) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	base := runIDBase(seed)
	if _, taken := g.used[base]; !taken {
		g.used[base] = struct{}{}
		g.counter[base] = 1
		return base
	}
	n := max(g.counter[base], 1)
	for {
		n++
		candidate := fmt.Sprintf("%s-%d", base, n)
		if _, taken := g.used[candidate]; taken {
			continue
		}
		g.used[candidate] = struct{}{}
		g.counter[base] = n
		return candidate
	}
}

// Reserve marks id as used, e.g. for caller-supplied run ids.
func (g *RunIDGenerator) Reserve(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	g.mu.Lock()
	g.used[id] = struct{}{}
	g.mu.Unlock()
}

func runIDBase(seed string) string {
	seed = strings.TrimSpace(seed)
	slug := slugify(seed)
	if slug == "" {
		slug = "run"
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	return fmt.Sprintf("%s-%08x", slug, uint32(h.Sum64()&0xffffffff))
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastDash := false
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
