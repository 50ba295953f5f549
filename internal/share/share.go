// Package share turns text shared from other apps into download URLs.
package share

import (
	"regexp"
	"strings"
	"sync"

	"github.com/jmagar/prodl/internal/router"
)

// MaxTracked is the size above which Dedup forgets everything it has seen.
const MaxTracked = 50

var urlRegex = regexp.MustCompile(`https?://\S+`)

const trailing = ".,;!?)"

// ExtractURL returns the first URL in text that points at a supported
// platform, or else the first URL at all. Trailing punctuation picked up
// from prose is stripped.
func ExtractURL(text string) (string, bool) {
	urls := urlRegex.FindAllString(text, -1)
	if len(urls) == 0 {
		return "", false
	}
	domains := router.SupportedDomains()
	for _, u := range urls {
		for _, d := range domains {
			if strings.Contains(u, d) {
				return strings.TrimRight(u, trailing), true
			}
		}
	}
	return strings.TrimRight(urls[0], trailing), true
}

// Dedup remembers recently handled share payloads so a re-delivered share
// is not downloaded twice. It is cleared wholesale once it grows past
// MaxTracked entries.
type Dedup struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewDedup returns an empty Dedup.
func NewDedup() *Dedup {
	return &Dedup{seen: make(map[string]struct{})}
}

// Seen reports whether text was handled before, and marks it handled.
func (d *Dedup) Seen(text string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[text]; ok {
		return true
	}
	d.seen[text] = struct{}{}
	if len(d.seen) > MaxTracked {
		clear(d.seen)
	}
	return false
}

// Len returns the number of tracked payloads.
func (d *Dedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
