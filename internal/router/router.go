// Package router maps URLs to platforms and platforms to retrieval
// strategies.
package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmagar/prodl/internal/model"
	"github.com/jmagar/prodl/internal/progress"
)

// domainRule pairs URL substrings with the platform they identify.
type domainRule struct {
	kind    model.PlatformKind
	domains []string
}

// rules are tried in order; the first rule with a matching domain wins.
var rules = []domainRule{
	{model.PlatformTikTok, []string{"tiktok.com"}},
	{model.PlatformYouTube, []string{"youtube.com", "youtu.be"}},
	{model.PlatformInstagram, []string{"instagram.com"}},
}

// Classify returns the platform of rawURL by case-sensitive substring
// match. It never touches the network.
func Classify(rawURL string) model.PlatformKind {
	for _, r := range rules {
		for _, d := range r.domains {
			if strings.Contains(rawURL, d) {
				return r.kind
			}
		}
	}
	return model.PlatformUnsupported
}

// SupportedDomains returns every domain Classify recognises.
func SupportedDomains() []string {
	var out []string
	for _, r := range rules {
		out = append(out, r.domains...)
	}
	return out
}

// Strategy retrieves a URL into savePath and returns the produced file.
type Strategy interface {
	Fetch(ctx context.Context, url, savePath string, kind model.PlatformKind, rep progress.Reporter) (string, error)
}

// Router selects the Strategy for a platform.
type Router struct {
	Delegate Strategy
}

// New returns a Router sending every supported platform to delegate.
func New(delegate Strategy) *Router {
	return &Router{Delegate: delegate}
}

// Select returns the strategy for kind.
func (r *Router) Select(kind model.PlatformKind) (Strategy, error) {
	if !kind.Supported() {
		return nil, model.ErrUnsupportedPlatform
	}
	if r.Delegate == nil {
		return nil, fmt.Errorf("no strategy configured for %s", kind.Label())
	}
	return r.Delegate, nil
}
