// Package aggregate derives the logo set and the company table from a scan.
package aggregate

import (
	"context"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/mikey/inbox-data-requests/internal/core"
)

// DefaultLogoBaseURL is the logo image service root
const DefaultLogoBaseURL = "https://img.logo.dev"

var schemePrefix = regexp.MustCompile(`^(?i)https?://(www\.)?`)

// Prober checks that a URL answers with 200
type Prober interface {
	Reachable(ctx context.Context, rawURL string) bool
}

// LogoConfig holds the logo service settings
type LogoConfig struct {
	BaseURL string
	Token   string
}

// NormalizeWebsite strips scheme, a leading "www." and surrounding slashes
func NormalizeWebsite(website string) string {
	w := strings.TrimSpace(website)
	w = schemePrefix.ReplaceAllString(w, "")
	if strings.HasPrefix(strings.ToLower(w), "www.") {
		w = w[len("www."):]
	}
	return strings.Trim(w, "/")
}

// LogoURL builds the logo reference for website. The result depends only on
// the normalized website, baseURL and token.
func LogoURL(baseURL, website, token string) string {
	if baseURL == "" {
		baseURL = DefaultLogoBaseURL
	}
	return strings.TrimRight(baseURL, "/") + "/" + NormalizeWebsite(website) + "?token=" + url.QueryEscape(token)
}

// LogoSet is an unordered set of reachable logo URLs
type LogoSet map[string]struct{}

// Add inserts u
func (s LogoSet) Add(u string) {
	s[u] = struct{}{}
}

// Contains reports whether u is in the set
func (s LogoSet) Contains(u string) bool {
	_, ok := s[u]
	return ok
}

// Sorted returns the URLs in lexical order
func (s LogoSet) Sorted() []string {
	out := lo.Keys(map[string]struct{}(s))
	sort.Strings(out)
	return out
}

// Shuffled returns the URLs in random display order
func (s LogoSet) Shuffled() []string {
	return lo.Shuffle(lo.Keys(map[string]struct{}(s)))
}

// BuildLogoSet probes one logo URL per record and keeps the reachable ones.
// Records without a usable website are skipped.
func BuildLogoSet(ctx context.Context, records []*core.ScanRecord, cfg LogoConfig, prober Prober, logger *zap.Logger) LogoSet {
	if logger == nil {
		logger = zap.NewNop()
	}
	set := make(LogoSet)
	probed := make(map[string]bool)

	for _, rec := range records {
		if ctx.Err() != nil {
			break
		}
		if NormalizeWebsite(rec.Classification.Website) == "" {
			continue
		}
		logoURL := LogoURL(cfg.BaseURL, rec.Classification.Website, cfg.Token)
		if _, seen := probed[logoURL]; seen {
			continue
		}
		ok := prober.Reachable(ctx, logoURL)
		probed[logoURL] = ok
		if !ok {
			logger.Debug("Dropping unreachable logo",
				zap.String("message_id", rec.MessageID),
				zap.String("website", rec.Classification.Website))
			continue
		}
		set.Add(logoURL)
	}

	return set
}
