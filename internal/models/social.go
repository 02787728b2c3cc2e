package models

import (
	"fmt"
	"strings"
	"time"
)

// SocialDiscussion is a community post about a watched symbol, keyed by
// (source, source_id).
type SocialDiscussion struct {
	Source      string    `json:"source"`
	SourceID    string    `json:"source_id"`
	Symbol      string    `json:"symbol"`
	Community   string    `json:"community"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
	Content     string    `json:"content,omitempty"`
}

// NewSocialDiscussion validates and constructs a SocialDiscussion.
func NewSocialDiscussion(source, sourceID, symbol, community, title, rawURL string, publishedAt time.Time, content string) (SocialDiscussion, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return SocialDiscussion{}, fmt.Errorf("discussion source cannot be empty")
	}

	sourceID = strings.TrimSpace(sourceID)
	if sourceID == "" {
		return SocialDiscussion{}, fmt.Errorf("discussion source id cannot be empty (source=%s)", source)
	}

	sym := NormalizeSymbol(symbol)
	if !ValidTicker(sym) && sym != MarketSymbol {
		return SocialDiscussion{}, fmt.Errorf("invalid discussion symbol %q (source_id=%s)", symbol, sourceID)
	}

	community = strings.TrimSpace(community)
	if community == "" {
		return SocialDiscussion{}, fmt.Errorf("discussion community cannot be empty (source_id=%s)", sourceID)
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return SocialDiscussion{}, fmt.Errorf("discussion title cannot be empty (source_id=%s)", sourceID)
	}

	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return SocialDiscussion{}, fmt.Errorf("discussion url cannot be empty (source_id=%s)", sourceID)
	}

	if publishedAt.IsZero() {
		return SocialDiscussion{}, fmt.Errorf("discussion published timestamp cannot be zero (source_id=%s)", sourceID)
	}

	return SocialDiscussion{
		Source:      source,
		SourceID:    sourceID,
		Symbol:      sym,
		Community:   community,
		Title:       title,
		URL:         rawURL,
		PublishedAt: NormalizeTime(publishedAt),
		Content:     strings.TrimSpace(content),
	}, nil
}

// RecordSymbol implements the watermark record contract.
func (d SocialDiscussion) RecordSymbol() string { return d.Symbol }

// RecordTime implements the watermark record contract.
func (d SocialDiscussion) RecordTime() time.Time { return d.PublishedAt }
