package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// NewsType distinguishes company-specific articles from market-wide macro news.
type NewsType string

const (
	NewsTypeCompanySpecific NewsType = "COMPANY_SPECIFIC"
	NewsTypeMacro           NewsType = "MACRO"
)

// Importance is the tri-state classification flag on a news/symbol link.
// UNKNOWN means "not yet classified", which is distinct from NOT_IMPORTANT.
type Importance string

const (
	ImportanceImportant    Importance = "IMPORTANT"
	ImportanceNotImportant Importance = "NOT_IMPORTANT"
	ImportanceUnknown      Importance = "UNKNOWN"
)

// NewsArticle is a single article identified by its URL. Many symbols may
// reference the same article; the article itself carries no symbol.
type NewsArticle struct {
	URL         string   `json:"url"`
	Headline    string   `json:"headline"`
	Content     string   `json:"content,omitempty"`
	Source      string   `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	Type        NewsType `json:"news_type"`
}

// NewNewsArticle validates and constructs a NewsArticle. The URL must be
// http/https, headline and source must be non-empty, and the published
// timestamp is normalized to second-precision UTC.
func NewNewsArticle(rawURL, headline, content, source string, publishedAt time.Time, newsType NewsType) (NewsArticle, error) {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return NewsArticle{}, fmt.Errorf("invalid article url %q: must be http or https", rawURL)
	}

	headline = strings.TrimSpace(headline)
	if headline == "" {
		return NewsArticle{}, fmt.Errorf("article headline cannot be empty (url=%s)", rawURL)
	}

	source = strings.TrimSpace(source)
	if source == "" {
		return NewsArticle{}, fmt.Errorf("article source cannot be empty (url=%s)", rawURL)
	}

	if publishedAt.IsZero() {
		return NewsArticle{}, fmt.Errorf("article published timestamp cannot be zero (url=%s)", rawURL)
	}

	switch newsType {
	case NewsTypeCompanySpecific, NewsTypeMacro:
	default:
		return NewsArticle{}, fmt.Errorf("invalid news type %q (url=%s)", newsType, rawURL)
	}

	return NewsArticle{
		URL:         rawURL,
		Headline:    headline,
		Content:     strings.TrimSpace(content),
		Source:      source,
		PublishedAt: NormalizeTime(publishedAt),
		Type:        newsType,
	}, nil
}

// NewsEntry pairs an article with one symbol and that symbol's importance
// flag. It is the unit providers return; storage decomposes it into a
// news_items row plus a news_symbols row.
type NewsEntry struct {
	Article    NewsArticle `json:"article"`
	Symbol     string      `json:"symbol"`
	Importance Importance  `json:"importance"`
}

// NewNewsEntry validates and constructs a NewsEntry. The symbol must be a
// watchlist-shaped ticker or the MARKET sentinel.
func NewNewsEntry(article NewsArticle, symbol string, importance Importance) (NewsEntry, error) {
	sym := NormalizeSymbol(symbol)
	if sym == "" {
		return NewsEntry{}, fmt.Errorf("news entry symbol cannot be empty (url=%s)", article.URL)
	}
	if !ValidTicker(sym) && sym != MarketSymbol {
		return NewsEntry{}, fmt.Errorf("invalid news entry symbol %q (url=%s)", symbol, article.URL)
	}

	switch importance {
	case ImportanceImportant, ImportanceNotImportant, ImportanceUnknown:
	default:
		return NewsEntry{}, fmt.Errorf("invalid importance %q for symbol %s", importance, sym)
	}

	return NewsEntry{Article: article, Symbol: sym, Importance: importance}, nil
}

// RecordSymbol implements the watermark record contract.
func (e NewsEntry) RecordSymbol() string { return e.Symbol }

// RecordTime implements the watermark record contract.
func (e NewsEntry) RecordTime() time.Time { return e.Article.PublishedAt }

// NewsSymbolLink is the persisted many-to-many row between an article and a
// symbol, keyed by (url, symbol).
type NewsSymbolLink struct {
	URL        string     `json:"url"`
	Symbol     string     `json:"symbol"`
	Importance Importance `json:"importance"`
	CreatedAt  time.Time  `json:"created_at"`
}
