package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/tickerwatch/ingest-service/internal/logger"
	"github.com/tickerwatch/ingest-service/internal/models"
	"github.com/tickerwatch/ingest-service/internal/provider"
)

// listing is Reddit's generic envelope around search results.
type listing struct {
	Data struct {
		Children []struct {
			Kind string `json:"kind"`
			Data struct {
				ID         string  `json:"id"`
				Title      string  `json:"title"`
				Selftext   string  `json:"selftext"`
				Permalink  string  `json:"permalink"`
				Subreddit  string  `json:"subreddit"`
				CreatedUTC float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// SocialSource searches configured subreddits for discussion of watched
// symbols. Symbols never seen before are deliberately left out of the fetch
// plan; on their first appearance the source runs a wider bootstrap search
// instead of synthesizing a cursor for them.
type SocialSource struct {
	client     *Client
	watchlist  []string
	subreddits []string
	overlap    time.Duration
	log        *logger.Logger
}

// NewSocialSource builds the Reddit discussion source.
func NewSocialSource(client *Client, watchlist, subreddits []string, overlap time.Duration, log *logger.Logger) *SocialSource {
	return &SocialSource{
		client:     client,
		watchlist:  watchlist,
		subreddits: subreddits,
		overlap:    overlap,
		log:        log,
	}
}

func (s *SocialSource) Name() string { return "reddit-social" }

func (s *SocialSource) Spec() provider.StreamSpec {
	return provider.StreamSpec{
		Provider:            provider.ProviderReddit,
		Stream:              provider.StreamSocial,
		Scope:               provider.ScopeSymbol,
		Kind:                provider.CursorSymbolTimestamp,
		BootstrapByOmission: true,
	}
}

func (s *SocialSource) WatchedSymbols() []string { return s.watchlist }

func (s *SocialSource) ValidateConnection(ctx context.Context) bool {
	return s.client.validate(ctx)
}

// FetchIncremental searches each subreddit per watched symbol. Symbols with a
// cursor search the last hour and filter to the exact buffered window;
// symbols absent from the plan bootstrap with a week-wide search, unfiltered.
func (s *SocialSource) FetchIncremental(ctx context.Context, cursor provider.Cursor) (provider.FetchResult, error) {
	plan, ok := cursor.(provider.SymbolCursor)
	if !ok {
		return provider.FetchResult{}, fmt.Errorf("reddit social expects a symbol cursor, got %T", cursor)
	}

	var result provider.FetchResult
	var lastErr error
	succeeded := false

	for _, symbol := range s.watchlist {
		timeFilter := "week"
		var bufferStart time.Time
		if since, seen := plan.Since[symbol]; seen {
			timeFilter = "hour"
			bufferStart = provider.BufferStart(since, s.overlap)
		}

		discussions, err := s.searchSymbol(ctx, symbol, timeFilter, bufferStart)
		if err != nil {
			if provider.IsContractError(err) {
				return provider.FetchResult{}, err
			}
			s.log.Warn("reddit search failed for symbol",
				logger.StringField("symbol", symbol),
				logger.ErrorField(err))
			lastErr = err
			continue
		}
		succeeded = true
		result.Discussions = append(result.Discussions, discussions...)
	}

	if !succeeded && lastErr != nil {
		return provider.FetchResult{}, lastErr
	}
	return result, nil
}

func (s *SocialSource) searchSymbol(ctx context.Context, symbol, timeFilter string, bufferStart time.Time) ([]models.SocialDiscussion, error) {
	var discussions []models.SocialDiscussion

	for _, sub := range s.subreddits {
		query := url.Values{
			"q":           {symbol},
			"restrict_sr": {"1"},
			"sort":        {"new"},
			"t":           {timeFilter},
			"limit":       {"100"},
		}
		body, err := s.client.get(ctx, "/r/"+sub+"/search", query)
		if err != nil {
			return nil, err
		}

		var page listing
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, provider.NewContractError(sourceName, "search in r/%s: malformed listing: %v", sub, err)
		}

		for _, child := range page.Data.Children {
			if child.Kind != "t3" {
				continue
			}
			post := child.Data

			created := time.Unix(int64(post.CreatedUTC), 0).UTC()
			if !provider.WithinWindow(created, bufferStart) {
				continue
			}

			discussion, err := models.NewSocialDiscussion(
				sourceName,
				"t3_"+post.ID,
				symbol,
				post.Subreddit,
				post.Title,
				"https://www.reddit.com"+post.Permalink,
				created,
				post.Selftext,
			)
			if err != nil {
				s.log.Warn("skipping malformed reddit post",
					logger.StringField("subreddit", sub),
					logger.ErrorField(err))
				continue
			}
			discussions = append(discussions, discussion)
		}
	}
	return discussions, nil
}
