package news

import (
	"net/url"
	"strings"

	"github.com/newthinker/pulse/internal/core"
)

// GoogleNewsTemplate is the Google News search feed, restricted to the last
// day. %s receives the escaped query.
const GoogleNewsTemplate = "https://news.google.com/rss/search?q=%s+when:1d&hl=en-US&gl=US&ceid=US:en"

// Source names used in reports.
const (
	SourceGoogleNews    = "Google News"
	SourceCointelegraph = "Cointelegraph"
)

// Default feed set.
var (
	DefaultCoins      = []string{"bitcoin", "ethereum", "solana"}
	DefaultExtraTerms = []string{"crypto", "cryptocurrency", "altcoin", "web3"}
	DefaultMacroTerms = []string{"inflation", "interest rates", "recession", "federal reserve", "tariffs", "geopolitics", "regulation"}
)

// Feed describes one RSS/Atom feed. When URL is empty the feed is a Google
// News search for Query.
type Feed struct {
	Source string `mapstructure:"source" json:"source"`
	URL    string `mapstructure:"url" json:"url,omitempty"`
	Query  string `mapstructure:"query" json:"query,omitempty"`
	Group  string `mapstructure:"group" json:"group"`
}

// Resolve returns the URL to fetch.
func (f Feed) Resolve() string {
	if f.URL != "" {
		return f.URL
	}
	return GoogleNewsURL(f.Query)
}

// Name identifies the feed in logs and metrics.
func (f Feed) Name() string {
	if f.Query != "" {
		return f.Source + ":" + f.Query
	}
	return f.Source + ":" + f.Group
}

// GoogleNewsURL builds the search feed URL for query.
func GoogleNewsURL(query string) string {
	return strings.Replace(GoogleNewsTemplate, "%s", url.QueryEscape(query), 1)
}

// DefaultFeeds builds the coin and macro feed set. Each coin gets Google
// News searches for its name and every extra term plus its Cointelegraph
// tag feed. Macro terms share the MACRO group.
func DefaultFeeds(coins, extraTerms, macroTerms []string) []Feed {
	var feeds []Feed
	for _, coin := range coins {
		group := strings.ToUpper(coin)
		for _, term := range append([]string{coin}, extraTerms...) {
			feeds = append(feeds, Feed{Source: SourceGoogleNews, Query: term, Group: group})
		}
		feeds = append(feeds, Feed{
			Source: SourceCointelegraph,
			URL:    "https://cointelegraph.com/rss/tag/" + url.PathEscape(coin),
			Group:  group,
		})
	}
	for _, term := range macroTerms {
		feeds = append(feeds, Feed{Source: SourceGoogleNews, Query: term, Group: core.MacroGroup})
	}
	return feeds
}

// Groups lists the distinct groups of feeds in first-seen order.
func Groups(feeds []Feed) []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range feeds {
		if !seen[f.Group] {
			seen[f.Group] = true
			out = append(out, f.Group)
		}
	}
	return out
}
