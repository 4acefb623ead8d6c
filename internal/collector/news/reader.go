// Package news reads RSS and Atom feeds into text items.
package news

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"github.com/newthinker/pulse/internal/core"
)

// DefaultItemLimit is the number of items taken from the top of each feed.
const DefaultItemLimit = 5

var (
	spacePattern = regexp.MustCompile(`\s+`)
	textPolicy   = newTextPolicy()
)

// Reader fetches and parses feeds.
type Reader struct {
	parser *gofeed.Parser
	limit  int
}

// NewReader creates a reader taking the first limit items of each feed.
// A nil client gets a 15 second timeout.
func NewReader(client *http.Client, limit int) *Reader {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if limit <= 0 {
		limit = DefaultItemLimit
	}

	p := gofeed.NewParser()
	p.Client = client
	p.UserAgent = "pulse/1.0"
	return &Reader{parser: p, limit: limit}
}

// Read fetches feed and returns its first items tagged with the feed's
// source, group and query.
func (r *Reader) Read(ctx context.Context, feed Feed) ([]core.TextItem, error) {
	parsed, err := r.parser.ParseURLWithContext(feed.Resolve(), ctx)
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("feed %s: %w", feed.Name(), err))
	}

	n := len(parsed.Items)
	if n > r.limit {
		n = r.limit
	}

	items := make([]core.TextItem, 0, n)
	for _, it := range parsed.Items[:n] {
		if it == nil {
			continue
		}
		item := core.TextItem{
			Source:      feed.Source,
			Title:       strings.TrimSpace(it.Title),
			Description: StripHTML(it.Description),
			Group:       feed.Group,
			Term:        feed.Query,
			URL:         it.Link,
		}
		if it.PublishedParsed != nil {
			item.PublishedAt = it.PublishedParsed.UTC()
		}
		items = append(items, item)
	}
	return items, nil
}

func newTextPolicy() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}

// StripHTML removes markup and entities and collapses whitespace. Markup
// that arrives entity-escaped is removed too.
func StripHTML(s string) string {
	for i := 0; i < 2; i++ {
		s = html.UnescapeString(textPolicy.Sanitize(s))
	}
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}

// Source binds a feed to a reader. It implements collector.TextSource.
type Source struct {
	feed   Feed
	reader *Reader
}

// Sources wraps every feed as a text source sharing r.
func (r *Reader) Sources(feeds []Feed) []*Source {
	out := make([]*Source, len(feeds))
	for i, f := range feeds {
		out[i] = &Source{feed: f, reader: r}
	}
	return out
}

func (s *Source) Name() string  { return s.feed.Name() }
func (s *Source) Group() string { return s.feed.Group }
func (s *Source) Feed() Feed    { return s.feed }

func (s *Source) Fetch(ctx context.Context) ([]core.TextItem, error) {
	return s.reader.Read(ctx, s.feed)
}
