package sentiment

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	engerrors "github.com/quangtran88/signalbot/internal/errors"
)

// defaultFeeds are the financial news RSS sources polled when the
// configuration does not override them.
var defaultFeeds = []string{
	"https://feeds.finance.yahoo.com/rss/2.0/headline",
	"https://feeds.marketwatch.com/marketwatch/topstories/",
	"https://feeds.bloomberg.com/markets/news.rss",
	"https://www.cnbc.com/id/100003114/device/rss/rss.html",
}

// symbolKeywords maps tickers to company and product names that identify
// relevant headlines when the ticker itself is not mentioned.
var symbolKeywords = map[string][]string{
	"AAPL":  {"apple", "iphone", "ipad", "macbook"},
	"MSFT":  {"microsoft", "azure", "office", "windows"},
	"GOOGL": {"google", "alphabet", "youtube", "android"},
	"AMZN":  {"amazon", "aws", "prime"},
	"TSLA":  {"tesla", "elon musk", "electric vehicle"},
	"META":  {"facebook", "meta", "instagram", "whatsapp"},
	"NVDA":  {"nvidia", "gpu", "ai chip"},
	"SPY":   {"spdr", "s&p 500", "sp500"},
	"QQQ":   {"nasdaq", "invesco"},
	"IWM":   {"russell 2000", "small cap"},
}

type rssFeed struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Description string `xml:"description"`
	Link        string `xml:"link"`
	PubDate     string `xml:"pubDate"`
}

// NewsItem is a headline that survived symbol filtering.
type NewsItem struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"published_at"`
	Source      string    `json:"source"`
}

// Analyzer scores news sentiment from RSS feeds using the built-in
// financial lexicon.
type Analyzer struct {
	client    *resty.Client
	feeds     []string
	hoursBack int
	log       zerolog.Logger
}

// NewAnalyzer creates an RSS-backed sentiment analyzer. An empty feeds
// slice uses the default financial sources.
func NewAnalyzer(feeds []string, log zerolog.Logger) *Analyzer {
	if len(feeds) == 0 {
		feeds = defaultFeeds
	}
	return &Analyzer{
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(2 * time.Second),
		feeds:     feeds,
		hoursBack: 24,
		log:       log,
	}
}

// GetSentiment fetches recent headlines mentioning the symbol and scores
// their combined text. No relevant news yields a neutral score with zero
// confidence.
func (a *Analyzer) GetSentiment(ctx context.Context, symbol string) (Score, error) {
	items, err := a.fetchNews(ctx, symbol)
	if err != nil {
		return Score{}, err
	}
	if len(items) == 0 {
		return Neutral(symbol), nil
	}

	var sb strings.Builder
	for _, item := range items {
		sb.WriteString(item.Title)
		sb.WriteString(" ")
		sb.WriteString(item.Description)
		sb.WriteString(" ")
	}
	compound := compoundScore(sb.String())

	return Score{
		Symbol:     symbol,
		Compound:   compound,
		Label:      LabelFor(compound),
		NewsCount:  len(items),
		Confidence: min(float64(len(items))/5.0, 1.0) * abs(compound),
		FetchedAt:  time.Now().UTC(),
	}, nil
}

// GetMarketSentiment scores the overall market from unfiltered headlines.
func (a *Analyzer) GetMarketSentiment(ctx context.Context) (Score, error) {
	items, err := a.fetchNews(ctx, "")
	if err != nil {
		return Score{}, err
	}
	if len(items) == 0 {
		return Neutral("MARKET"), nil
	}

	var sb strings.Builder
	for _, item := range items {
		sb.WriteString(item.Title)
		sb.WriteString(" ")
		sb.WriteString(item.Description)
		sb.WriteString(" ")
	}
	compound := compoundScore(sb.String())

	return Score{
		Symbol:     "MARKET",
		Compound:   compound,
		Label:      LabelFor(compound),
		NewsCount:  len(items),
		Confidence: min(float64(len(items))/10.0, 1.0) * abs(compound),
		FetchedAt:  time.Now().UTC(),
	}, nil
}

// fetchNews polls every feed, tolerating individual source failures. It
// errors only when no source could be reached at all.
func (a *Analyzer) fetchNews(ctx context.Context, symbol string) ([]NewsItem, error) {
	cutoff := time.Now().UTC().Add(-time.Duration(a.hoursBack) * time.Hour)

	var items []NewsItem
	var reached int
	for _, feedURL := range a.feeds {
		resp, err := a.client.R().SetContext(ctx).Get(feedURL)
		if err != nil {
			a.log.Warn().Err(err).Str("feed", feedURL).Msg("news feed unreachable")
			continue
		}
		if resp.StatusCode() != 200 {
			a.log.Warn().Int("status", resp.StatusCode()).Str("feed", feedURL).Msg("news feed returned error")
			continue
		}
		reached++

		var feed rssFeed
		if err := xml.Unmarshal(resp.Body(), &feed); err != nil {
			a.log.Warn().Err(err).Str("feed", feedURL).Msg("failed to parse feed")
			continue
		}

		for _, entry := range feed.Channel.Items {
			published := parsePubDate(entry.PubDate)
			if !published.IsZero() && published.Before(cutoff) {
				continue
			}
			if symbol != "" && !mentionsSymbol(entry.Title+" "+entry.Description, symbol) {
				continue
			}
			items = append(items, NewsItem{
				Title:       entry.Title,
				Description: entry.Description,
				Link:        entry.Link,
				PublishedAt: published,
				Source:      feedURL,
			})
		}
	}

	if reached == 0 {
		return nil, engerrors.New(engerrors.CategoryUnavailable, "sentiment", "fetchNews",
			fmt.Sprintf("all %d news feeds unreachable", len(a.feeds)))
	}
	return items, nil
}

// mentionsSymbol reports whether text refers to the symbol directly or
// through a known company keyword.
func mentionsSymbol(text, symbol string) bool {
	lower := strings.ToLower(text)
	if strings.Contains(lower, strings.ToLower(symbol)) {
		return true
	}
	for _, kw := range symbolKeywords[strings.ToUpper(symbol)] {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func parsePubDate(s string) time.Time {
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
