// Package scraper pulls Pokédex flavor text from a pokemondb-style site when
// PokeAPI has no English entry.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"pokebattle/pkg/logging"
)

// ErrNoLore is returned when the page has no usable description.
var ErrNoLore = errors.New("no flavor text on page")

var (
	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	}
	citation = regexp.MustCompile(`\[.*?\]`)
	spaces   = regexp.MustCompile(`\s+`)
)

type Scraper struct {
	baseURL string
	timeout time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

func New(baseURL string, timeout time.Duration) *Scraper {
	return &Scraper{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Scraper) userAgent() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return userAgents[s.rng.Intn(len(userAgents))]
}

// Lore visits <base>/<name> and returns its first Pokédex entry.
func (s *Scraper) Lore(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	page := s.baseURL + "/" + url.PathEscape(strings.ToLower(strings.TrimSpace(name)))

	c := colly.NewCollector(colly.UserAgent(s.userAgent()), colly.AllowURLRevisit())
	c.SetRequestTimeout(s.timeout)

	var text string
	c.OnHTML("html", func(e *colly.HTMLElement) {
		text = extract(e.DOM)
	})
	var visitErr error
	c.OnError(func(r *colly.Response, err error) {
		visitErr = fmt.Errorf("scrape %s: status %d: %w", page, r.StatusCode, err)
	})

	if err := c.Visit(page); err != nil && visitErr == nil {
		visitErr = fmt.Errorf("scrape %s: %w", page, err)
	}
	c.Wait()
	if visitErr != nil {
		logging.Warn("lore scrape failed", logging.Fields{"name": name, "error": visitErr.Error()})
		return "", visitErr
	}
	if text == "" {
		return "", fmt.Errorf("%w: %s", ErrNoLore, page)
	}
	return text, nil
}

// Parse extracts the description from an already fetched page.
func Parse(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}
	if text := extract(doc.Selection); text != "" {
		return text, nil
	}
	return "", ErrNoLore
}

// extract prefers the Pokédex entries table and falls back to the first
// substantial paragraph of the main column.
func extract(doc *goquery.Selection) string {
	var text string
	doc.Find("table.vitals-table td.cell-med-text").EachWithBreak(func(i int, s *goquery.Selection) bool {
		text = clean(s.Text())
		return text == ""
	})
	if text != "" {
		return text
	}
	doc.Find("main p").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if t := clean(s.Text()); len(t) > 50 {
			text = t
			return false
		}
		return true
	})
	return text
}

func clean(s string) string {
	s = citation.ReplaceAllString(s, "")
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}
