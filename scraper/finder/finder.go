package finder

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"taycan-tracker/config"
	"taycan-tracker/models"
	"taycan-tracker/utils"
)

// cardExtractJS walks every detail link on the search page up to its card
// ancestor (the first container with a sterling amount and a sane text size)
// and returns the card's visible text plus outer HTML. All field parsing
// happens later, in Go.
const cardExtractJS = `
(function() {
	var results = [];
	var seen = {};
	var links = document.querySelectorAll('a[href*="/details/"]');

	for (var li = 0; li < links.length; li++) {
		var card = links[li];
		for (var i = 0; i < 15; i++) {
			if (!card.parentElement) break;
			card = card.parentElement;
			var t = card.textContent || '';
			if (t.indexOf('£') >= 0 && t.length > 200 && t.length < 8000) break;
		}

		var text = card.innerText || card.textContent || '';
		if (text.indexOf('£') < 0) continue;
		if (seen[card.outerHTML]) continue;
		seen[card.outerHTML] = true;

		results.push({ text: text, html: card.outerHTML });
	}
	return results;
})()
`

const acceptCookiesJS = `
(function() {
	var ids = ['onetrust-accept-btn-handler'];
	for (var i = 0; i < ids.length; i++) {
		var el = document.getElementById(ids[i]);
		if (el) { el.click(); return true; }
	}
	var btns = document.querySelectorAll('button');
	for (var j = 0; j < btns.length; j++) {
		var t = (btns[j].innerText || '').trim();
		if (t === 'Accept All' || t === 'Allow All') { btns[j].click(); return true; }
	}
	return false;
})()
`

// Fetcher drives the headless-browser session against the vehicle-finder
// site. It hands back raw text blobs only; it never interprets them.
type Fetcher struct {
	cfg      *config.Config
	criteria *config.Criteria
	logger   *utils.Logger
	retry    *utils.RetryConfig
}

// New creates a ready-to-use Fetcher.
func New(cfg *config.Config, criteria *config.Criteria, logger *utils.Logger) *Fetcher {
	return &Fetcher{
		cfg:      cfg,
		criteria: criteria,
		logger:   logger,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

// Session is one browser process shared by a whole scan cycle. Detail pages
// open as separate tabs off the same allocator, so they may run concurrently.
type Session struct {
	alloc   context.Context
	cancels []context.CancelFunc
	fetcher *Fetcher
}

// Open launches the browser. The caller owns the Session and must Close it.
func (f *Fetcher) Open(ctx context.Context) (*Session, error) {
	chromeBin := findChromeBinary(f.cfg.ChromeBin)
	f.logger.Info("[finder] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)

	// Suppress chromedp log noise
	silentCtx, cancelSilent := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	return &Session{
		alloc:   silentCtx,
		cancels: []context.CancelFunc{cancelSilent, cancelAlloc},
		fetcher: f,
	}, nil
}

// Close shuts the browser down.
func (s *Session) Close() {
	for _, cancel := range s.cancels {
		cancel()
	}
}

// FetchCards loads the search page and returns one raw blob per result card.
// An empty slice with no error means the page rendered but showed no offers;
// the scan treats that as fatal upstream.
func (s *Session) FetchCards() ([]models.RawCard, error) {
	f := s.fetcher
	var cards []models.RawCard

	err := f.retry.Do("fetch-search-page", func() error {
		ctx, cancel := chromedp.NewContext(s.alloc)
		defer cancel()

		ctx, cancelTimeout := context.WithTimeout(ctx, 90*time.Second)
		defer cancelTimeout()

		type rawCard struct {
			Text string `json:"text"`
			HTML string `json:"html"`
		}

		var pageTitle string
		var raw []rawCard

		err := chromedp.Run(ctx,
			chromedp.Navigate(f.criteria.SearchURL),
			chromedp.Sleep(5*time.Second),
			chromedp.Title(&pageTitle),
			chromedp.Evaluate(acceptCookiesJS, nil),
			chromedp.Sleep(2*time.Second),
			chromedp.Evaluate(cardExtractJS, &raw),
		)
		if err != nil {
			return fmt.Errorf("chromedp search page: %w", err)
		}

		if strings.Contains(pageTitle, "Security") || strings.Contains(pageTitle, "Vercel") {
			return fmt.Errorf("blocked by security checkpoint (title %q)", pageTitle)
		}

		cards = cards[:0]
		for _, c := range raw {
			cards = append(cards, models.RawCard{Text: c.Text, HTML: c.HTML})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	f.logger.Info("[finder] Search page yielded %d card blobs", len(cards))
	return cards, nil
}

// FetchDetail opens a listing's detail page in its own tab and returns the
// page's visible text. Safe to call from multiple goroutines.
func (s *Session) FetchDetail(detailURL string) (string, error) {
	f := s.fetcher
	var text string

	err := f.retry.Do("fetch-detail-page", func() error {
		ctx, cancel := chromedp.NewContext(s.alloc)
		defer cancel()

		ctx, cancelTimeout := context.WithTimeout(ctx, 60*time.Second)
		defer cancelTimeout()

		err := chromedp.Run(ctx,
			chromedp.Navigate(detailURL),
			chromedp.Sleep(3*time.Second),
			chromedp.Evaluate(`document.body.innerText`, &text),
		)
		if err != nil {
			return fmt.Errorf("chromedp detail page: %w", err)
		}
		return nil
	})
	return text, err
}

// findChromeBinary locates a Chrome/Chromium binary.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
