// Package listing resolves partial property listings from third-party
// real-estate sites, through a structured API or a headless browser.
package listing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-qualifier/internal/model"
)

// ErrNoSuchElement is returned by a Page when a selector matches nothing.
var ErrNoSuchElement = eris.New("listing: no such element")

// Source resolves the listing fields one site knows about an address.
// A returned error is a hard failure of the source; fields that were
// simply not found are left nil without an error.
type Source interface {
	Name() string
	Resolve(ctx context.Context, addr model.Address) (model.Listing, error)
}

// Browser opens pages in a fresh automation session.
type Browser interface {
	Open(ctx context.Context, pageURL string) (Page, error)
}

// Page is a loaded document. Close tears down the whole session.
type Page interface {
	// Text returns the trimmed text of the first element matching a CSS selector.
	Text(ctx context.Context, css string) (string, error)
	// TextX returns the trimmed text of the first element matching an XPath expression.
	TextX(ctx context.Context, xpath string) (string, error)
	Close() error
}

// locator names one field's selector on a page.
type locator struct {
	field string
	query string
	xpath bool
}

// extract reads one field. Any lookup failure leaves the field missing.
func extract(ctx context.Context, page Page, source string, loc locator) (string, bool) {
	var (
		text string
		err  error
	)
	if loc.xpath {
		text, err = page.TextX(ctx, loc.query)
	} else {
		text, err = page.Text(ctx, loc.query)
	}
	switch {
	case errors.Is(err, ErrNoSuchElement):
		zap.L().Debug("listing: element not found",
			zap.String("source", source),
			zap.String("field", loc.field),
		)
		return "", false
	case err != nil:
		zap.L().Warn("listing: element lookup failed",
			zap.String("source", source),
			zap.String("field", loc.field),
			zap.Error(err),
		)
		return "", false
	}
	text = strings.TrimSpace(text)
	return text, text != ""
}

// closePage closes a page and logs a failed teardown.
func closePage(page Page, source string) {
	if err := page.Close(); err != nil {
		zap.L().Warn("listing: close page", zap.String("source", source), zap.Error(err))
	}
}

// sleep waits for d on clock or until ctx is done.
func sleep(ctx context.Context, clock clockwork.Clock, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clock.After(d):
		return nil
	}
}

// dashed replaces spaces with dashes, the slug form both sites use for streets.
func dashed(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), " ", "-")
}
