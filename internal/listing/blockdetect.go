package listing

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// BlockKind describes an anti-bot page served in place of a listing.
type BlockKind string

const (
	BlockNone       BlockKind = ""
	BlockCloudflare BlockKind = "cloudflare"
	BlockCaptcha    BlockKind = "captcha"
	BlockJSShell    BlockKind = "js_shell"
)

// BodyCSS selects the page body for block detection.
const BodyCSS = "body"

// ErrBlocked is returned when a site served an anti-bot page. It counts as
// a hard source failure, so repeated blocks open the source's circuit.
var ErrBlocked = eris.New("listing: blocked by anti-bot page")

// DetectBlock classifies the visible text of a page.
func DetectBlock(body string) BlockKind {
	lower := strings.ToLower(body)

	// Cloudflare challenge page markers.
	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") ||
		strings.Contains(lower, "cloudflare") && strings.Contains(lower, "challenge") {
		return BlockCloudflare
	}

	// Captcha and press-and-hold human checks.
	if strings.Contains(lower, "captcha") ||
		strings.Contains(lower, "press & hold") ||
		strings.Contains(lower, "are a human") {
		return BlockCaptcha
	}

	// JS-only shell: very little text asking for javascript.
	if len(lower) < 2000 && strings.Contains(lower, "enable javascript") {
		return BlockJSShell
	}

	return BlockNone
}

// checkBlocked inspects a page that yielded no fields. An unreadable body is
// not treated as a block.
func checkBlocked(ctx context.Context, page Page, source string) error {
	body, err := page.Text(ctx, BodyCSS)
	if err != nil {
		return nil
	}
	kind := DetectBlock(body)
	if kind == BlockNone {
		return nil
	}
	zap.L().Warn("listing: anti-bot page detected",
		zap.String("source", source),
		zap.String("block", string(kind)),
	)
	return eris.Wrapf(ErrBlocked, "%s: %s", strings.ToLower(source), kind)
}
