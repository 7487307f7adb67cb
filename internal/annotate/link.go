package annotate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"adsconsole/internal/domain"
)

// Mode selects how user input becomes a link target.
type Mode string

const (
	ModeWhatsApp Mode = "whatsapp"
	ModeTelegram Mode = "telegram"
	ModeURL      Mode = "url"
)

// Modes lists the link modes in the order they are offered.
func Modes() []Mode { return []Mode{ModeWhatsApp, ModeTelegram, ModeURL} }

var (
	ErrNoDigits    = errors.New("number has no digits")
	ErrUnknownMode = errors.New("unknown link mode")

	nonDigits    = regexp.MustCompile(`\D`)
	schemePrefix = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*:(//)?`)
)

// ParseMode accepts a mode name or its 1-based menu number.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", string(ModeWhatsApp):
		return ModeWhatsApp, nil
	case "2", string(ModeTelegram):
		return ModeTelegram, nil
	case "3", string(ModeURL):
		return ModeURL, nil
	}
	return "", domain.Validation("parse link mode", fmt.Errorf("%w: %q", ErrUnknownMode, s))
}

// BuildLink turns input into a link for mode. Blank input yields ok=false and
// no error: the caller aborts without mutating anything.
func BuildLink(mode Mode, input string) (link string, ok bool, err error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", false, nil
	}
	switch mode {
	case ModeWhatsApp:
		digits := nonDigits.ReplaceAllString(trimmed, "")
		if digits == "" {
			return "", false, domain.Validation("build link", fmt.Errorf("%w: %q", ErrNoDigits, input))
		}
		return "https://wa.me/" + digits, true, nil
	case ModeTelegram:
		return "https://t.me/" + trimmed, true, nil
	case ModeURL:
		if hasScheme(trimmed) {
			return trimmed, true, nil
		}
		return "https://" + trimmed, true, nil
	default:
		return "", false, domain.Validation("build link", fmt.Errorf("%w: %q", ErrUnknownMode, mode))
	}
}

// hasScheme accepts "scheme://..." and the opaque mailto:/tel: forms, so that
// "example.com:8080" is still treated as schemeless.
func hasScheme(s string) bool {
	m := schemePrefix.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	if m[1] != "" {
		return true
	}
	scheme := strings.ToLower(strings.TrimSuffix(m[0], ":"))
	return scheme == "mailto" || scheme == "tel"
}
