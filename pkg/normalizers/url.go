package normalizers

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/purell"
	"golang.org/x/net/publicsuffix"
)

const urlFlags = purell.FlagsUsuallySafeGreedy |
	purell.FlagLowercaseScheme |
	purell.FlagLowercaseHost |
	purell.FlagRemoveWWW |
	purell.FlagRemoveFragment

// NormalizeURL canonicalizes a website address into the form stored in the
// final_url and current_related_urls fields: a lowercase registrable domain,
// without scheme, www prefix or trailing slash, with any path preserved.
// Input that does not look like a URL returns a NormalizationError.
func NormalizeURL(raw string) (string, error) {
	candidate := ApplyChain(raw, "trim", "remove_whitespace", "lowercase")
	if candidate == "" {
		return "", &NormalizationError{URL: raw, Reason: "empty value"}
	}
	if !strings.Contains(candidate, "://") {
		candidate = "http://" + candidate
	}

	normalized, err := purell.NormalizeURLString(candidate, urlFlags)
	if err != nil {
		return "", &NormalizationError{URL: raw, Reason: err.Error()}
	}

	u, err := url.Parse(normalized)
	if err != nil {
		return "", &NormalizationError{URL: raw, Reason: err.Error()}
	}

	host := u.Hostname()
	if _, err := publicsuffix.EffectiveTLDPlusOne(host); err != nil {
		return "", &NormalizationError{URL: raw, Reason: "not a registrable domain"}
	}

	return host + StripTrailingSlash(u.EscapedPath()), nil
}
