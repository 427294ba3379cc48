package render

import (
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// AllowList is the sanitization policy applied to every text-bearing block field.
// Anything not listed is stripped; the contents of stripped script and style
// elements are dropped entirely.
type AllowList struct {
	// Elements that may appear in inline text.
	Elements []string
	// Attributes permitted per element, e.g. {"a": {"href"}}.
	Attributes map[string][]string
	// URLSchemes accepted in URL-valued attributes.
	URLSchemes []string
	// AllowRelativeURLs permits scheme-less URLs such as "/page".
	AllowRelativeURLs bool
}

// DefaultAllowList returns the minimal inline-formatting set: bold, italic, links and
// line breaks.
func DefaultAllowList() AllowList {
	return AllowList{
		Elements:          []string{"b", "strong", "i", "em", "a", "br"},
		Attributes:        map[string][]string{"a": {"href"}},
		URLSchemes:        []string{"http", "https", "mailto"},
		AllowRelativeURLs: true,
	}
}

// Policy builds the bluemonday policy for the allow-list. URL attributes are always
// parsed so that script-capable schemes are rejected.
func (a AllowList) Policy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	if len(a.Elements) > 0 {
		p.AllowElements(a.Elements...)
	}
	for element, attrs := range a.Attributes {
		if len(attrs) == 0 {
			continue
		}
		p.AllowAttrs(attrs...).OnElements(element)
	}
	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(a.AllowRelativeURLs)
	if len(a.URLSchemes) > 0 {
		p.AllowURLSchemes(a.URLSchemes...)
	}
	return p
}

// fragmentPolicy cleans whole-block fragments from custom renderers: user-generated
// content markup plus class attributes.
var fragmentPolicy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowStyling()
	return p
}()

// plainPolicy strips all markup. Its output is escaped and safe inside quoted attributes.
var plainPolicy = bluemonday.StrictPolicy()

// safeURL returns raw when it parses and either uses one of schemes or, if relative is
// set, has no scheme or host at all.
func safeURL(raw string, relative bool, schemes ...string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.ContainsAny(raw, " \t\r\n") {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if u.Scheme == "" {
		if !relative || u.Host != "" || strings.HasPrefix(raw, "//") {
			return "", false
		}
		return u.String(), true
	}
	for _, s := range schemes {
		if strings.EqualFold(u.Scheme, s) {
			if u.Host == "" {
				return "", false
			}
			return u.String(), true
		}
	}
	return "", false
}
