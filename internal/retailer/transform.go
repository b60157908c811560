package retailer

import (
	"fmt"
	"net/url"
	"strings"
)

// Named URL transforms a profile may reference.
const (
	// TransformStripQuery drops the whole query string
	TransformStripQuery = "strip-query"
	// TransformDesktopHost rewrites m./mobile. hosts to their www. counterpart
	TransformDesktopHost = "desktop-host"
)

var transforms = map[string]func(*url.URL){
	TransformStripQuery: func(u *url.URL) {
		u.RawQuery = ""
		u.ForceQuery = false
	},
	TransformDesktopHost: func(u *url.URL) {
		for _, prefix := range []string{"m.", "mobile."} {
			if strings.HasPrefix(u.Host, prefix) {
				u.Host = "www." + strings.TrimPrefix(u.Host, prefix)
				return
			}
		}
	},
}

// KnownTransform reports whether name is a registered URL transform ("" counts as none).
func KnownTransform(name string) bool {
	if name == "" {
		return true
	}
	_, ok := transforms[name]
	return ok
}

// ApplyTransform returns rawURL rewritten by the named transform. An empty name
// returns the URL unchanged.
func ApplyTransform(name, rawURL string) (string, error) {
	if name == "" {
		return rawURL, nil
	}
	fn, ok := transforms[name]
	if !ok {
		return "", fmt.Errorf("unknown url transform %q", name)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url for transform: %w", err)
	}
	fn(u)
	return u.String(), nil
}
