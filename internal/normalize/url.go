package normalize

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/notwins/backend/internal/domain"
)

var (
	schemeRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*://`)
	// schemes written without "//" that must not be mistaken for a bare host
	opaqueSchemeRegex = regexp.MustCompile(`(?i)^(javascript|data|mailto|file|ftp|tel|sms|about|blob|vbscript|chrome|ws|wss):`)
)

// blockedDomains are hosts that never carry a product page or must not be fetched.
var blockedDomains = []string{
	"facebook.com", "fb.com", "fb.me", "instagram.com", "twitter.com", "x.com", "t.co",
	"tiktok.com", "pinterest.com", "pin.it", "youtube.com", "youtu.be", "linkedin.com",
	"snapchat.com", "reddit.com", "whatsapp.com", "wa.me", "telegram.org", "t.me",
	"threads.net", "localhost",
}

// trackingParams are query keys stripped from every URL (compared lowercase).
var trackingParams = map[string]bool{
	"fbclid": true, "gclid": true, "gclsrc": true, "dclid": true, "gbraid": true, "wbraid": true,
	"msclkid": true, "yclid": true, "igshid": true, "ttclid": true, "twclid": true, "li_fat_id": true,
	"mc_cid": true, "mc_eid": true, "ref": true, "ref_src": true, "ref_url": true, "referrer": true,
	"sid": true, "sessionid": true, "session_id": true, "phpsessid": true, "jsessionid": true,
	"_hsenc": true, "_hsmi": true, "_ga": true, "_gl": true, "_ke": true, "spm": true, "scm": true,
	"srsltid": true, "trk": true, "cmpid": true, "s_kwcid": true, "ef_id": true, "epik": true,
	"affiliate_id": true, "aff_id": true,
}

var trackingPrefixes = []string{"utm_", "pk_", "hsa_", "mtm_", "_bta_"}

// NormalizeURL validates and cleans a product URL: https scheme, no tracking parameters,
// no fragment, no trailing slash. It is idempotent.
func NormalizeURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty input", domain.ErrInvalidURL)
	}

	switch {
	case strings.HasPrefix(s, "//"):
		s = "https:" + s
	case schemeRegex.MatchString(s):
	case opaqueSchemeRegex.MatchString(s):
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidProtocol, s)
	default:
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidURL, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("%w: %s", domain.ErrInvalidProtocol, scheme)
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return "", fmt.Errorf("%w: missing host", domain.ErrInvalidURL)
	}
	if IsBlockedHost(host) {
		return "", fmt.Errorf("%w: %s", domain.ErrBlockedDomain, host)
	}
	ip := net.ParseIP(host)
	if ip == nil && !strings.Contains(host, ".") {
		return "", fmt.Errorf("%w: host %q has no domain", domain.ErrInvalidURL, host)
	}

	port := u.Port()
	if port == "80" || port == "443" {
		port = ""
	}
	if ip != nil && ip.To4() == nil {
		host = "[" + host + "]"
	}
	if port != "" {
		host = host + ":" + port
	}

	u.Scheme = "https"
	u.Host = host
	u.User = nil
	u.Fragment = ""
	u.RawFragment = ""
	u.RawQuery = stripTrackingParams(u.RawQuery)
	u.ForceQuery = false
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = strings.TrimRight(u.RawPath, "/")

	return u.String(), nil
}

// IsBlockedHost reports whether host is on the blacklist or resolves to a loopback,
// private, link-local or unspecified literal address.
func IsBlockedHost(host string) bool {
	host = strings.Trim(strings.ToLower(host), "[]")
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
			ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast()
	}
	if strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".local") {
		return true
	}
	for _, d := range blockedDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// stripTrackingParams drops tracking keys while keeping the original order of the rest.
func stripTrackingParams(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	var kept []string
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key := pair
		if idx := strings.Index(pair, "="); idx >= 0 {
			key = pair[:idx]
		}
		if unescaped, err := url.QueryUnescape(key); err == nil {
			key = unescaped
		}
		if isTrackingParam(strings.ToLower(key)) {
			continue
		}
		kept = append(kept, pair)
	}
	return strings.Join(kept, "&")
}

func isTrackingParam(key string) bool {
	if trackingParams[key] {
		return true
	}
	for _, prefix := range trackingPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}
