// Package retailer maps hostnames to extraction profiles.
package retailer

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/notwins/backend/internal/domain"
)

// Registry is a read-only lookup over retailer profiles, built once at startup.
type Registry struct {
	profiles []domain.RetailerProfile
	generic  domain.RetailerProfile
	logger   *zap.Logger
}

// NewRegistry creates a registry from the built-in profiles plus overrides.
// An override whose name matches a built-in replaces it; others are appended.
func NewRegistry(logger *zap.Logger, overrides ...domain.RetailerProfile) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	profiles := builtinProfiles()
	for _, override := range overrides {
		if err := validateProfile(override); err != nil {
			return nil, err
		}
		replaced := false
		for i := range profiles {
			if profiles[i].Name == override.Name {
				profiles[i] = override
				replaced = true
				break
			}
		}
		if !replaced {
			profiles = append(profiles, override)
		}
	}

	for i := range profiles {
		if profiles[i].Mode == "" {
			profiles[i].Mode = domain.ModeHTML
		}
		hosts := make([]string, len(profiles[i].HostMatchers))
		for j, host := range profiles[i].HostMatchers {
			hosts[j] = strings.ToLower(strings.TrimSpace(host))
		}
		profiles[i].HostMatchers = hosts
	}

	logger.Info("retailer registry initialized",
		zap.Int("profiles", len(profiles)),
		zap.Int("overrides", len(overrides)),
	)

	return &Registry{
		profiles: profiles,
		generic:  genericProfile(),
		logger:   logger,
	}, nil
}

// Lookup returns the most specific profile whose host matcher covers the URL's host,
// or the generic profile when none does.
func (r *Registry) Lookup(rawURL string) domain.RetailerProfile {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return r.generic
	}
	host := strings.ToLower(u.Hostname())

	best := -1
	bestLen := 0
	for i, profile := range r.profiles {
		for _, matcher := range profile.HostMatchers {
			if hostMatches(host, matcher) && len(matcher) > bestLen {
				best, bestLen = i, len(matcher)
			}
		}
	}
	if best < 0 {
		r.logger.Debug("no retailer profile, using generic", zap.String("host", host))
		return r.generic
	}

	r.logger.Debug("retailer profile matched",
		zap.String("host", host),
		zap.String("profile", r.profiles[best].Name),
	)
	return r.profiles[best]
}

// Profiles returns a copy of the configured profiles.
func (r *Registry) Profiles() []domain.RetailerProfile {
	out := make([]domain.RetailerProfile, len(r.profiles))
	copy(out, r.profiles)
	return out
}

// hostMatches treats matcher as a domain: equal, or a parent domain on a label boundary.
func hostMatches(host, matcher string) bool {
	if matcher == "" {
		return false
	}
	return host == matcher || strings.HasSuffix(host, "."+matcher)
}

// ExtractSKU applies the profile's SKU pattern to the URL. ok is false when the
// profile has no API config or the URL carries no SKU.
func ExtractSKU(profile domain.RetailerProfile, rawURL string) (string, bool) {
	if profile.API == nil || profile.API.SKUPattern == "" {
		return "", false
	}
	re, err := regexp.Compile(profile.API.SKUPattern)
	if err != nil {
		return "", false
	}
	m := re.FindStringSubmatch(rawURL)
	if len(m) < 2 || m[1] == "" {
		return "", false
	}
	return m[1], true
}

// APIEndpoint returns the product endpoint for sku.
func APIEndpoint(profile domain.RetailerProfile, sku string) string {
	return strings.ReplaceAll(profile.API.Endpoint, "{sku}", url.PathEscape(sku))
}

func validateProfile(p domain.RetailerProfile) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("retailer profile: name is required")
	}
	if len(p.HostMatchers) == 0 {
		return fmt.Errorf("retailer profile %q: at least one host is required", p.Name)
	}
	switch p.Mode {
	case "", domain.ModeHTML, domain.ModeRender:
	case domain.ModeAPI:
		if p.API == nil || p.API.Endpoint == "" {
			return fmt.Errorf("retailer profile %q: api mode requires api.endpoint", p.Name)
		}
		if !strings.Contains(p.API.Endpoint, "{sku}") {
			return fmt.Errorf("retailer profile %q: api.endpoint must contain {sku}", p.Name)
		}
		if _, err := regexp.Compile(p.API.SKUPattern); err != nil || p.API.SKUPattern == "" {
			return fmt.Errorf("retailer profile %q: invalid api.sku_pattern", p.Name)
		}
	default:
		return fmt.Errorf("retailer profile %q: unknown mode %q", p.Name, p.Mode)
	}
	if !KnownTransform(p.URLTransform) {
		return fmt.Errorf("retailer profile %q: unknown url_transform %q", p.Name, p.URLTransform)
	}
	return nil
}
