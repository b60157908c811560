package retailer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notwins/backend/internal/domain"
)

const profilesYAML = `
retailers:
  - name: boutique
    hosts: [boutique.example.com]
    default_brand: Boutique
    default_currency: EUR
    url_transform: strip-query
    headers:
      Accept-Language: fr-FR
    selectors:
      name: [".pdp h1"]
      price: [".pdp .price"]
      image: [".pdp img.main"]
  - name: apishop
    hosts: [apishop.example.com]
    mode: api
    api:
      sku_pattern: '/p/(\d+)'
      endpoint: https://apishop.example.com/api/products/{sku}
      fields:
        name: product.title
        price: product.price.value
        image: product.images.0
`

func TestParseProfiles(t *testing.T) {
	profiles, err := ParseProfiles([]byte(profilesYAML))
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	boutique := profiles[0]
	assert.Equal(t, "boutique", boutique.Name)
	assert.Equal(t, []string{"boutique.example.com"}, boutique.HostMatchers)
	assert.Equal(t, "Boutique", boutique.DefaultBrand)
	assert.Equal(t, TransformStripQuery, boutique.URLTransform)
	assert.Equal(t, "fr-FR", boutique.Headers["Accept-Language"])
	assert.Equal(t, []string{".pdp h1"}, boutique.Selectors.Name)
	assert.False(t, boutique.Generic)

	apishop := profiles[1]
	assert.Equal(t, domain.ModeAPI, apishop.Mode)
	require.NotNil(t, apishop.API)
	assert.Equal(t, "product.images.0", apishop.API.Fields["image"])
}

func TestParseProfiles_Invalid(t *testing.T) {
	_, err := ParseProfiles([]byte("retailers: [{name: x}]"))
	assert.Error(t, err)

	_, err = ParseProfiles([]byte("retailers: {"))
	assert.Error(t, err)
}

func TestLoadProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retailers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(profilesYAML), 0o600))

	profiles, err := LoadProfiles(path)
	require.NoError(t, err)
	assert.Len(t, profiles, 2)

	_, err = LoadProfiles(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
