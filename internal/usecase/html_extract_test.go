package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notwins/backend/internal/domain"
)

func mustParse(t *testing.T, html string) *htmlDoc {
	t.Helper()
	h, err := parseHTML(html, "https://shop.example.com/es/p/123")
	require.NoError(t, err)
	return h
}

func TestExtractStructured_ProductGroupVariants(t *testing.T) {
	h := mustParse(t, `<script type="application/ld+json">
{"@type":"ProductGroup","name":"Pantalón wide leg","brand":"Mango",
 "hasVariant":[{"@type":"Product","name":"Pantalón wide leg - 38","image":{"url":"https://cdn/p.jpg"},
   "offers":{"@type":"Offer","priceSpecification":{"price":49.99,"priceCurrency":"EUR"}}}]}
</script>`)

	c := extractStructured(h)
	assert.Equal(t, "Pantalón wide leg", c.Name)
	assert.Equal(t, "https://cdn/p.jpg", c.ImageURL)
	assert.Equal(t, "Mango", c.Brand)
	assert.Equal(t, "EUR", c.Currency)
	assert.Equal(t, "49.99", priceString(c.Price))
}

func TestExtractStructured_BrokenJSONLDFallsBackToMeta(t *testing.T) {
	h := mustParse(t, `<head>
<script type="application/ld+json">{"@type": "Product", "name": </script>
<meta name="twitter:title" content="Top lencero">
<meta name="twitter:image" content="//cdn.example.com/top.jpg">
<meta property="og:price:amount" content="19.99">
<meta property="og:price:currency" content="EUR">
</head>`)

	c := extractStructured(h)
	assert.True(t, c.valid())
	assert.Equal(t, "Top lencero", c.Name)
	assert.Equal(t, "https://cdn.example.com/top.jpg", c.ImageURL)
	assert.Equal(t, "19.99", c.Price)
	assert.Equal(t, "EUR", c.Currency)
}

func TestExtractSelectors_LazyImagesAndContentAttributes(t *testing.T) {
	h := mustParse(t, `<body>
<h1 class="title">  Abrigo   largo </h1>
<span itemprop="price" content="129.00">129,00 €</span>
<div class="gallery"><img src="data:image/gif;base64,R0lGOD" data-src="/img/abrigo.jpg"></div>
<picture><img srcset="/img/a-400.jpg 400w, /img/a-800.jpg 800w"></picture>
</body>`)

	c := extractSelectors(h, domain.SelectorSet{
		Name:  []string{".missing", "h1.title"},
		Price: []string{`[itemprop="price"]`},
		Image: []string{".gallery"},
	})
	assert.Equal(t, "Abrigo largo", c.Name)
	assert.Equal(t, "129.00", c.Price)
	assert.Equal(t, "https://shop.example.com/img/abrigo.jpg", c.ImageURL)

	c = extractSelectors(h, domain.SelectorSet{Image: []string{"picture img"}})
	assert.Equal(t, "https://shop.example.com/img/a-400.jpg", c.ImageURL)
}

func TestExtractSelectors_InvalidSelectorIsIgnored(t *testing.T) {
	h := mustParse(t, `<h1>Bolso</h1>`)
	c := extractSelectors(h, domain.SelectorSet{Name: []string{"h1[", "h1"}})
	assert.Equal(t, "Bolso", c.Name)
}

func TestResolveURL(t *testing.T) {
	h := mustParse(t, "")
	assert.Equal(t, "https://cdn.example.com/a.jpg", h.resolve("//cdn.example.com/a.jpg"))
	assert.Equal(t, "https://shop.example.com/img/a.jpg", h.resolve("/img/a.jpg"))
	assert.Equal(t, "https://shop.example.com/es/p/a.jpg", h.resolve("a.jpg"))
	assert.Equal(t, "http://other.example/a.jpg", h.resolve("http://other.example/a.jpg"))
	assert.Empty(t, h.resolve("data:image/png;base64,AAAA"))
	assert.Empty(t, h.resolve("  "))
	assert.Empty(t, resolveURL(nil, "/relative.jpg"))
}

func TestTitleName(t *testing.T) {
	for title, want := range map[string]string{
		"Vestido midi | Zara España": "Vestido midi",
		"Blusa satinada - Mango":     "Blusa satinada",
		"T-shirt basique":            "T-shirt basique",
		"Chaqueta — Tienda Online":   "Chaqueta",
	} {
		h := mustParse(t, "<title>"+title+"</title>")
		assert.Equal(t, want, titleName(h.doc), title)
	}
}

func TestHTMLExcerpt(t *testing.T) {
	html := `<html><head><title>Sandalias</title>
<meta property="og:image" content="https://cdn/s.jpg">
<meta name="viewport" content="width=device-width">
<script>var tracking = "secret";</script><style>.a{}</style></head>
<body><img src="/logo.svg"><img src="/img/sandalia.jpg" alt="Sandalia piel">
<p>Sandalias de tacón en piel.</p></body></html>`

	excerpt := htmlExcerpt(html, "https://shop.example.com/p", 1500)
	assert.Contains(t, excerpt, "title: Sandalias")
	assert.Contains(t, excerpt, "og:image: https://cdn/s.jpg")
	assert.Contains(t, excerpt, "image: https://shop.example.com/img/sandalia.jpg Sandalia piel")
	assert.Contains(t, excerpt, "Sandalias de tacón en piel.")
	assert.NotContains(t, excerpt, "secret")
	assert.NotContains(t, excerpt, "viewport")
	assert.NotContains(t, excerpt, "logo.svg")

	assert.Len(t, []rune(htmlExcerpt(html, "https://shop.example.com/p", 10)), 10)
}

func TestCandidateFillFrom(t *testing.T) {
	c := &candidate{Name: "Falda", Price: ""}
	c.fillFrom(&candidate{Name: "Other", ImageURL: "https://x/y.jpg", Price: "12,00"})
	assert.Equal(t, "Falda", c.Name)
	assert.Equal(t, "https://x/y.jpg", c.ImageURL)
	assert.Equal(t, "12,00", c.Price)
	assert.True(t, c.valid())
}
