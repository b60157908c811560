package usecase

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/notwins/backend/internal/domain"
	"github.com/notwins/backend/internal/normalize"
	"github.com/notwins/backend/internal/retailer"
)

var (
	nonProductImageRegex = regexp.MustCompile(`(?i)(logo|icon|sprite|placeholder|spinner|pixel|tracking|badge|flag|avatar|loader|\.svg|\.gif)`)
	titleSeparatorRegex  = regexp.MustCompile(`\s+[|\-–—]\s+`)
)

// Meta tag names per field, most specific first.
var (
	metaName        = []string{"og:title", "twitter:title", "product:title"}
	metaImage       = []string{"og:image:secure_url", "og:image", "twitter:image", "twitter:image:src"}
	metaPrice       = []string{"product:price:amount", "og:price:amount", "product:sale_price:amount"}
	metaCurrency    = []string{"product:price:currency", "og:price:currency", "product:sale_price:currency"}
	metaBrand       = []string{"product:brand", "og:brand", "brand"}
	metaColor       = []string{"product:color", "og:color"}
	metaDescription = []string{"og:description", "twitter:description", "description"}
)

// htmlDoc is a parsed page together with the URL relative links resolve against.
type htmlDoc struct {
	doc  *goquery.Document
	base *url.URL
}

func parseHTML(html, pageURL string) (*htmlDoc, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	base, _ := url.Parse(pageURL)
	return &htmlDoc{doc: doc, base: base}, nil
}

// resolve turns a relative or protocol-relative link into an absolute https/http URL.
func (h *htmlDoc) resolve(link string) string {
	return resolveURL(h.base, link)
}

func resolveURL(base *url.URL, link string) string {
	link = strings.TrimSpace(link)
	if link == "" || strings.HasPrefix(link, "data:") {
		return ""
	}
	if strings.HasPrefix(link, "//") {
		return "https:" + link
	}
	ref, err := url.Parse(link)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	if base == nil || !base.IsAbs() {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// extractStructured reads JSON-LD Product blocks first, then fills gaps from
// OpenGraph, Twitter and product meta tags.
func extractStructured(h *htmlDoc) *candidate {
	c := &candidate{}
	if products := jsonLDProducts(h.doc); len(products) > 0 {
		c = productFromJSONLD(products[0])
		c.ImageURL = h.resolve(c.ImageURL)
	}

	c.fillFrom(&candidate{
		Name:        metaContent(h.doc, metaName...),
		ImageURL:    h.resolve(metaContent(h.doc, metaImage...)),
		Price:       metaContent(h.doc, metaPrice...),
		Currency:    metaContent(h.doc, metaCurrency...),
		Brand:       metaContent(h.doc, metaBrand...),
		Color:       metaContent(h.doc, metaColor...),
		Description: metaContent(h.doc, metaDescription...),
	})
	return c
}

func metaContent(doc *goquery.Document, keys ...string) string {
	for _, key := range keys {
		sel := fmt.Sprintf(`meta[property=%q], meta[name=%q], meta[itemprop=%q]`, key, key, key)
		if v := normalize.CleanText(doc.Find(sel).First().AttrOr("content", "")); v != "" {
			return v
		}
	}
	return ""
}

func jsonLDProducts(doc *goquery.Document) []map[string]any {
	var products []map[string]any
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(s.Text())))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return
		}
		collectProducts(v, &products)
	})
	return products
}

func collectProducts(v any, out *[]map[string]any) {
	switch node := v.(type) {
	case []any:
		for _, item := range node {
			collectProducts(item, out)
		}
	case map[string]any:
		if hasLDType(node["@type"], "Product", "ProductGroup", "IndividualProduct") {
			*out = append(*out, node)
		}
		if graph, ok := node["@graph"]; ok {
			collectProducts(graph, out)
		}
		if main, ok := node["mainEntity"]; ok {
			collectProducts(main, out)
		}
	}
}

func hasLDType(v any, names ...string) bool {
	switch t := v.(type) {
	case string:
		for _, name := range names {
			if strings.EqualFold(strings.TrimPrefix(t, "http://schema.org/"), name) ||
				strings.EqualFold(strings.TrimPrefix(t, "https://schema.org/"), name) {
				return true
			}
		}
	case []any:
		for _, item := range t {
			if hasLDType(item, names...) {
				return true
			}
		}
	}
	return false
}

func productFromJSONLD(node map[string]any) *candidate {
	c := &candidate{
		Name:        ldString(node["name"]),
		ImageURL:    ldImage(node["image"]),
		Brand:       ldString(node["brand"]),
		Color:       ldString(node["color"]),
		Description: ldString(node["description"]),
	}
	c.Price, c.Currency = ldOffer(node["offers"])

	// product groups keep price and image on their variants
	if variants, ok := node["hasVariant"].([]any); ok && len(variants) > 0 {
		if first, ok := variants[0].(map[string]any); ok {
			variant := productFromJSONLD(first)
			variant.Name = ""
			c.fillFrom(variant)
		}
	}
	return c
}

// ldString reads a JSON-LD value that may be a string, a number, an object with a
// name, or a list of any of those.
func ldString(v any) string {
	switch val := v.(type) {
	case string:
		return normalize.CleanText(val)
	case json.Number:
		return val.String()
	case map[string]any:
		return ldString(val["name"])
	case []any:
		for _, item := range val {
			if s := ldString(item); s != "" {
				return s
			}
		}
	}
	return ""
}

func ldImage(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case map[string]any:
		if s := ldImage(val["url"]); s != "" {
			return s
		}
		return ldImage(val["contentUrl"])
	case []any:
		for _, item := range val {
			if s := ldImage(item); s != "" {
				return s
			}
		}
	}
	return ""
}

func ldOffer(v any) (any, string) {
	switch val := v.(type) {
	case []any:
		for _, item := range val {
			if price, currency := ldOffer(item); !isEmptyPrice(price) {
				return price, currency
			}
		}
	case map[string]any:
		currency := ldString(val["priceCurrency"])
		for _, key := range []string{"price", "lowPrice"} {
			if price, ok := val[key]; ok && !isEmptyPrice(price) {
				return price, currency
			}
		}
		if spec, ok := val["priceSpecification"]; ok {
			price, specCurrency := ldOffer(spec)
			if currency == "" {
				currency = specCurrency
			}
			return price, currency
		}
		if nested, ok := val["offers"]; ok {
			return ldOffer(nested)
		}
	}
	return nil, ""
}

// extractSelectors applies a selector set; the first selector yielding a value wins per field.
func extractSelectors(h *htmlDoc, set domain.SelectorSet) *candidate {
	c := &candidate{
		Name:        firstText(h.doc, set.Name),
		ImageURL:    h.resolve(firstImage(h.doc, set.Image)),
		Color:       firstText(h.doc, set.Color),
		Brand:       firstText(h.doc, set.Brand),
		Description: firstText(h.doc, set.Description),
	}
	if price := firstPrice(h.doc, set.Price); price != "" {
		c.Price = price
	}
	return c
}

// extractGeneric runs the retailer-agnostic selectors and falls back to page
// heuristics: the document title, the largest non-logo image, the first price-like text.
func extractGeneric(h *htmlDoc) *candidate {
	c := extractSelectors(h, retailer.GenericSelectors())
	if c.Name == "" {
		c.Name = titleName(h.doc)
	}
	if c.ImageURL == "" {
		c.ImageURL = h.resolve(largestImage(h.doc))
	}
	if isEmptyPrice(c.Price) {
		if price := firstCurrencyText(h.doc); price != "" {
			c.Price = price
		}
	}
	return c
}

func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		var value string
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if content, ok := s.Attr("content"); ok && strings.TrimSpace(content) != "" {
				value = normalize.CleanText(content)
			} else {
				value = normalize.CleanText(s.Text())
			}
			return value == ""
		})
		if value != "" {
			return value
		}
	}
	return ""
}

func firstPrice(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		var value string
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := s.AttrOr("content", "")
			if strings.TrimSpace(text) == "" {
				text = s.Text()
			}
			text = normalize.CleanText(text)
			value = normalize.PriceText(text)
			return value == ""
		})
		if value != "" {
			return value
		}
	}
	return ""
}

func firstImage(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		var value string
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			value = imageSource(s)
			if value == "" && !s.Is("img, source, meta, link") {
				value = imageSource(s.Find("img").First())
			}
			return value == ""
		})
		if value != "" {
			return value
		}
	}
	return ""
}

// imageSource reads the URL an element points at, including lazy-loading attributes.
func imageSource(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	for _, attr := range []string{"content", "src", "data-src", "data-original", "data-lazy-src", "data-zoom-image", "href"} {
		if v := strings.TrimSpace(s.AttrOr(attr, "")); v != "" && !strings.HasPrefix(v, "data:") {
			return v
		}
	}
	for _, attr := range []string{"srcset", "data-srcset"} {
		if v := firstSrcsetURL(s.AttrOr(attr, "")); v != "" {
			return v
		}
	}
	return ""
}

func firstSrcsetURL(srcset string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(srcset), ",")
	fields := strings.Fields(first)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "data:") {
		return ""
	}
	return fields[0]
}

func largestImage(doc *goquery.Document) string {
	best, bestArea := "", -1
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src := imageSource(s)
		if src == "" || nonProductImageRegex.MatchString(src) ||
			nonProductImageRegex.MatchString(s.AttrOr("class", "")+" "+s.AttrOr("alt", "")) {
			return
		}
		width, _ := strconv.Atoi(strings.TrimSuffix(s.AttrOr("width", ""), "px"))
		height, _ := strconv.Atoi(strings.TrimSuffix(s.AttrOr("height", ""), "px"))
		if area := width * height; area > bestArea {
			best, bestArea = src, area
		}
	})
	return best
}

func firstCurrencyText(doc *goquery.Document) string {
	var value string
	doc.Find("body *").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Children().Length() > 0 || s.Is("script, style, noscript") {
			return true
		}
		value = normalize.CurrencyPriceText(normalize.CleanText(s.Text()))
		return value == ""
	})
	return value
}

func titleName(doc *goquery.Document) string {
	title := normalize.CleanText(doc.Find("title").First().Text())
	if title == "" {
		return ""
	}
	return strings.TrimSpace(titleSeparatorRegex.Split(title, 2)[0])
}

// htmlExcerpt condenses a page into the lines a model needs: title, meta tags,
// candidate images and visible text, capped at limit runes.
func htmlExcerpt(html, pageURL string, limit int) string {
	h, err := parseHTML(html, pageURL)
	if err != nil {
		return truncateRunes(html, limit)
	}

	var lines []string
	if title := normalize.CleanText(h.doc.Find("title").First().Text()); title != "" {
		lines = append(lines, "title: "+title)
	}
	h.doc.Find("meta[property], meta[name]").Each(func(_ int, s *goquery.Selection) {
		key := s.AttrOr("property", s.AttrOr("name", ""))
		content := normalize.CleanText(s.AttrOr("content", ""))
		if content == "" {
			return
		}
		if strings.HasPrefix(key, "og:") || strings.HasPrefix(key, "product:") ||
			strings.HasPrefix(key, "twitter:") || key == "description" {
			lines = append(lines, key+": "+content)
		}
	})
	images := 0
	h.doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if src := h.resolve(imageSource(s)); src != "" && !nonProductImageRegex.MatchString(src) {
			lines = append(lines, "image: "+src+" "+normalize.CleanText(s.AttrOr("alt", "")))
			images++
		}
		return images < 8
	})

	body := h.doc.Find("body").Clone()
	body.Find("script, style, noscript, svg, iframe, template").Remove()
	if text := normalize.CleanText(body.Text()); text != "" {
		lines = append(lines, "text: "+text)
	}
	return truncateRunes(strings.Join(lines, "\n"), limit)
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
