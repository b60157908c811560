package retailer

import "github.com/notwins/backend/internal/domain"

// GenericProfileName is the name carried by the fallback profile.
const GenericProfileName = "generic"

// genericSelectors is the broad retailer-agnostic selector set used when no
// profile matches, and by the generic-selector strategy for every page.
var genericSelectors = domain.SelectorSet{
	Name: []string{
		`h1[itemprop="name"]`, `[itemprop="name"]`, `[data-testid="product-name"]`, `[data-testid="product-title"]`,
		`.product-name`, `.product-title`, `.product__title`, `.product-detail-name`, `.pdp-title`, `h1`,
	},
	Price: []string{
		`[itemprop="price"]`, `[data-testid="product-price"]`, `[data-testid="price"]`, `.price-current`,
		`.current-price`, `.product-price`, `.price__current`, `.sale-price`, `.price`, `[class*="price"]`,
	},
	Color: []string{
		`[itemprop="color"]`, `[data-testid="product-color"]`, `.product-color`, `.color-name`,
		`.selected-color`, `.product-detail-color`, `[class*="color-name"]`,
	},
	Image: []string{
		`[itemprop="image"]`, `.product-image img`, `.product__media img`, `.product-gallery img`,
		`.pdp-image img`, `picture img`,
	},
	Brand: []string{
		`[itemprop="brand"] [itemprop="name"]`, `[itemprop="brand"]`, `[data-testid="product-brand"]`,
		`.product-brand`, `.brand-name`, `.brand`,
	},
	Description: []string{
		`[itemprop="description"]`, `[data-testid="product-description"]`, `.product-description`,
		`.product-detail-description`, `.description`,
	},
}

// GenericSelectors returns the retailer-agnostic selector set.
func GenericSelectors() domain.SelectorSet {
	return genericSelectors
}

func genericProfile() domain.RetailerProfile {
	return domain.RetailerProfile{
		Name:      GenericProfileName,
		Selectors: genericSelectors,
		Mode:      domain.ModeHTML,
		Generic:   true,
	}
}

var spanishLocale = map[string]string{"Accept-Language": "es-ES,es;q=0.9,en;q=0.8"}

// builtinProfiles are the retailers the service knows out of the box. A profiles
// file may replace any of them by name or add new ones.
func builtinProfiles() []domain.RetailerProfile {
	return []domain.RetailerProfile{
		{
			Name:         "zara",
			HostMatchers: []string{"zara.com"},
			Selectors: domain.SelectorSet{
				Name:        []string{`h1.product-detail-info__header-name`, `.product-detail-info__name`},
				Price:       []string{`.price-current__amount`, `.money-amount__main`},
				Color:       []string{`.product-color-extended-name`, `.product-detail-color-selector__selected-color-name`},
				Image:       []string{`.media-image__image`, `picture.media-image img`},
				Description: []string{`.expandable-text__inner-content`, `.product-detail-description`},
			},
			Headers:         spanishLocale,
			DefaultBrand:    "Zara",
			DefaultCurrency: "EUR",
			Mode:            domain.ModeAPI,
			API: &domain.APIConfig{
				SKUPattern: `-p(\d{8})\.html`,
				Endpoint:   "https://www.zara.com/es/es/products-details?productIds={sku}&ajax=true",
				Fields: map[string]string{
					"name":        "0.name",
					"price_cents": "0.detail.colors.0.price",
					"color":       "0.detail.colors.0.name",
					"image":       "0.detail.colors.0.xmedia.0.url",
					"description": "0.detail.colors.0.description",
				},
			},
		},
		{
			Name:         "mango",
			HostMatchers: []string{"mango.com", "shop.mango.com"},
			Selectors: domain.SelectorSet{
				Name:        []string{`h1.product-name`, `[class*="ProductDetail_title"]`},
				Price:       []string{`.product-sale`, `[class*="SinglePrice_finalPrice"]`, `[class*="price"]`},
				Color:       []string{`.colors-info-name`, `[class*="ColorsSelector_label"]`},
				Image:       []string{`.image-js`, `[class*="ImageGrid"] img`},
				Description: []string{`.product-info-text`, `[class*="Description_description"]`},
			},
			Headers:         spanishLocale,
			DefaultBrand:    "Mango",
			DefaultCurrency: "EUR",
			Mode:            domain.ModeHTML,
		},
		{
			Name:         "hm",
			HostMatchers: []string{"hm.com", "www2.hm.com"},
			Selectors: domain.SelectorSet{
				Name:        []string{`h1.primary.product-item-headline`, `h1[class*="ProductName"]`},
				Price:       []string{`.price-value`, `[data-testid="price"]`, `#product-price`},
				Color:       []string{`.product-input-label`, `[data-testid="color-selector"] h3`},
				Image:       []string{`.product-detail-main-image-container img`, `[data-testid="grid-gallery"] img`},
				Description: []string{`#section-descriptionAccordion p`, `.pdp-description-text`},
			},
			DefaultBrand:    "H&M",
			DefaultCurrency: "EUR",
			URLTransform:    TransformStripQuery,
			Mode:            domain.ModeHTML,
		},
		inditexHTMLProfile("massimodutti", "Massimo Dutti", "massimodutti.com"),
		inditexHTMLProfile("bershka", "Bershka", "bershka.com"),
		inditexHTMLProfile("pullandbear", "Pull&Bear", "pullandbear.com"),
		inditexHTMLProfile("stradivarius", "Stradivarius", "stradivarius.com"),
		{
			Name:         "asos",
			HostMatchers: []string{"asos.com"},
			Selectors: domain.SelectorSet{
				Name:        []string{`h1[class*="productName"]`, `#pdp-react-critical-app h1`},
				Price:       []string{`[data-testid="current-price"]`, `[data-testid="product-price"]`},
				Color:       []string{`[data-testid="colour-label"]`, `.product-colour`},
				Image:       []string{`img[data-testid="image"]`, `.gallery-image`},
				Brand:       []string{`[data-testid="brand-name"]`},
				Description: []string{`#productDescriptionDetails`, `[data-testid="productDescriptionDetails"]`},
			},
			URLTransform: TransformStripQuery,
			Mode:         domain.ModeHTML,
		},
		{
			Name:         "elcorteingles",
			HostMatchers: []string{"elcorteingles.es"},
			Selectors: domain.SelectorSet{
				Name:        []string{`.product_detail-title`, `h1.pdp-title`},
				Price:       []string{`.price._big`, `.product_detail-price`, `.price-sale`},
				Color:       []string{`.color-name`, `.product_detail-color`},
				Image:       []string{`.product_detail-image img`, `.js-zoom-to-modal-image`},
				Brand:       []string{`.product_detail-brand`, `.brand-name`},
				Description: []string{`.product_detail-description`, `.product-description`},
			},
			Headers:         spanishLocale,
			DefaultCurrency: "EUR",
			URLTransform:    TransformDesktopHost,
			Mode:            domain.ModeHTML,
		},
		{
			Name:         "zalando",
			HostMatchers: []string{"zalando.es", "zalando.com", "zalando.de", "zalando.fr", "zalando.it", "zalando.co.uk"},
			Selectors: domain.SelectorSet{
				Name:  []string{`h1 span`, `[data-testid="pdp-product-name"]`},
				Price: []string{`[data-testid="pdp-price"]`, `p[class*="sDq_FX"]`},
				Color: []string{`[data-testid="pdp-color-name"]`, `p[class*="color"]`},
				Image: []string{`[data-testid="pdp-gallery-image"] img`, `img[class*="gallery"]`},
				Brand: []string{`h3[class*="brand"]`, `[data-testid="pdp-brand-name"]`},
			},
			URLTransform: TransformDesktopHost,
			Mode:         domain.ModeRender,
		},
		{
			Name:         "uniqlo",
			HostMatchers: []string{"uniqlo.com"},
			Selectors: domain.SelectorSet{
				Name:        []string{`h1.fr-head`, `[data-testid="ITOTypography"] h1`, `.product-name`},
				Price:       []string{`.fr-price-currency`, `[class*="price-amount"]`},
				Color:       []string{`.fr-chip-label-selected`, `[class*="color-picker"] [aria-checked="true"]`},
				Image:       []string{`.fr-carousel img`, `.media-gallery img`},
				Description: []string{`.fr-accordion-content`, `.product-description`},
			},
			DefaultBrand:    "Uniqlo",
			DefaultCurrency: "EUR",
			Mode:            domain.ModeHTML,
		},
	}
}

// inditexHTMLProfile covers the group sites that share one storefront template.
func inditexHTMLProfile(name, brand, host string) domain.RetailerProfile {
	return domain.RetailerProfile{
		Name:         name,
		HostMatchers: []string{host},
		Selectors: domain.SelectorSet{
			Name:        []string{`h1.product-name`, `.product-detail-info h1`, `h1[class*="product-title"]`},
			Price:       []string{`.current-price-elem`, `.product-price .current`, `[class*="price-current"]`},
			Color:       []string{`.product-color-name`, `.color-name`, `[class*="selected-color"]`},
			Image:       []string{`.product-image img`, `.image-item img`, `[class*="product-media"] img`},
			Description: []string{`.product-description`, `[class*="description-text"]`},
		},
		Headers:         spanishLocale,
		DefaultBrand:    brand,
		DefaultCurrency: "EUR",
		Mode:            domain.ModeHTML,
	}
}
