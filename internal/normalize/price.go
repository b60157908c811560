package normalize

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/notwins/backend/internal/domain"
)

// An amount: groups after the first are exactly three digits, so "59,95 45,95"
// stays two numbers while "1 299,00" and "1.234,56" stay one.
const (
	amountPattern       = `\d{1,3}(?:[.,' \x{00a0}\x{202f}]\d{3})+(?:[.,]\d{1,2})?|\d+(?:[.,]\d{1,2})?`
	currencyMarkPattern = `€|£|US\$|\$|¥|₺|zł|kr|CHF|EUR|USD|GBP`
)

var (
	numberRunRegex   = regexp.MustCompile(amountPattern)
	currencyRunRegex = regexp.MustCompile(`(?:` + currencyMarkPattern + `)[\s\x{00a0}]?(` + amountPattern + `)|(` +
		amountPattern + `)[\s\x{00a0}]?(?:` + currencyMarkPattern + `)`)
	twoDecimalRegex  = regexp.MustCompile(`\d+[,.]\d{2}$`)
	isoCurrencyRegex = regexp.MustCompile(`(?i)\b(EUR|USD|GBP|CHF|SEK|DKK|NOK|PLN|CZK|MXN|JPY|CAD|AUD|TRY)\b`)
)

// maxPlausiblePrice is the ceiling above which a value is assumed to be expressed in cents.
const maxPlausiblePrice = 10000

var currencySymbols = []struct {
	symbol string
	code   string
}{
	{"€", "EUR"},
	{"£", "GBP"},
	{"US$", "USD"},
	{"$", "USD"},
	{"¥", "JPY"},
	{"zł", "PLN"},
	{"kr", "SEK"},
	{"CHF", "CHF"},
	{"₺", "TRY"},
}

// ParsePrice extracts a numeric amount from retailer price text such as "1.234,56 €",
// "45,95€" or "$1,299.00". It reports false when no number can be read.
func ParsePrice(text string) (float64, bool) {
	run := amountRun(text)
	if run == "" {
		return 0, false
	}
	cleaned := strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", "'", "").Replace(run)

	value, err := strconv.ParseFloat(resolveSeparators(cleaned), 64)
	if err != nil {
		return 0, false
	}
	return sanitizeAmount(value)
}

// amountRun prefers an amount printed next to a currency mark over the first
// bare number, so sizes and counts in the same text are not read as the price.
func amountRun(text string) string {
	if m := currencyRunRegex.FindStringSubmatch(text); m != nil {
		if m[1] != "" {
			return m[1]
		}
		return m[2]
	}
	return numberRunRegex.FindString(text)
}

// PriceText returns the price-like part of text with its currency mark when it has
// one, or the first bare amount. It returns "" when text holds no number.
func PriceText(text string) string {
	if m := currencyRunRegex.FindString(text); m != "" {
		return m
	}
	return numberRunRegex.FindString(text)
}

// CurrencyPriceText returns the first amount printed with a currency mark, mark included.
func CurrencyPriceText(text string) string {
	return currencyRunRegex.FindString(text)
}

// resolveSeparators rewrites a digit string with "," and "." into Go float syntax.
func resolveSeparators(s string) string {
	if twoDecimalRegex.MatchString(s) {
		decimal := s[len(s)-3]
		other := ","
		if decimal == ',' {
			other = "."
		}
		s = strings.ReplaceAll(s, other, "")
		intPart := strings.ReplaceAll(s[:len(s)-3], string(decimal), "")
		return intPart + "." + s[len(s)-2:]
	}

	commas := strings.Count(s, ",")
	dots := strings.Count(s, ".")
	switch {
	case commas == 0 && dots == 0:
		return s
	case commas > 0 && dots > 0:
		// the separator appearing last is the decimal one
		last := strings.LastIndexAny(s, ",.")
		head := strings.NewReplacer(",", "", ".", "").Replace(s[:last])
		return head + "." + s[last+1:]
	}

	sep := ","
	count := commas
	if dots > 0 {
		sep = "."
		count = dots
	}
	if count > 1 {
		return strings.ReplaceAll(s, sep, "")
	}
	idx := strings.Index(s, sep)
	intPart, fracPart := s[:idx], s[idx+1:]
	if len(fracPart) == 3 && intPart != "0" {
		return intPart + fracPart
	}
	return intPart + "." + fracPart
}

// ParsePriceValue accepts the loosely typed price values found in JSON-LD and
// retailer APIs: numbers, numeric strings and formatted text.
func ParsePriceValue(v any) (float64, bool) {
	switch val := v.(type) {
	case nil:
		return 0, false
	case float64:
		return sanitizeAmount(val)
	case float32:
		return sanitizeAmount(float64(val))
	case int:
		return sanitizeAmount(float64(val))
	case int64:
		return sanitizeAmount(float64(val))
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return sanitizeAmount(f)
		}
		return ParsePrice(val.String())
	case string:
		return ParsePrice(val)
	default:
		return 0, false
	}
}

func sanitizeAmount(value float64) (float64, bool) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return 0, false
	}
	if value > maxPlausiblePrice {
		value /= 100
	}
	return math.Round(value*100) / 100, true
}

// DetectCurrency returns the ISO code named or symbolized in text, or "" when none is found.
func DetectCurrency(text string) string {
	if m := isoCurrencyRegex.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(m[1])
	}
	for _, c := range currencySymbols {
		if strings.Contains(text, c.symbol) {
			return c.code
		}
	}
	return ""
}

// PriceFromText builds a Price from raw text, falling back to defaultCurrency.
// It returns nil when the amount cannot be parsed.
func PriceFromText(text, defaultCurrency string) *domain.Price {
	amount, ok := ParsePrice(text)
	if !ok {
		return nil
	}
	currency := DetectCurrency(text)
	if currency == "" {
		currency = defaultCurrency
	}
	return &domain.Price{Amount: amount, Currency: currency}
}
