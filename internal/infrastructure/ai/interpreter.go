package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/notwins/backend/internal/domain"
)

// Operation labels used in logs and metrics.
const (
	OpInterpret  = "interpret_product"
	OpDuplicates = "adjudicate_duplicates"
	OpSimilarity = "score_similarity"
	OpAnalyzeImg = "analyze_image"
)

const (
	taxonomyHint = "category is \"clothes\" or \"accessories\"; subcategory is one of dresses, jumpsuits, skirts, jeans, " +
		"trousers, shorts, blazers, coats_jackets, knitwear, sweatshirts, tshirts_tops, shirts_blouses, suits, swimwear, " +
		"lingerie, sportswear, shoes, bags, jewelry, belts, hats, scarves, sunglasses, watches, hair_accessories or other"
	productFields = `{"name": string, "imageUrl": string, "price": string as printed including currency, ` +
		`"currency": ISO 4217 code, "color": string, "brand": string, "category": string, "subcategory": string, "description": string}`
	systemExtract = "You read fashion e-commerce pages and return product data as a single JSON object. " +
		"Use an empty string for any field you cannot find. Never invent image URLs."
	systemCompare = "You compare wardrobe items planned for the same event and answer with a single JSON object only."
	systemVision  = "You describe a single fashion item shown in a photo and return a single JSON object."
)

// chatter is the subset of Client the interpreter needs.
type chatter interface {
	Chat(ctx context.Context, operation string, messages []Message) (string, error)
	ChatVision(ctx context.Context, operation string, messages []Message) (string, error)
	Healthy(ctx context.Context) bool
}

// Interpreter adapts chat completions to domain.ProductInterpreter.
type Interpreter struct {
	client      chatter
	excerptSize int
	logger      *zap.Logger
}

// NewInterpreter wraps a chat client. excerptSize caps the HTML sent per request.
func NewInterpreter(client chatter, excerptSize int, logger *zap.Logger) *Interpreter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if excerptSize <= 0 {
		excerptSize = 1500
	}
	return &Interpreter{client: client, excerptSize: excerptSize, logger: logger.Named("interpreter")}
}

// Healthy reports whether the provider answered its last health probe.
func (i *Interpreter) Healthy(ctx context.Context) bool {
	return i.client.Healthy(ctx)
}

// InterpretProduct asks the model to read product fields out of an HTML excerpt.
func (i *Interpreter) InterpretProduct(ctx context.Context, pageURL, htmlExcerpt string, basic domain.BasicInfo) (*domain.ProductInterpretation, error) {
	known, _ := json.Marshal(basic)
	prompt := fmt.Sprintf(
		"Product page URL: %s\nFields already found (may be incomplete or wrong): %s\n\nHTML excerpt:\n%s\n\n"+
			"Return JSON shaped as %s. %s.",
		pageURL, known, truncateRunes(htmlExcerpt, i.excerptSize), productFields, taxonomyHint,
	)

	reply, err := i.client.Chat(ctx, OpInterpret, []Message{
		{Role: "system", Content: systemExtract},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, err
	}
	return parseInterpretation(reply)
}

// AnalyzeImage asks the vision model to describe the garment in a photo.
func (i *Interpreter) AnalyzeImage(ctx context.Context, image []byte, mimeType string) (*domain.ProductInterpretation, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	dataURI := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)
	prompt := fmt.Sprintf("Identify the main fashion item in this photo. Return JSON shaped as %s "+
		"with imageUrl and price left empty. %s.", productFields, taxonomyHint)

	reply, err := i.client.ChatVision(ctx, OpAnalyzeImg, []Message{
		{Role: "system", Content: systemVision},
		{Role: "user", Content: []ContentPart{
			{Type: "text", Text: prompt},
			{Type: "image_url", ImageURL: &ImageURL{URL: dataURI}},
		}},
	})
	if err != nil {
		return nil, err
	}
	return parseInterpretation(reply)
}

// AdjudicateDuplicates asks whether each candidate is the same garment as item.
func (i *Interpreter) AdjudicateDuplicates(ctx context.Context, item domain.WardrobeItem, candidates []domain.WardrobeItem) ([]domain.Verdict, error) {
	prompt := fmt.Sprintf(
		"New item:\n%s\n\nCandidates (0-based index):\n%s\n"+
			"For every candidate that could be the very same product (same model, same color, possibly another size) "+
			`add an element {"itemIndex": int, "confidence": number between 0 and 1, "isDuplicate": bool, "reason": short string}. `+
			`Reply {"verdicts": [...]}, with an empty array when none match.`,
		describeItem(item), describeCandidates(candidates),
	)
	return i.verdicts(ctx, OpDuplicates, prompt)
}

// ScoreSimilarity asks which candidates look alike without being the same product.
func (i *Interpreter) ScoreSimilarity(ctx context.Context, item domain.WardrobeItem, candidates []domain.WardrobeItem) ([]domain.Verdict, error) {
	prompt := fmt.Sprintf(
		"New item:\n%s\n\nCandidates (0-based index):\n%s\n"+
			"For every candidate that would look visually similar when worn at the same event (same type of garment, "+
			`close color or style) add an element {"itemIndex": int, "confidence": number between 0 and 1, "isSimilar": bool, "reason": short string}. `+
			`Reply {"verdicts": [...]}, with an empty array when none are similar.`,
		describeItem(item), describeCandidates(candidates),
	)
	return i.verdicts(ctx, OpSimilarity, prompt)
}

func (i *Interpreter) verdicts(ctx context.Context, operation, prompt string) ([]domain.Verdict, error) {
	reply, err := i.client.Chat(ctx, operation, []Message{
		{Role: "system", Content: systemCompare},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, err
	}
	verdicts, err := parseVerdicts(reply)
	if err != nil {
		i.logger.Warn("unparsable verdict reply", zap.String("operation", operation), zap.Error(err))
		return nil, err
	}
	return verdicts, nil
}

// rawInterpretation tolerates numbers where strings are expected.
type rawInterpretation struct {
	Name        any `json:"name"`
	ImageURL    any `json:"imageUrl"`
	Price       any `json:"price"`
	Currency    any `json:"currency"`
	Color       any `json:"color"`
	Brand       any `json:"brand"`
	Category    any `json:"category"`
	Subcategory any `json:"subcategory"`
	Description any `json:"description"`
}

func parseInterpretation(reply string) (*domain.ProductInterpretation, error) {
	raw, err := ExtractJSON(reply)
	if err != nil {
		return nil, err
	}
	var r rawInterpretation
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAIResponseInvalid, err)
	}
	out := &domain.ProductInterpretation{
		Name:        scalarString(r.Name),
		ImageURL:    scalarString(r.ImageURL),
		PriceText:   scalarString(r.Price),
		Currency:    strings.ToUpper(scalarString(r.Currency)),
		Color:       scalarString(r.Color),
		Brand:       scalarString(r.Brand),
		Category:    strings.ToLower(scalarString(r.Category)),
		Subcategory: strings.ToLower(scalarString(r.Subcategory)),
		Description: scalarString(r.Description),
	}
	if out.Name == "" && out.Color == "" && out.Category == "" && out.Brand == "" {
		return nil, fmt.Errorf("%w: reply carries no product fields", domain.ErrAIResponseInvalid)
	}
	return out, nil
}

type rawVerdict struct {
	ItemIndex   any    `json:"itemIndex"`
	Confidence  any    `json:"confidence"`
	IsDuplicate any    `json:"isDuplicate"`
	IsSimilar   any    `json:"isSimilar"`
	Reason      string `json:"reason"`
}

// parseVerdicts accepts a bare array or an object wrapping one (e.g. {"matches": [...]}).
// Entries without a usable index or confidence are dropped.
func parseVerdicts(reply string) ([]domain.Verdict, error) {
	raw, err := ExtractJSON(reply)
	if err != nil {
		return nil, err
	}

	var list []rawVerdict
	if strings.HasPrefix(raw, "{") {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal([]byte(raw), &wrapper); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrAIResponseInvalid, err)
		}
		found := false
		for _, v := range wrapper {
			if !strings.HasPrefix(strings.TrimSpace(string(v)), "[") {
				continue
			}
			if err := json.Unmarshal(v, &list); err == nil {
				found = true
				break
			}
		}
		if !found {
			// a single verdict object
			var single rawVerdict
			if err := json.Unmarshal([]byte(raw), &single); err != nil || single.ItemIndex == nil {
				return nil, fmt.Errorf("%w: no verdict array in reply", domain.ErrAIResponseInvalid)
			}
			list = []rawVerdict{single}
		}
	} else if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAIResponseInvalid, err)
	}

	verdicts := make([]domain.Verdict, 0, len(list))
	for _, rv := range list {
		idx, ok := scalarFloat(rv.ItemIndex)
		if !ok {
			continue
		}
		conf, ok := scalarFloat(rv.Confidence)
		if !ok {
			continue
		}
		verdicts = append(verdicts, domain.Verdict{
			ItemIndex:   int(idx),
			Confidence:  conf,
			IsDuplicate: scalarBool(rv.IsDuplicate),
			IsSimilar:   scalarBool(rv.IsSimilar),
			Reason:      strings.TrimSpace(rv.Reason),
		})
	}
	return verdicts, nil
}

func describeItem(item domain.WardrobeItem) string {
	return fmt.Sprintf("name=%q brand=%q color=%q category=%q subcategory=%q description=%q",
		item.Name, item.Brand, item.Color, item.Category, item.Subcategory, truncateRunes(item.Description, 200))
}

func describeCandidates(candidates []domain.WardrobeItem) string {
	var b strings.Builder
	for idx, c := range candidates {
		fmt.Fprintf(&b, "[%d] %s\n", idx, describeItem(c))
	}
	return b.String()
}

func scalarString(v any) string {
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		if strings.EqualFold(s, "null") || strings.EqualFold(s, "unknown") || s == "N/A" {
			return ""
		}
		return s
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}

func scalarFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(val), "%"), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func scalarBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(val))
		return b
	default:
		return false
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
