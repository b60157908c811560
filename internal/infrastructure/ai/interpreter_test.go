package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/notwins/backend/internal/domain"
)

// fakeChatter records prompts and replies with a canned answer.
type fakeChatter struct {
	reply    string
	err      error
	healthy  bool
	messages []Message
	vision   bool
}

func (f *fakeChatter) Chat(ctx context.Context, operation string, messages []Message) (string, error) {
	f.messages = messages
	return f.reply, f.err
}

func (f *fakeChatter) ChatVision(ctx context.Context, operation string, messages []Message) (string, error) {
	f.vision = true
	f.messages = messages
	return f.reply, f.err
}

func (f *fakeChatter) Healthy(ctx context.Context) bool {
	return f.healthy
}

func TestInterpreter_InterpretProduct(t *testing.T) {
	chat := &fakeChatter{reply: "```json\n" + `{"name":"Vestido midi","imageUrl":"https://cdn/x.jpg","price":45.95,` +
		`"currency":"eur","color":"negro","brand":"Zara","category":"Clothes","subcategory":"Dresses","description":null}` + "\n```"}
	interp := NewInterpreter(chat, 20, zap.NewNop())

	got, err := interp.InterpretProduct(context.Background(), "https://a.com/p", strings.Repeat("x", 100), domain.BasicInfo{Name: "Vestido"})
	require.NoError(t, err)

	assert.Equal(t, "Vestido midi", got.Name)
	assert.Equal(t, "https://cdn/x.jpg", got.ImageURL)
	assert.Equal(t, "45.95", got.PriceText)
	assert.Equal(t, "EUR", got.Currency)
	assert.Equal(t, "clothes", got.Category)
	assert.Equal(t, "dresses", got.Subcategory)
	assert.Empty(t, got.Description)

	prompt := chat.messages[1].Content.(string)
	assert.Contains(t, prompt, strings.Repeat("x", 20))
	assert.NotContains(t, prompt, strings.Repeat("x", 21), "excerpt is truncated")
	assert.Contains(t, prompt, `"name":"Vestido"`)
}

func TestInterpreter_InterpretProduct_Invalid(t *testing.T) {
	for _, reply := range []string{"I could not find anything", `{"foo":"bar"}`} {
		interp := NewInterpreter(&fakeChatter{reply: reply}, 0, nil)
		_, err := interp.InterpretProduct(context.Background(), "https://a.com", "<html>", domain.BasicInfo{})
		assert.ErrorIs(t, err, domain.ErrAIResponseInvalid, "reply %q", reply)
	}
}

func TestInterpreter_PropagatesProviderErrors(t *testing.T) {
	interp := NewInterpreter(&fakeChatter{err: domain.ErrProviderUnavailable}, 0, nil)

	_, err := interp.AdjudicateDuplicates(context.Background(), domain.WardrobeItem{}, []domain.WardrobeItem{{}})
	assert.True(t, errors.Is(err, domain.ErrProviderUnavailable))
}

func TestInterpreter_AdjudicateDuplicates(t *testing.T) {
	chat := &fakeChatter{reply: `{"verdicts":[{"itemIndex":1,"confidence":0.92,"isDuplicate":true,"reason":"same dress"},` +
		`{"itemIndex":"0","confidence":"75","isDuplicate":"true"},{"confidence":0.5}]}`}
	interp := NewInterpreter(chat, 0, nil)

	item := domain.WardrobeItem{Name: "Vestido", Brand: "Zara", Color: "Black"}
	got, err := interp.AdjudicateDuplicates(context.Background(), item, []domain.WardrobeItem{{Name: "A"}, {Name: "B"}})
	require.NoError(t, err)
	require.Len(t, got, 2, "entries without an index are dropped")

	assert.Equal(t, 1, got[0].ItemIndex)
	assert.InDelta(t, 0.92, got[0].Confidence, 0.0001)
	assert.True(t, got[0].IsDuplicate)
	assert.Equal(t, "same dress", got[0].Reason)

	// stringly typed values are coerced; percent scaling is left to the caller
	assert.Equal(t, 0, got[1].ItemIndex)
	assert.InDelta(t, 75, got[1].Confidence, 0.0001)
	assert.True(t, got[1].IsDuplicate)

	prompt := chat.messages[1].Content.(string)
	assert.Contains(t, prompt, `[0] name="A"`)
	assert.Contains(t, prompt, `[1] name="B"`)
}

func TestParseVerdicts_Shapes(t *testing.T) {
	got, err := parseVerdicts(`[{"itemIndex":0,"confidence":0.8,"isSimilar":true}]`)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].IsSimilar)

	got, err = parseVerdicts(`{"verdicts":[]}`)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = parseVerdicts(`{"itemIndex":2,"confidence":"0.9","isDuplicate":true}`)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].ItemIndex)

	_, err = parseVerdicts(`{"note":"nothing"}`)
	assert.ErrorIs(t, err, domain.ErrAIResponseInvalid)
}

func TestInterpreter_AnalyzeImage(t *testing.T) {
	chat := &fakeChatter{reply: `{"name":"Bolso shopper","color":"camel","category":"accessories","subcategory":"bags"}`}
	interp := NewInterpreter(chat, 0, nil)

	got, err := interp.AnalyzeImage(context.Background(), []byte{0xff, 0xd8, 0xff}, "")
	require.NoError(t, err)
	assert.Equal(t, "Bolso shopper", got.Name)
	assert.True(t, chat.vision)

	parts, ok := chat.messages[1].Content.([]ContentPart)
	require.True(t, ok)
	require.Len(t, parts, 2)
	assert.True(t, strings.HasPrefix(parts[1].ImageURL.URL, "data:image/jpeg;base64,"))
}

func TestInterpreter_Healthy(t *testing.T) {
	assert.True(t, NewInterpreter(&fakeChatter{healthy: true}, 0, nil).Healthy(context.Background()))
	assert.False(t, NewInterpreter(&fakeChatter{}, 0, nil).Healthy(context.Background()))
}
