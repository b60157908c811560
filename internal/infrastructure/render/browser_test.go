package render

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/notwins/backend/internal/domain"
)

func TestNewBrowserRenderer_Defaults(t *testing.T) {
	r := NewBrowserRenderer(BrowserConfig{}, nil)
	assert.Equal(t, "browser", r.Name())
	assert.Equal(t, 45*time.Second, r.cfg.Timeout)

	r = NewBrowserRenderer(BrowserConfig{Timeout: 5 * time.Second}, zap.NewNop())
	assert.Equal(t, 5*time.Second, r.cfg.Timeout)
}

func TestBrowserRenderer_CloseBeforeRender(t *testing.T) {
	r := NewBrowserRenderer(BrowserConfig{}, zap.NewNop())

	assert.NoError(t, r.Close())
	assert.NoError(t, r.Close())
	assert.Nil(t, r.browserCtx)
}

func TestBrowserRenderer_RenderAfterClose(t *testing.T) {
	r := NewBrowserRenderer(BrowserConfig{}, zap.NewNop())
	require.NoError(t, r.Close())

	page, err := r.Render(context.Background(), "https://www.zara.com/es/es/vestido-p1.html", domain.RenderOptions{})
	assert.Nil(t, page)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	assert.ErrorIs(t, err, errBrowserClosed)
	// no process was launched for the rejected render
	assert.Nil(t, r.browserCtx)
}
