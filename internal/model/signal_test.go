package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveAndFallback(t *testing.T) {
	t.Parallel()

	live := Live(CategorySecurity, Security{Level: SecuritySafe})
	assert.False(t, live.IsFallback)
	assert.Equal(t, CategorySecurity, live.Source)
	assert.Empty(t, live.Note)

	fb := Fallback(CategoryPerformance, Performance{Score: 45, LoadTimeDisplay: "6.5s"}, "timeout")
	assert.True(t, fb.IsFallback)
	assert.Equal(t, "timeout", fb.Note)
	assert.Equal(t, 45, fb.Value.Score)
}

func TestCollectionContextDegraded(t *testing.T) {
	t.Parallel()

	var cc CollectionContext
	assert.Empty(t, cc.Degraded())

	cc.Performance.IsFallback = true
	cc.Market.IsFallback = true
	cc.FieldData.IsFallback = true
	assert.Equal(t, []Category{CategoryPerformance, CategoryMarket, CategoryFieldData}, cc.Degraded())
}

func TestPerformanceScreenshotNotSerialized(t *testing.T) {
	t.Parallel()

	p := Performance{Score: 80, LoadTimeDisplay: "2.1 s", Screenshot: "QUJD"}
	assert.True(t, p.HasScreenshot())

	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "QUJD")
	assert.False(t, Performance{}.HasScreenshot())
}
