package i18n

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripmark/internal/slot"
)

func TestTFallback(t *testing.T) {
	assert.Equal(t, "検索", T("ja", "searchBtn"))
	assert.Equal(t, "Хайх", T("mn", "searchBtn"))
	assert.Equal(t, "Хайх", T("fr", "searchBtn"))
	assert.Equal(t, "画像を読み込めませんでした。", T("ja", "imageError"))
	assert.Equal(t, "noSuchKey", T("ja", "noSuchKey"))

	// 仅 mn 表有的键回退到 mn
	tables["mn"]["mnOnly"] = "зөвхөн"
	t.Cleanup(func() { delete(tables["mn"], "mnOnly") })
	assert.Equal(t, "зөвхөн", T("ja", "mnOnly"))
}

func TestTablesShareKeys(t *testing.T) {
	for k := range tables[Default] {
		assert.Contains(t, tables["ja"], k)
	}
	assert.Len(t, tables["ja"], len(tables[Default]))
}

func TestLabelsComplete(t *testing.T) {
	for _, lang := range Languages {
		labels := Labels(lang)
		assert.Len(t, labels, len(tables[Default]), lang)
		for k, v := range labels {
			assert.NotEmpty(t, v, "%s.%s", lang, k)
		}
	}
}

func TestPrefs(t *testing.T) {
	ctx := context.Background()
	mem := slot.NewMemory()
	p := NewPrefs(mem)
	assert.Equal(t, "mn", p.Get(ctx))

	require.NoError(t, p.Set(ctx, "ja"))
	assert.Equal(t, "ja", p.Get(ctx))

	assert.ErrorIs(t, p.Set(ctx, "klingon"), ErrUnknownLang)
	assert.Equal(t, "ja", p.Get(ctx))

	require.NoError(t, mem.Set(ctx, LangKey, []byte("de")))
	assert.Equal(t, "mn", p.Get(ctx))
}
