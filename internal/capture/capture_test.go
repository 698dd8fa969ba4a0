package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripmark/internal/geocode"
	"tripmark/internal/place"
	"tripmark/internal/slot"
	"tripmark/internal/store"
)

type renderCounter struct {
	mu sync.Mutex
	n  int
}

func (r *renderCounter) Render(context.Context) error {
	r.mu.Lock()
	r.n++
	r.mu.Unlock()
	return nil
}

func newFlow(t *testing.T, s slot.Slot) (*Flow, *store.RecordStore, *renderCounter) {
	t.Helper()
	st := store.New(s)
	rc := &renderCounter{}
	return New(st, rc, 1024), st, rc
}

func TestClickOpensEmptyForm(t *testing.T) {
	f, _, _ := newFlow(t, slot.NewMemory())
	assert.Equal(t, Idle, f.Snapshot().State)

	f.Click(Coord{Lat: 47.9, Lon: 106.9})
	s := f.Snapshot()
	assert.Equal(t, Pending, s.State)
	require.NotNil(t, s.Coord)
	assert.Equal(t, Coord{Lat: 47.9, Lon: 106.9}, *s.Coord)
	assert.Empty(t, s.PrefillName)
}

func TestSearchResultPrefillsName(t *testing.T) {
	f, _, _ := newFlow(t, slot.NewMemory())
	f.ApplySearch(geocode.Result{Lat: 47.9, Lon: 106.9, DisplayName: "Ulaanbaatar"})
	s := f.Snapshot()
	assert.Equal(t, Pending, s.State)
	assert.Equal(t, Coord{Lat: 47.9, Lon: 106.9}, *s.Coord)
	assert.Equal(t, "Ulaanbaatar", s.PrefillName)

	// 表单打开时再次点击只覆盖坐标
	f.Click(Coord{Lat: 1, Lon: 2})
	s = f.Snapshot()
	assert.Equal(t, Coord{Lat: 1, Lon: 2}, *s.Coord)
	assert.Equal(t, "Ulaanbaatar", s.PrefillName)
}

func TestSubmitSavesAndReturnsToIdle(t *testing.T) {
	ctx := context.Background()
	f, st, rc := newFlow(t, slot.NewMemory())
	f.Click(Coord{Lat: 47.98, Lon: 107.45})
	require.NoError(t, f.Submit(ctx, Form{Name: "  Terelj ", Comment: " camp "}))

	recs := st.Load(ctx)
	require.Len(t, recs, 1)
	assert.Equal(t, place.Record{Name: "Terelj", Lat: 47.98, Lon: 107.45, Comment: "camp"}, recs[0])
	assert.Equal(t, Idle, f.Snapshot().State)
	assert.Nil(t, f.Snapshot().Coord)
	assert.Equal(t, 1, rc.n)
}

type failingRenderer struct{ calls int }

func (r *failingRenderer) Render(context.Context) error {
	r.calls++
	return errors.New("map unavailable")
}

func TestSubmitRenderFailureStillSaved(t *testing.T) {
	ctx := context.Background()
	st := store.New(slot.NewMemory())
	fr := &failingRenderer{}
	f := New(st, fr, 1024)
	f.Click(Coord{Lat: 1, Lon: 2})

	require.NoError(t, f.Submit(ctx, Form{Name: "Khuvsgul"}))
	assert.Equal(t, 1, fr.calls)
	assert.Len(t, st.Load(ctx), 1)
	assert.Equal(t, Idle, f.Snapshot().State)
}

func TestSubmitInvalid(t *testing.T) {
	ctx := context.Background()
	mem := slot.NewMemory()
	f, _, rc := newFlow(t, mem)

	assert.ErrorIs(t, f.Submit(ctx, Form{Name: "Terelj"}), ErrInvalidSubmit)
	assert.Equal(t, Idle, f.Snapshot().State)

	f.Click(Coord{Lat: 1, Lon: 2})
	assert.ErrorIs(t, f.Submit(ctx, Form{Name: "   "}), ErrInvalidSubmit)
	assert.Equal(t, Pending, f.Snapshot().State)

	_, err := mem.Get(ctx, store.HistoryKey)
	assert.ErrorIs(t, err, slot.ErrNotFound, "empty-name submit must not write")
	assert.Equal(t, 0, rc.n)
}

func TestSubmitQuotaFailureStaysPending(t *testing.T) {
	ctx := context.Background()
	f, st, rc := newFlow(t, slot.WithQuota(slot.NewMemory(), 64))
	f.Click(Coord{Lat: 1, Lon: 2})
	err := f.Submit(ctx, Form{Name: strings.Repeat("x", 100)})
	require.ErrorIs(t, err, slot.ErrQuotaExceeded)

	s := f.Snapshot()
	assert.Equal(t, Pending, s.State)
	assert.Equal(t, Coord{Lat: 1, Lon: 2}, *s.Coord)
	assert.Empty(t, st.Load(ctx))
	assert.Equal(t, 0, rc.n)
}

func TestSubmitWithImage(t *testing.T) {
	ctx := context.Background()
	f, st, _ := newFlow(t, slot.NewMemory())
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2000, 100))))

	f.Click(Coord{Lat: 1, Lon: 2})
	require.NoError(t, f.Submit(ctx, Form{Name: "wide", Image: buf.Bytes()}))
	recs := st.Load(ctx)
	require.Len(t, recs, 1)
	assert.True(t, strings.HasPrefix(recs[0].Image, "data:image/jpeg;base64,"))
}

func TestSubmitBadImageStaysPending(t *testing.T) {
	ctx := context.Background()
	f, st, _ := newFlow(t, slot.NewMemory())
	f.Click(Coord{Lat: 1, Lon: 2})
	err := f.Submit(ctx, Form{Name: "x", Image: []byte("nope")})
	assert.ErrorIs(t, err, ErrImage)
	assert.Equal(t, Pending, f.Snapshot().State)
	assert.Empty(t, st.Load(ctx))
}

func TestCancelDuringImageProcessingSupersedes(t *testing.T) {
	ctx := context.Background()
	st := store.New(slot.NewMemory())
	f := New(st, nil, 1024)
	f.downscale = func(b []byte, max int) (string, error) {
		f.Cancel()
		return "data:image/png;base64,AA==", nil
	}
	f.Click(Coord{Lat: 1, Lon: 2})
	assert.ErrorIs(t, f.Submit(ctx, Form{Name: "x", Image: []byte{1}}), ErrSuperseded)
	assert.Empty(t, st.Load(ctx))
	assert.Equal(t, Idle, f.Snapshot().State)
}

func TestRetargetDuringImageProcessingSupersedes(t *testing.T) {
	ctx := context.Background()
	st := store.New(slot.NewMemory())
	f := New(st, nil, 1024)
	f.downscale = func(b []byte, max int) (string, error) {
		f.Click(Coord{Lat: 5, Lon: 6})
		return "data:image/png;base64,AA==", nil
	}
	f.Click(Coord{Lat: 1, Lon: 2})
	assert.ErrorIs(t, f.Submit(ctx, Form{Name: "x", Image: []byte{1}}), ErrSuperseded)
	s := f.Snapshot()
	assert.Equal(t, Pending, s.State)
	assert.Equal(t, Coord{Lat: 5, Lon: 6}, *s.Coord)
}

func TestCancelDiscardsPendingSubmit(t *testing.T) {
	ctx := context.Background()
	st := store.New(slot.NewMemory())
	f := New(st, nil, 1024)

	f.Click(Coord{Lat: 1, Lon: 2})
	f.Cancel()
	assert.Equal(t, Idle, f.Snapshot().State)
	assert.ErrorIs(t, f.Submit(ctx, Form{Name: "late"}), ErrInvalidSubmit)
	assert.Empty(t, st.Load(ctx))
}
