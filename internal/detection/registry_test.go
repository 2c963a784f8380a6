package detection

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gridsight/thermalwatch/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubEngine struct {
	name      string
	available atomic.Bool
	probes    atomic.Int32
	result    *Result
	err       error
}

func newStub(name string, available bool) *stubEngine {
	e := &stubEngine{name: name}
	e.available.Store(available)
	return e
}

func (e *stubEngine) Name() string      { return e.name }
func (e *stubEngine) Version() string   { return "1.0.0" }
func (e *stubEngine) ModelName() string { return e.name + "-model" }

func (e *stubEngine) IsAvailable(context.Context) bool {
	e.probes.Add(1)
	return e.available.Load()
}

func (e *stubEngine) Detect(context.Context, string) (*Result, error) {
	return e.result, e.err
}

func (e *stubEngine) Metadata() map[string]any {
	return map[string]any{"name": e.name}
}

func TestSelectBestAvailable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		def      string
		statuses []Status
		want     string
		wantOK   bool
	}{
		{"default available", "HuggingFace", []Status{{Name: "Fixture", Available: true}, {Name: "HuggingFace", Available: true}}, "HuggingFace", true},
		{"default down uses first available", "HuggingFace", []Status{{Name: "HuggingFace"}, {Name: "A"}, {Name: "B", Available: true}, {Name: "C", Available: true}}, "B", true},
		{"nothing available", "HuggingFace", []Status{{Name: "HuggingFace"}, {Name: "Fixture"}}, "HuggingFace", false},
		{"no engines", "HuggingFace", nil, "HuggingFace", false},
		{"default not registered", "Missing", []Status{{Name: "Fixture", Available: true}}, "Fixture", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := SelectBestAvailable(tt.def, tt.statuses)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	t.Parallel()

	r := NewRegistry("HuggingFace")
	hf := newStub("HuggingFace", true)
	fx := newStub("Fixture", true)
	require.NoError(t, r.Register(hf))
	require.NoError(t, r.Register(fx))

	err := r.Register(newStub("Fixture", true))
	require.ErrorIs(t, err, ErrDuplicateEngine)
	assert.True(t, errors.IsCategory(err, errors.CategoryEngineRegistry))

	assert.Equal(t, []string{"HuggingFace", "Fixture"}, r.Names())

	got, err := r.Get("Fixture")
	require.NoError(t, err)
	assert.Same(t, fx, got)

	// unknown names fall back to the default
	got, err = r.Get("TensorFlow")
	require.NoError(t, err)
	assert.Same(t, hf, got)
}

func TestRegistry_FirstRegisteredBecomesDefault(t *testing.T) {
	t.Parallel()

	r := NewRegistry("")
	require.NoError(t, r.Register(newStub("Fixture", true)))
	assert.Equal(t, "Fixture", r.DefaultName())

	require.Error(t, r.SetDefault("Nope"))
	require.NoError(t, r.Register(newStub("HuggingFace", true)))
	require.NoError(t, r.SetDefault("HuggingFace"))
	assert.Equal(t, "HuggingFace", r.DefaultName())
}

func TestRegistry_EmptyRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry("HuggingFace")
	_, err := r.Get("HuggingFace")
	require.ErrorIs(t, err, ErrNoEngines)

	_, err = r.BestAvailable(t.Context())
	require.ErrorIs(t, err, ErrNoEngines)

	require.Error(t, r.Register(nil))
}

func TestRegistry_BestAvailable(t *testing.T) {
	t.Parallel()

	hf := newStub("HuggingFace", false)
	fx := newStub("Fixture", true)
	r := NewRegistry("HuggingFace")
	require.NoError(t, r.Register(hf))
	require.NoError(t, r.Register(fx))

	got, err := r.BestAvailable(t.Context())
	require.NoError(t, err)
	assert.Same(t, fx, got)

	// nothing available still returns the default
	fx.available.Store(false)
	got, err = r.BestAvailable(t.Context())
	require.NoError(t, err)
	assert.Same(t, hf, got)
}

func TestRegistry_StatusesInRegistrationOrder(t *testing.T) {
	t.Parallel()

	r := NewRegistry("B")
	for _, name := range []string{"A", "B", "C"} {
		require.NoError(t, r.Register(newStub(name, name != "B")))
	}

	statuses := r.Statuses(t.Context())
	require.Len(t, statuses, 3)
	assert.Equal(t, Status{Name: "A", Version: "1.0.0", Model: "A-model", Available: true}, statuses[0])
	assert.False(t, statuses[1].Available)
	assert.Equal(t, "C", statuses[2].Name)
}

func TestRegistry_StatusCache(t *testing.T) {
	t.Parallel()

	hf := newStub("HuggingFace", true)
	r := NewRegistry("HuggingFace", WithStatusCacheTTL(time.Minute))
	require.NoError(t, r.Register(hf))

	r.Statuses(t.Context())
	r.Statuses(t.Context())
	assert.Equal(t, int32(1), hf.probes.Load())

	hf.available.Store(false)
	assert.True(t, r.Statuses(t.Context())[0].Available, "cached value is served")

	r.InvalidateStatus()
	assert.False(t, r.Statuses(t.Context())[0].Available)
	assert.Equal(t, int32(2), hf.probes.Load())
}

func TestRegistry_NoCacheProbesEveryTime(t *testing.T) {
	t.Parallel()

	hf := newStub("HuggingFace", true)
	r := NewRegistry("HuggingFace", WithStatusCacheTTL(0))
	require.NoError(t, r.Register(hf))

	r.Statuses(t.Context())
	r.Statuses(t.Context())
	assert.Equal(t, int32(2), hf.probes.Load())
}

func TestRegistry_Metadata(t *testing.T) {
	t.Parallel()

	r := NewRegistry("")
	require.NoError(t, r.Register(newStub("Fixture", true)))
	assert.Equal(t, map[string]map[string]any{"Fixture": {"name": "Fixture"}}, r.Metadata())
}
