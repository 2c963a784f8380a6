package annotation

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/gridsight/thermalwatch/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveID_KnownValues(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "f87730f1-873d-55b7-8c8b-e5fe72ea7cfb", ResolveID("INSP-001", 1))
	assert.Equal(t, "97eddbfd-7eaf-5e9b-95d8-aad7084edd3f", ResolveID("INSP-001", 2))
}

func TestResolveID_Deterministic(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ResolveID("INSP-042", 3), ResolveID("INSP-042", 3))
	assert.NotEqual(t, ResolveID("INSP-042", 3), ResolveID("INSP-042", 4))
	assert.NotEqual(t, ResolveID("INSP-042", 3), ResolveID("INSP-043", 3))
}

func TestResolver_VersionAndVariantBits(t *testing.T) {
	t.Parallel()

	id := NewResolver(nil).Resolve("INSP-001", 7)
	assert.Equal(t, 5, int(id.Version()))
	assert.Equal(t, "RFC4122", id.Variant().String())
}

func TestResolver_FallsBackToRandom(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		hash HashFunc
	}{
		{"hash error", func([]byte) ([]byte, error) { return nil, errors.New("hsm offline") }},
		{"short digest", func([]byte) ([]byte, error) { return []byte{1, 2, 3}, nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			r := NewResolver(tt.hash).WithLogger(logger.NewSlogLogger(&buf, logger.LogLevelInfo, time.UTC))

			first := r.Resolve("INSP-001", 1)
			second := r.Resolve("INSP-001", 1)

			assert.NotEqual(t, first, second, "fallback ids are random")
			assert.Equal(t, 4, int(first.Version()))
			require.Contains(t, buf.String(), "identity hash failed")
			assert.Contains(t, buf.String(), "inspection_id=INSP-001")
		})
	}
}

func TestIdentityName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "INSP-001-box-12", IdentityName("INSP-001", 12))
}
