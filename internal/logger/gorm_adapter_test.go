package logger

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestGormLoggerAdapter_Trace(t *testing.T) {
	t.Parallel()

	query := func() (string, int64) { return "DELETE FROM inspection_annotations WHERE inspection_id = 'X'", 3 }

	tests := []struct {
		name      string
		level     LogLevel
		begin     time.Time
		err       error
		wantMsg   string
		wantEmpty bool
	}{
		{"query error", LogLevelInfo, time.Now(), errors.New("disk I/O error"), "query error", false},
		{"record not found is not an error", LogLevelInfo, time.Now(), gorm.ErrRecordNotFound, "", true},
		{"slow query", LogLevelInfo, time.Now().Add(-time.Second), nil, "slow query", false},
		{"normal query at trace", LogLevelTrace, time.Now(), nil, "sql query", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			adapter := NewGormLoggerAdapter(NewSlogLogger(&buf, tt.level, time.UTC), 200*time.Millisecond)
			adapter.Trace(t.Context(), tt.begin, query, tt.err)

			if tt.wantEmpty {
				assert.Empty(t, buf.String())
				return
			}
			assert.Contains(t, buf.String(), tt.wantMsg)
			assert.Contains(t, buf.String(), "rows_affected=3")
		})
	}
}

func TestGormLoggerAdapter_LogModeReturnsSelf(t *testing.T) {
	t.Parallel()

	adapter := NewGormLoggerAdapter(nil, 0)
	assert.Same(t, adapter, adapter.LogMode(0))
}
