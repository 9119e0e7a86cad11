package quickupdate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracker-backend/internal/intent"
	"tracker-backend/internal/store"
)

// Monday.
var testNow = time.Date(2026, 10, 19, 15, 30, 0, 0, time.UTC)

func TestResolveDueDate(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"today", "2026-10-19"},
		{"Tonight", "2026-10-19"},
		{"tomorrow", "2026-10-20"},
		{"in 3 days", "2026-10-22"},
		{"in 1 day", "2026-10-20"},
		{"in  2 weeks", "2026-11-02"},
		{"next week", "2026-10-26"},
		{"friday", "2026-10-23"},
		{"monday", "2026-10-19"},
		{"this Monday", "2026-10-19"},
		{"next monday", "2026-10-26"},
		{"next friday", "2026-10-23"},
		{"sunday", "2026-10-25"},
		{"2026-12-01", "2026-12-01"},
		{"Dec 1, 2026", "2026-12-01"},
		{"2026/12/01", "2026-12-01"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ResolveDueDate(tt.expr, testNow)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveDueDateRejects(t *testing.T) {
	for _, expr := range []string{"", "someday", "in a few days", "2026-13-40"} {
		_, err := ResolveDueDate(expr, testNow)
		var ve *store.ValidationError
		require.ErrorAs(t, err, &ve, expr)
		assert.Contains(t, ve.Fields, intent.SlotDueDate)
	}
}

func TestNormalizePriority(t *testing.T) {
	for in, want := range map[string]string{"": "Medium", "high": "High", " LOW ": "Low", "Medium": "Medium"} {
		got, err := NormalizePriority(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := NormalizePriority("whenever")
	assert.Equal(t, FailureValidation, ClassifyFailure(err))
	assert.Contains(t, ValidationFields(err), intent.SlotPriority)
}
