package batch

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessingState_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		state   ProcessingState
		wantErr bool
	}{
		{name: "empty", state: ProcessingState{}},
		{
			name: "valid",
			state: ProcessingState{
				CompletedIDs: []string{"a"},
				FailedIDs:    []string{"b"},
				CurrentIndex: 2,
				TotalItems:   3,
			},
		},
		{name: "negative total", state: ProcessingState{TotalItems: -1}, wantErr: true},
		{name: "index beyond total", state: ProcessingState{CurrentIndex: 4, TotalItems: 3}, wantErr: true},
		{
			name: "id in two lists",
			state: ProcessingState{
				CompletedIDs: []string{"a"},
				SkippedIDs:   []string{"a"},
				TotalItems:   1,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.state.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidState)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProcessingState_IsStale(t *testing.T) {
	t.Parallel()

	now := time.Now()
	state := ProcessingState{Timestamp: now.Add(-25 * time.Hour)}

	assert.True(t, state.IsStale(now, DefaultStaleAfter))
	assert.False(t, state.IsStale(now, 48*time.Hour))
	assert.False(t, state.IsStale(now, 0), "zero max age disables the check")
	assert.False(t, ProcessingState{Timestamp: now}.IsStale(now, DefaultStaleAfter))
}

func TestProcessingState_JSONFieldNames(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(ProcessingState{CompletedIDs: []string{"a"}, TotalItems: 1})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"completed_ids", "failed_ids", "skipped_ids", "current_index", "total_items", "timestamp"} {
		assert.Contains(t, raw, key)
	}
}

func TestStateKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "vehicle-doc-processing-fleet-42", StateKey("fleet-42"))
}
