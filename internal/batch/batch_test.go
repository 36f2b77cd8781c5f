package batch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_RecordsEveryOutcome(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	bad := errors.New("decode failed")

	out, err := Run(context.Background(), ids, 2, func(_ context.Context, id string) (int, error) {
		if id == "c" {
			return 0, bad
		}
		return len(id) + int(id[0]), nil
	})
	require.NoError(t, err)
	require.Len(t, out, len(ids))
	for i, o := range out {
		assert.Equal(t, ids[i], o.ID)
	}
	assert.ErrorIs(t, out[2].Err, bad)
	assert.False(t, out[2].OK())

	failed := Failures(out)
	require.Len(t, failed, 1)
	assert.Equal(t, "c", failed[0].ID)

	vals := Succeeded(out)
	assert.Len(t, vals, 4)
	assert.Equal(t, 1+int('a'), vals["a"])
	assert.NotContains(t, vals, "c")

	skips := Skips(out)
	require.Len(t, skips, 1)
	assert.Equal(t, Skip{ID: "c", Err: bad}, skips[0])
}

func TestRun_BoundsConcurrency(t *testing.T) {
	var active, peak atomic.Int32
	ids := make([]string, 32)
	for i := range ids {
		ids[i] = fmt.Sprintf("item-%02d", i)
	}
	_, err := Run(context.Background(), ids, 3, func(_ context.Context, _ string) (struct{}, error) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		active.Add(-1)
		return struct{}{}, nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	out, err := Run(ctx, []string{"a", "b"}, 1, func(_ context.Context, _ string) (int, error) {
		calls.Add(1)
		return 1, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
	for _, o := range out {
		assert.ErrorIs(t, o.Err, context.Canceled)
	}
}

func TestRun_Empty(t *testing.T) {
	out, err := Run(context.Background(), nil, 0, func(_ context.Context, _ string) (int, error) {
		return 0, nil
	})
	require.NoError(t, err)
	assert.Empty(t, out)
}
