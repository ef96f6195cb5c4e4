package ingestion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modullar/violations-tracker-backend-sub003/internal/reconcile/models"
	dErrors "github.com/modullar/violations-tracker-backend-sub003/pkg/domain-errors"
)

func lockRecord(typ string, day int) models.ViolationRecord {
	return models.ViolationRecord{Type: typ, Date: time.Date(2024, 3, day, 15, 30, 0, 0, time.UTC)}
}

func TestCandidateLocks_Shards(t *testing.T) {
	t.Run("one shard per day in the doubled window", func(t *testing.T) {
		l := newCandidateLocks(0)
		assert.Len(t, l.shardsFor(lockRecord("AIRSTRIKE", 10)), 1)

		shards := newCandidateLocks(3).shardsFor(lockRecord("AIRSTRIKE", 10))
		assert.LessOrEqual(t, len(shards), 7)
		assert.IsIncreasing(t, shards)
	})

	t.Run("time of day does not matter", func(t *testing.T) {
		l := newCandidateLocks(3)
		a := lockRecord("AIRSTRIKE", 10)
		b := a
		b.Date = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, l.shardsFor(a), l.shardsFor(b))
	})

	t.Run("records that can share a candidate share a shard", func(t *testing.T) {
		l := newCandidateLocks(3)
		base := l.shardsFor(lockRecord("AIRSTRIKE", 10))
		for _, day := range []int{4, 7, 10, 13, 16} {
			assert.NotEmpty(t, intersect(base, l.shardsFor(lockRecord("AIRSTRIKE", day))), "day %d", day)
		}
	})
}

func TestCandidateLocks_Serializes(t *testing.T) {
	l := newCandidateLocks(3)
	unlock, err := l.lock(context.Background(), lockRecord("SHELLING", 10))
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		release, err := l.lock(context.Background(), lockRecord("SHELLING", 16))
		if err == nil {
			release()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second record acquired the lock while the first held it")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second record never acquired the lock")
	}
}

func TestCandidateLocks_DoneContext(t *testing.T) {
	l := newCandidateLocks(3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.lock(ctx, lockRecord("SHELLING", 10))
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeTimeout, dErrors.CodeOf(err))

	unlock, err := l.lock(context.Background(), lockRecord("SHELLING", 10))
	require.NoError(t, err)
	unlock()
}

func intersect(a, b []int) []int {
	var out []int
	for _, x := range a {
		for _, y := range b {
			if x == y {
				out = append(out, x)
			}
		}
	}
	return out
}
