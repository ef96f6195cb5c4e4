package ingestion

import (
	"context"
	"hash/fnv"
	"slices"
	"sync"
	"time"

	"github.com/modullar/violations-tracker-backend-sub003/internal/reconcile/models"
	dErrors "github.com/modullar/violations-tracker-backend-sub003/pkg/domain-errors"
)

const numCandidateShards = 128

// candidateLocks serializes records that can reach the same stored record.
// A record dated d may match anything within windowDays of d, so two records
// conflict when they share a type and their dates are at most 2*windowDays
// apart. Each record locks the shards of its type on days [d, d+2*windowDays];
// those ranges overlap exactly for conflicting records.
//
// Shards are taken in ascending order, so overlapping lock sets cannot
// deadlock. A hash collision only adds contention.
type candidateLocks struct {
	shards     [numCandidateShards]sync.Mutex
	windowDays int
}

func newCandidateLocks(windowDays int) *candidateLocks {
	return &candidateLocks{windowDays: windowDays}
}

// lock blocks until every shard for record is held and returns the release
// func. It fails only when ctx is already done before or after waiting.
func (l *candidateLocks) lock(ctx context.Context, record models.ViolationRecord) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "candidate lock aborted")
	}

	shards := l.shardsFor(record)
	for _, i := range shards {
		l.shards[i].Lock()
	}
	unlock := func() {
		for j := len(shards) - 1; j >= 0; j-- {
			l.shards[shards[j]].Unlock()
		}
	}

	if err := ctx.Err(); err != nil {
		unlock()
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "candidate lock aborted")
	}
	return unlock, nil
}

// shardsFor returns the sorted, distinct shard indexes for record.
func (l *candidateLocks) shardsFor(record models.ViolationRecord) []int {
	t := record.Date.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)

	shards := make([]int, 0, 2*l.windowDays+1)
	for i := 0; i <= 2*l.windowDays; i++ {
		shards = append(shards, shardOf(record.Type+"|"+day.AddDate(0, 0, i).Format(time.DateOnly)))
	}
	slices.Sort(shards)
	return slices.Compact(shards)
}

func shardOf(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % numCandidateShards)
}
