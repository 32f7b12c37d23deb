package storage

import (
	"context"
	"fmt"
	"time"

	"dataimport/internal/logging"

	"github.com/sirupsen/logrus"
)

// DefaultBatchSize bounds a single backend write.
const DefaultBatchSize = 500

// WriteFn writes one batch and returns the number of documents written.
type WriteFn func(ctx context.Context, batch []Document) (int64, error)

// WriteBatches splits docs into batches of batchSize and calls write for
// each. It returns the running total and the first error.
//
// Progress is logged after every successful batch.
func WriteBatches(ctx context.Context, docs []Document, batchSize int, write WriteFn) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if write == nil {
		return 0, fmt.Errorf("write must not be nil")
	}

	var (
		total   int64
		batches int
		start   = time.Now()
	)
	for lo := 0; lo < len(docs); lo += batchSize {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		hi := min(lo+batchSize, len(docs))
		n, err := write(ctx, docs[lo:hi])
		total += n
		if err != nil {
			logging.Logger().WithFields(logrus.Fields{
				"batch": batches + 1,
				"total": total,
			}).WithError(err).Error("storage: batch failed")
			return total, err
		}
		batches++
		logging.Logger().WithFields(logrus.Fields{
			"batch":    batches,
			"inserted": n,
			"total":    total,
			"elapsed":  time.Since(start).Truncate(time.Millisecond).String(),
		}).Debug("storage: batch written")
	}
	return total, nil
}
