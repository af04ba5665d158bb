package repository

import (
	"errors"
	"time"

	"github.com/okian/solodex/internal/domain/entity"
	"github.com/okian/solodex/pkg/metrics"
)

// observe records one store operation. Misses and duplicate ids are caller
// errors and do not count as failures.
func observe(backend string, kind entity.Kind, op string, start time.Time, err error) {
	metrics.RecordStoreOperation(backend, string(kind), op)
	metrics.RecordStoreLatency(backend, op, float64(time.Since(start).Microseconds())/1000)
	if err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrDuplicateID) {
		metrics.RecordStoreError(backend, string(kind), op)
	}
}
