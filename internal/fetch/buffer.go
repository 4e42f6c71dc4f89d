package fetch

import (
	"slices"

	"github.com/sells-group/fare-cli/internal/model"
)

// Buffer accumulates the records of one fetch run in completion order.
// It is owned by a single run and is not safe for concurrent use.
type Buffer struct {
	records []model.FlightRecord
}

// Reset discards all records.
func (b *Buffer) Reset() {
	b.records = nil
}

// Append adds records to the end of the buffer.
func (b *Buffer) Append(recs ...model.FlightRecord) {
	b.records = append(b.records, recs...)
}

// Len returns the number of buffered records.
func (b *Buffer) Len() int {
	return len(b.records)
}

// Records returns a copy of the buffered records.
func (b *Buffer) Records() []model.FlightRecord {
	return slices.Clone(b.records)
}
