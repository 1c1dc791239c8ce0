package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/solspore/gaming/internal/domain"
)

// Reporter archives sweep reports to blob storage as JSONL, one market
// report per line, keyed by sweep time and a unique sweep ID:
//
//	settlements/2026-08/9f1c2d3a-....jsonl
type Reporter struct {
	writer domain.BlobWriter
}

// NewReporter creates a Reporter writing through the given BlobWriter.
func NewReporter(writer domain.BlobWriter) *Reporter {
	return &Reporter{writer: writer}
}

// sweepHeader is the first line of every report file.
type sweepHeader struct {
	SweepID string    `json:"sweepId"`
	At      time.Time `json:"at"`
	Summary Summary   `json:"summary"`
}

// Archive uploads one sweep's report. Callers treat failures as soft; the
// ledger in PostgreSQL remains the source of truth.
func (r *Reporter) Archive(ctx context.Context, at time.Time, summary Summary, reports []MarketReport) error {
	sweepID := uuid.New().String()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(sweepHeader{SweepID: sweepID, At: at.UTC(), Summary: summary}); err != nil {
		return fmt.Errorf("settlement: encode report header: %w", err)
	}
	for i, report := range reports {
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("settlement: encode report line %d: %w", i, err)
		}
	}

	path := fmt.Sprintf("settlements/%s/%s.jsonl", at.UTC().Format("2006-01"), sweepID)
	if err := r.writer.Put(ctx, path, &buf, "application/x-ndjson"); err != nil {
		return fmt.Errorf("settlement: upload report %s: %w", path, err)
	}
	return nil
}
