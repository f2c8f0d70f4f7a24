package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"go.uber.org/zap"

	"solana-arb-monitor/internal/domain"
)

// timestampLayout matches the log's human-readable timestamp column.
const timestampLayout = "2006-01-02 15:04:05"

// header is written once, when the log file does not yet exist.
var header = []string{
	"timestamp",
	"symbol",
	"address",
	"buy_on",
	"sell_on",
	"buy_price",
	"sell_price",
	"difference_percent",
}

// CSVSink appends opportunities to a flat CSV log. Prices keep 8 decimal
// places and the divergence percentage keeps 2.
type CSVSink struct {
	path string
	log  *zap.Logger
}

// NewCSVSink creates a CSV sink writing to path.
func NewCSVSink(path string, log *zap.Logger) *CSVSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &CSVSink{path: path, log: log}
}

// Append implements Sink.
func (s *CSVSink) Append(ctx context.Context, batch []domain.Opportunity) error {
	if len(batch) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	_, statErr := os.Stat(s.path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open opportunity log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for _, opp := range batch {
		row := []string{
			opp.DetectedAt.Format(timestampLayout),
			opp.Symbol,
			opp.Address,
			opp.BuyVenue.String(),
			opp.SellVenue.String(),
			fmt.Sprintf("%.8f", opp.BuyPrice),
			fmt.Sprintf("%.8f", opp.SellPrice),
			fmt.Sprintf("%.2f", opp.DivergencePct),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row for %s: %w", opp.Symbol, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush opportunity log: %w", err)
	}

	s.log.Info("logged opportunities",
		zap.Int("count", len(batch)),
		zap.String("file", s.path))
	return nil
}
