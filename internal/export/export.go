// Package export drives the fetch, normalize, and CSV-emission pipeline.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/zulhfreelancer/export-pull-requests/internal/logging"
	"github.com/zulhfreelancer/export-pull-requests/internal/provider"
	"github.com/zulhfreelancer/export-pull-requests/pkg/models"
)

// Exporter walks the requested repositories sequentially: fetch items,
// normalize to rows, buffer per repository, flush, advance.
type Exporter struct {
	req    *models.ExportRequest
	source provider.Source
	out    io.Writer
}

// New builds an exporter writing CSV to out.
func New(req *models.ExportRequest, source provider.Source, out io.Writer) *Exporter {
	return &Exporter{req: req, source: source, out: out}
}

// Run exports every requested repository. The header is written once; rows
// are buffered per repository and flushed before moving to the next, so
// repositories already flushed survive a mid-run failure.
func (e *Exporter) Run(ctx context.Context) error {
	w := csv.NewWriter(e.out)
	n := NewNormalizer(e.req)

	if err := w.Write(n.Header()); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, repo := range e.req.Repos {
		var rows [][]string
		err := e.source.Fetch(ctx, repo, func(item models.Item) error {
			if row, ok := n.Row(item); ok {
				rows = append(rows, row)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("exporting %s: %w", repo, err)
		}

		for _, row := range rows {
			if err := w.Write(row); err != nil {
				return fmt.Errorf("writing row for %s: %w", repo, err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return fmt.Errorf("flushing rows for %s: %w", repo, err)
		}

		logging.Info("repository exported", "repository", repo.String(), "rows", len(rows))
	}

	return nil
}
