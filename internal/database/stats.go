package database

import (
	"context"
	"time"

	"asset-catalog/internal/metrics"
)

// Status returns the thumbnail state distribution of the catalog.
func (d *Database) Status(ctx context.Context) (*StatusReport, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("status", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	report := &StatusReport{
		States:   map[string]int{},
		Reasons:  map[SkipReason]int{},
		Attempts: map[int]int{},
	}
	for _, name := range []string{"pending", "retrying", "exhausted", "succeeded", "skipped"} {
		report.States[name] = 0
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT thumbnail_status, thumbnail_attempts, COALESCE(skip_reason, ''), COUNT(*)
		FROM asset
		GROUP BY thumbnail_status, thumbnail_attempts, skip_reason
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			status, reason string
			attempts, n    int
		)
		if err = rows.Scan(&status, &attempts, &reason, &n); err != nil {
			return nil, err
		}
		state := ThumbnailState{Status: ThumbnailStatus(status), Attempts: attempts, Reason: SkipReason(reason)}
		report.States[state.Name()] += n
		report.Total += n
		switch state.Status {
		case StatusSkipped:
			report.Reasons[state.Reason] += n
		case StatusPending:
			report.Attempts[attempts] += n
		}
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	err = d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM source").Scan(&report.Sources)
	return report, err
}

// GetStats implements metrics.StatsProvider.
func (d *Database) GetStats() (metrics.Stats, error) {
	report, err := d.Status(context.Background())
	if err != nil {
		return metrics.Stats{}, err
	}
	d.UpdateDBMetrics()
	return metrics.Stats{
		Sources:   report.Sources,
		Assets:    report.Total,
		Pending:   report.States["pending"],
		Retrying:  report.States["retrying"],
		Exhausted: report.States["exhausted"],
		Succeeded: report.States["succeeded"],
		Skipped:   report.States["skipped"],
	}, nil
}
