package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"example.com/cesizen/internal/domain"
	"example.com/cesizen/internal/platform/events"
)

const reportColumns = `id, reporter_id, target_type, target_id, reason, description, status, reviewed_by, reviewed_at, created_at, updated_at`

func scanReport(row pgx.CollectableRow) (domain.Report, error) {
	var rep domain.Report
	err := row.Scan(&rep.ID, &rep.ReporterID, &rep.TargetType, &rep.TargetID, &rep.Reason, &rep.Description,
		&rep.Status, &rep.ReviewedBy, &rep.ReviewedAt, &rep.CreatedAt, &rep.UpdatedAt)
	return rep, err
}

// CreateReport implements domain.ReportRepository and records report.created.
func (r *Repository) CreateReport(ctx context.Context, rep domain.Report) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO reports (`+reportColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			rep.ID, rep.ReporterID, rep.TargetType, rep.TargetID, rep.Reason, rep.Description,
			rep.Status, rep.ReviewedBy, rep.ReviewedAt, rep.CreatedAt, rep.UpdatedAt,
		); err != nil {
			return translate(err)
		}
		return insertOutbox(ctx, tx, outboxRecord{
			eventType:     events.TypeReportCreated,
			aggregateType: "report",
			aggregateID:   rep.ID,
			dedupeKey:     rep.ID + ":" + events.TypeReportCreated,
			payload: events.ReportCreated{
				ReportID:   rep.ID,
				ReporterID: rep.ReporterID,
				TargetType: rep.TargetType,
				TargetID:   rep.TargetID,
				Reason:     rep.Reason,
				CreatedAt:  rep.CreatedAt,
			},
		})
	})
}

// GetReport implements domain.ReportRepository.
func (r *Repository) GetReport(ctx context.Context, id string) (*domain.Report, error) {
	return getOne(ctx, r.pool, scanReport, `SELECT `+reportColumns+` FROM reports WHERE id=$1`, id)
}

// ListReports implements domain.ReportRepository.
func (r *Repository) ListReports(ctx context.Context) ([]domain.Report, error) {
	return list(ctx, r.pool, scanReport, `SELECT `+reportColumns+` FROM reports ORDER BY id`)
}

// UpdateReportStatus implements domain.ReportRepository. The status check and the update happen in one
// statement so concurrent moderators cannot both apply a transition.
func (r *Repository) UpdateReportStatus(ctx context.Context, id string, from, to domain.ReportStatus, by string, at time.Time) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE reports SET status=$3, reviewed_by=$4, reviewed_at=$5, updated_at=$5 WHERE id=$1 AND status=$2`,
			id, from, to, by, at,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			var current domain.ReportStatus
			if err := tx.QueryRow(ctx, `SELECT status FROM reports WHERE id=$1`, id).Scan(&current); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return missing("report", id)
				}
				return err
			}
			return fmt.Errorf("report %s is %s: %w", id, current, domain.ErrConflict)
		}
		return insertOutbox(ctx, tx, outboxRecord{
			eventType:     events.TypeReportStatusChanged,
			aggregateType: "report",
			aggregateID:   id,
			payload: events.ReportStatusChanged{
				ReportID:   id,
				From:       string(from),
				To:         string(to),
				ChangedBy:  by,
				OccurredAt: at,
			},
		})
	})
}

// DeleteReport implements domain.ReportRepository.
func (r *Repository) DeleteReport(ctx context.Context, id string) error {
	return execAffecting(ctx, r.pool, "report", id, `DELETE FROM reports WHERE id=$1`, id)
}
