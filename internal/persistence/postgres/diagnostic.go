package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"example.com/cesizen/internal/domain"
	"example.com/cesizen/internal/platform/events"
)

const diagnosticCategoryColumns = `id, name, description, position, created_at, updated_at`

func scanDiagnosticCategory(row pgx.CollectableRow) (domain.DiagnosticCategory, error) {
	var c domain.DiagnosticCategory
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Position, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// ListDiagnosticCategories implements domain.DiagnosticRepository.
func (r *Repository) ListDiagnosticCategories(ctx context.Context) ([]domain.DiagnosticCategory, error) {
	return list(ctx, r.pool, scanDiagnosticCategory, `SELECT `+diagnosticCategoryColumns+` FROM diagnostic_categories ORDER BY position, name`)
}

// GetDiagnosticCategory implements domain.DiagnosticRepository.
func (r *Repository) GetDiagnosticCategory(ctx context.Context, id string) (*domain.DiagnosticCategory, error) {
	return getOne(ctx, r.pool, scanDiagnosticCategory, `SELECT `+diagnosticCategoryColumns+` FROM diagnostic_categories WHERE id=$1`, id)
}

// CreateDiagnosticCategory implements domain.DiagnosticRepository.
func (r *Repository) CreateDiagnosticCategory(ctx context.Context, c domain.DiagnosticCategory) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO diagnostic_categories (`+diagnosticCategoryColumns+`) VALUES ($1,$2,$3,$4,$5,$6)`,
			c.ID, c.Name, c.Description, c.Position, c.CreatedAt, c.UpdatedAt,
		); err != nil {
			return translate(err)
		}
		return insertOutbox(ctx, tx, contentChanged(events.EntityDiagnosticCategory, c.ID, events.ActionCreated, c.UpdatedAt))
	})
}

// UpdateDiagnosticCategory implements domain.DiagnosticRepository.
func (r *Repository) UpdateDiagnosticCategory(ctx context.Context, c domain.DiagnosticCategory) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if err := execAffecting(ctx, tx, "diagnostic category", c.ID,
			`UPDATE diagnostic_categories SET name=$2, description=$3, position=$4, updated_at=$5 WHERE id=$1`,
			c.ID, c.Name, c.Description, c.Position, c.UpdatedAt,
		); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, contentChanged(events.EntityDiagnosticCategory, c.ID, events.ActionUpdated, c.UpdatedAt))
	})
}

// DeleteDiagnosticCategory implements domain.DiagnosticRepository.
func (r *Repository) DeleteDiagnosticCategory(ctx context.Context, id string) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if err := execAffecting(ctx, tx, "diagnostic category", id, `DELETE FROM diagnostic_categories WHERE id=$1`, id); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, contentChanged(events.EntityDiagnosticCategory, id, events.ActionDeleted, r.now()))
	})
}

const questionColumns = `id, title, points, category_id, created_at, updated_at`

func scanQuestion(row pgx.CollectableRow) (domain.DiagnosticQuestion, error) {
	var q domain.DiagnosticQuestion
	err := row.Scan(&q.ID, &q.Title, &q.Points, &q.CategoryID, &q.CreatedAt, &q.UpdatedAt)
	return q, err
}

// ListQuestions implements domain.DiagnosticRepository.
func (r *Repository) ListQuestions(ctx context.Context) ([]domain.DiagnosticQuestion, error) {
	return list(ctx, r.pool, scanQuestion, `SELECT `+questionColumns+` FROM diagnostic_questions ORDER BY id`)
}

// GetQuestion implements domain.DiagnosticRepository.
func (r *Repository) GetQuestion(ctx context.Context, id string) (*domain.DiagnosticQuestion, error) {
	return getOne(ctx, r.pool, scanQuestion, `SELECT `+questionColumns+` FROM diagnostic_questions WHERE id=$1`, id)
}

func insertQuestion(ctx context.Context, tx pgx.Tx, q domain.DiagnosticQuestion) error {
	_, err := tx.Exec(ctx, `INSERT INTO diagnostic_questions (`+questionColumns+`) VALUES ($1,$2,$3,$4,$5,$6)`,
		q.ID, q.Title, q.Points, q.CategoryID, q.CreatedAt, q.UpdatedAt,
	)
	return translate(err)
}

// CreateQuestion implements domain.DiagnosticRepository.
func (r *Repository) CreateQuestion(ctx context.Context, q domain.DiagnosticQuestion) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if err := insertQuestion(ctx, tx, q); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, contentChanged(events.EntityDiagnosticQuestion, q.ID, events.ActionCreated, q.UpdatedAt))
	})
}

// UpdateQuestion implements domain.DiagnosticRepository.
func (r *Repository) UpdateQuestion(ctx context.Context, q domain.DiagnosticQuestion) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if err := execAffecting(ctx, tx, "diagnostic question", q.ID,
			`UPDATE diagnostic_questions SET title=$2, points=$3, category_id=$4, updated_at=$5 WHERE id=$1`,
			q.ID, q.Title, q.Points, q.CategoryID, q.UpdatedAt,
		); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, contentChanged(events.EntityDiagnosticQuestion, q.ID, events.ActionUpdated, q.UpdatedAt))
	})
}

// DeleteQuestion implements domain.DiagnosticRepository.
func (r *Repository) DeleteQuestion(ctx context.Context, id string) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if err := execAffecting(ctx, tx, "diagnostic question", id, `DELETE FROM diagnostic_questions WHERE id=$1`, id); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, contentChanged(events.EntityDiagnosticQuestion, id, events.ActionDeleted, r.now()))
	})
}

// ReplaceQuestions implements domain.DiagnosticRepository. A single content.changed event covers the
// whole set.
func (r *Repository) ReplaceQuestions(ctx context.Context, questions []domain.DiagnosticQuestion) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM diagnostic_questions`); err != nil {
			return err
		}
		for _, q := range questions {
			if err := insertQuestion(ctx, tx, q); err != nil {
				return err
			}
		}
		return insertOutbox(ctx, tx, contentChanged(events.EntityDiagnosticQuestion, "*", events.ActionUpdated, r.now()))
	})
}

const resultColumns = `id, user_id, score, level, message, event_ids, created_at`

func scanResult(row pgx.CollectableRow) (domain.DiagnosticResult, error) {
	var res domain.DiagnosticResult
	err := row.Scan(&res.ID, &res.UserID, &res.Score, &res.Level, &res.Message, &res.EventIDs, &res.CreatedAt)
	res.Stored = true
	return res, err
}

// SaveResult implements domain.DiagnosticRepository and records diagnostic.completed.
func (r *Repository) SaveResult(ctx context.Context, res domain.DiagnosticResult) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO diagnostic_results (`+resultColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			res.ID, res.UserID, res.Score, res.Level, res.Message, nonNil(res.EventIDs), res.CreatedAt,
		); err != nil {
			return translate(err)
		}
		return insertOutbox(ctx, tx, outboxRecord{
			eventType:     events.TypeDiagnosticCompleted,
			aggregateType: "diagnostic_result",
			aggregateID:   res.ID,
			partitionKey:  res.UserID,
			dedupeKey:     res.ID + ":" + events.TypeDiagnosticCompleted,
			payload: events.DiagnosticCompleted{
				ResultID:    res.ID,
				UserID:      res.UserID,
				Score:       res.Score,
				Level:       string(res.Level),
				EventCount:  len(res.EventIDs),
				CompletedAt: res.CreatedAt,
			},
		})
	})
}

// GetResult implements domain.DiagnosticRepository.
func (r *Repository) GetResult(ctx context.Context, id string) (*domain.DiagnosticResult, error) {
	return getOne(ctx, r.pool, scanResult, `SELECT `+resultColumns+` FROM diagnostic_results WHERE id=$1`, id)
}

// ListResults implements domain.DiagnosticRepository with keyset pagination on (created_at, id).
func (r *Repository) ListResults(ctx context.Context, userID string, cursor *domain.Cursor, limit int) ([]domain.DiagnosticResult, *domain.Cursor, error) {
	args := []any{userID, limit + 1}
	query := `SELECT ` + resultColumns + ` FROM diagnostic_results WHERE user_id=$1`
	if cursor != nil {
		query += ` AND (created_at, id) < ($3, $4)`
		args = append(args, cursor.CreatedAt, cursor.ID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT $2`

	results, err := list(ctx, r.pool, scanResult, query, args...)
	if err != nil {
		return nil, nil, err
	}
	if len(results) <= limit {
		return results, nil, nil
	}
	results = results[:limit]
	last := results[len(results)-1]
	return results, &domain.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
}

// DeleteResult implements domain.DiagnosticRepository.
func (r *Repository) DeleteResult(ctx context.Context, id string) error {
	return execAffecting(ctx, r.pool, "diagnostic result", id, `DELETE FROM diagnostic_results WHERE id=$1`, id)
}
