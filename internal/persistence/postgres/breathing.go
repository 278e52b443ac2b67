package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"example.com/cesizen/internal/domain"
	"example.com/cesizen/internal/platform/events"
)

const exerciseColumns = `id, name, description, inspiration, apnea, expiration, cycles, difficulty`

func scanExercise(row pgx.CollectableRow) (domain.BreathingExercise, error) {
	var e domain.BreathingExercise
	err := row.Scan(&e.ID, &e.Name, &e.Description, &e.Inspiration, &e.Apnea, &e.Expiration, &e.Cycles, &e.Difficulty)
	return e.WithDerived(), err
}

// ListBreathingExercises implements domain.BreathingRepository.
func (r *Repository) ListBreathingExercises(ctx context.Context) ([]domain.BreathingExercise, error) {
	return list(ctx, r.pool, scanExercise, `SELECT `+exerciseColumns+` FROM breathing_exercises ORDER BY id`)
}

// GetBreathingExercise implements domain.BreathingRepository.
func (r *Repository) GetBreathingExercise(ctx context.Context, id string) (*domain.BreathingExercise, error) {
	return getOne(ctx, r.pool, scanExercise, `SELECT `+exerciseColumns+` FROM breathing_exercises WHERE id=$1`, id)
}

// UpsertBreathingExercise implements domain.BreathingRepository.
func (r *Repository) UpsertBreathingExercise(ctx context.Context, e domain.BreathingExercise) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		const stmt = `INSERT INTO breathing_exercises (` + exerciseColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
            ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, description=EXCLUDED.description, inspiration=EXCLUDED.inspiration,
            apnea=EXCLUDED.apnea, expiration=EXCLUDED.expiration, cycles=EXCLUDED.cycles, difficulty=EXCLUDED.difficulty`
		if _, err := tx.Exec(ctx, stmt, e.ID, e.Name, e.Description, e.Inspiration, e.Apnea, e.Expiration, e.Cycles, e.Difficulty); err != nil {
			return translate(err)
		}
		return insertOutbox(ctx, tx, contentChanged(events.EntityBreathingExercise, e.ID, events.ActionUpdated, r.now()))
	})
}
