package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"example.com/cesizen/internal/domain"
	"example.com/cesizen/internal/platform/events"
)

const infoSelect = `SELECT i.id, i.title, i.summary, i.content, COALESCE(i.category_id, ''), i.tags, i.media_url, i.media_type,
        i.is_published, i.author_id,
        (SELECT COUNT(*) FROM likes l WHERE l.resource_id = i.id),
        (SELECT COUNT(*) FROM comments c WHERE c.resource_id = i.id),
        (SELECT COUNT(*) FROM shares s WHERE s.resource_id = i.id),
        i.created_at, i.updated_at
    FROM info_resources i`

func scanInfo(row pgx.CollectableRow) (domain.InfoResource, error) {
	var i domain.InfoResource
	err := row.Scan(&i.ID, &i.Title, &i.Summary, &i.Content, &i.CategoryID, &i.Tags, &i.MediaURL, &i.MediaType,
		&i.IsPublished, &i.AuthorID, &i.LikesCount, &i.CommentsCount, &i.SharesCount, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

// ListInfoResources implements domain.InfoRepository.
func (r *Repository) ListInfoResources(ctx context.Context) ([]domain.InfoResource, error) {
	return list(ctx, r.pool, scanInfo, infoSelect+` ORDER BY i.id`)
}

// GetInfoResource implements domain.InfoRepository.
func (r *Repository) GetInfoResource(ctx context.Context, id string) (*domain.InfoResource, error) {
	return getOne(ctx, r.pool, scanInfo, infoSelect+` WHERE i.id=$1`, id)
}

// CreateInfoResource implements domain.InfoRepository.
func (r *Repository) CreateInfoResource(ctx context.Context, i domain.InfoResource) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		const stmt = `INSERT INTO info_resources (id, title, summary, content, category_id, tags, media_url, media_type, is_published, author_id, created_at, updated_at)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
		if _, err := tx.Exec(ctx, stmt,
			i.ID, i.Title, i.Summary, i.Content, nullIfEmpty(i.CategoryID), nonNil(i.Tags), i.MediaURL, i.MediaType,
			i.IsPublished, i.AuthorID, i.CreatedAt, i.UpdatedAt,
		); err != nil {
			return translate(err)
		}
		return insertOutbox(ctx, tx, contentChanged(events.EntityInfoResource, i.ID, events.ActionCreated, i.UpdatedAt))
	})
}

// UpdateInfoResource implements domain.InfoRepository.
func (r *Repository) UpdateInfoResource(ctx context.Context, i domain.InfoResource) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		const stmt = `UPDATE info_resources SET title=$2, summary=$3, content=$4, category_id=$5, tags=$6, media_url=$7, media_type=$8,
            is_published=$9, updated_at=$10 WHERE id=$1`
		if err := execAffecting(ctx, tx, "info resource", i.ID, stmt,
			i.ID, i.Title, i.Summary, i.Content, nullIfEmpty(i.CategoryID), nonNil(i.Tags), i.MediaURL, i.MediaType,
			i.IsPublished, i.UpdatedAt,
		); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, contentChanged(events.EntityInfoResource, i.ID, events.ActionUpdated, i.UpdatedAt))
	})
}

// DeleteInfoResource implements domain.InfoRepository. Comments, likes and shares go with it through
// ON DELETE CASCADE.
func (r *Repository) DeleteInfoResource(ctx context.Context, id string) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if err := execAffecting(ctx, tx, "info resource", id, `DELETE FROM info_resources WHERE id=$1`, id); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, contentChanged(events.EntityInfoResource, id, events.ActionDeleted, r.now()))
	})
}

const commentColumns = `id, resource_id, user_id, content, created_at`

func scanComment(row pgx.CollectableRow) (domain.Comment, error) {
	var c domain.Comment
	err := row.Scan(&c.ID, &c.ResourceID, &c.UserID, &c.Content, &c.CreatedAt)
	return c, err
}

// AddComment implements domain.InfoRepository.
func (r *Repository) AddComment(ctx context.Context, c domain.Comment) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO comments (`+commentColumns+`) VALUES ($1,$2,$3,$4,$5)`,
		c.ID, c.ResourceID, c.UserID, c.Content, c.CreatedAt)
	return translate(err)
}

// GetComment implements domain.InfoRepository.
func (r *Repository) GetComment(ctx context.Context, id string) (*domain.Comment, error) {
	return getOne(ctx, r.pool, scanComment, `SELECT `+commentColumns+` FROM comments WHERE id=$1`, id)
}

// ListComments implements domain.InfoRepository.
func (r *Repository) ListComments(ctx context.Context, resourceID string) ([]domain.Comment, error) {
	return list(ctx, r.pool, scanComment, `SELECT `+commentColumns+` FROM comments WHERE resource_id=$1 ORDER BY created_at, id`, resourceID)
}

// DeleteComment implements domain.InfoRepository.
func (r *Repository) DeleteComment(ctx context.Context, id string) error {
	return execAffecting(ctx, r.pool, "comment", id, `DELETE FROM comments WHERE id=$1`, id)
}

// ToggleLike implements domain.InfoRepository.
func (r *Repository) ToggleLike(ctx context.Context, resourceID, userID string) (bool, error) {
	var liked bool
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM likes WHERE resource_id=$1 AND user_id=$2`, resourceID, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() > 0 {
			return nil
		}
		if _, err := tx.Exec(ctx, `INSERT INTO likes (resource_id, user_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`, resourceID, userID); err != nil {
			return translate(err)
		}
		liked = true
		return nil
	})
	return liked, err
}

// CountLikes implements domain.InfoRepository.
func (r *Repository) CountLikes(ctx context.Context, resourceID string) (int, error) {
	return count(ctx, r.pool, `SELECT COUNT(*) FROM likes WHERE resource_id=$1`, resourceID)
}

// HasLiked implements domain.InfoRepository.
func (r *Repository) HasLiked(ctx context.Context, resourceID, userID string) (bool, error) {
	n, err := count(ctx, r.pool, `SELECT COUNT(*) FROM likes WHERE resource_id=$1 AND user_id=$2`, resourceID, userID)
	return n > 0, err
}

// AddShare implements domain.InfoRepository.
func (r *Repository) AddShare(ctx context.Context, s domain.Share) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO shares (id, resource_id, user_id, platform, created_at) VALUES ($1,$2,$3,$4,$5)`,
		s.ID, s.ResourceID, s.UserID, s.Platform, s.CreatedAt)
	return translate(err)
}

// CountShares implements domain.InfoRepository.
func (r *Repository) CountShares(ctx context.Context, resourceID string) (int, error) {
	return count(ctx, r.pool, `SELECT COUNT(*) FROM shares WHERE resource_id=$1`, resourceID)
}
