package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"training-workspace-service/internal/domain"
)

type embeddingSetRepo struct {
	pool *pgxpool.Pool
}

func NewEmbeddingSetRepository(pool *pgxpool.Pool) domain.EmbeddingSetRepository {
	return &embeddingSetRepo{pool: pool}
}

const embeddingColumns = `
	id, created_at, run_id, model, model_id, task, name, dim,
	train_path, test_path, train_count, test_count
`

func (r *embeddingSetRepo) Create(ctx context.Context, set *domain.EmbeddingSet) error {
	query := `
		INSERT INTO training_workspace_embedding_set
			(id, created_at, run_id, model, model_id, task, name, dim,
			 train_path, test_path, train_count, test_count)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`

	_, err := r.pool.Exec(ctx, query,
		set.ID, set.CreatedAt, set.RunID,
		string(set.Model), set.ModelID, set.Task, set.Name, set.Dim,
		set.TrainPath, set.TestPath, set.TrainCount, set.TestCount,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrEncodingConflict
		}
		return fmt.Errorf("create embedding set: %w", err)
	}
	return nil
}

func (r *embeddingSetRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.EmbeddingSet, error) {
	query := fmt.Sprintf(`SELECT %s FROM training_workspace_embedding_set WHERE id = $1`, embeddingColumns)

	set, err := scanEmbeddingSet(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEncodingNotFound
		}
		return nil, fmt.Errorf("get embedding set by id: %w", err)
	}
	return set, nil
}

func (r *embeddingSetRepo) List(ctx context.Context, filter domain.EmbeddingListFilter) ([]*domain.EmbeddingSet, int, error) {
	conditions := []string{"TRUE"}
	args := []interface{}{}
	argPos := 1

	if filter.Model != "" {
		conditions = append(conditions, fmt.Sprintf("model = $%d", argPos))
		args = append(args, filter.Model)
		argPos++
	}
	if filter.ModelID != "" {
		conditions = append(conditions, fmt.Sprintf("model_id = $%d", argPos))
		args = append(args, filter.ModelID)
		argPos++
	}
	if filter.Task != "" {
		conditions = append(conditions, fmt.Sprintf("task = $%d", argPos))
		args = append(args, filter.Task)
		argPos++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM training_workspace_embedding_set WHERE %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count embedding sets: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM training_workspace_embedding_set
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, embeddingColumns, whereClause, argPos, argPos+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list embedding sets: %w", err)
	}
	defer rows.Close()

	var sets []*domain.EmbeddingSet
	for rows.Next() {
		set, err := scanEmbeddingSet(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan embedding set row: %w", err)
		}
		sets = append(sets, set)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate embedding set rows: %w", err)
	}

	return sets, total, nil
}

func (r *embeddingSetRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM training_workspace_embedding_set WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete embedding set: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrEncodingNotFound
	}
	return nil
}

func scanEmbeddingSet(row pgx.Row) (*domain.EmbeddingSet, error) {
	set := &domain.EmbeddingSet{}
	var model string

	err := row.Scan(
		&set.ID, &set.CreatedAt, &set.RunID,
		&model, &set.ModelID, &set.Task, &set.Name, &set.Dim,
		&set.TrainPath, &set.TestPath, &set.TrainCount, &set.TestCount,
	)
	if err != nil {
		return nil, err
	}

	set.Model = domain.Algorithm(model)
	return set, nil
}
