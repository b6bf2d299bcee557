package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"training-workspace-service/internal/domain"
)

type classifierEvalRepo struct {
	pool *pgxpool.Pool
}

func NewClassifierEvalRepository(pool *pgxpool.Pool) domain.ClassifierEvalRepository {
	return &classifierEvalRepo{pool: pool}
}

const evalColumns = `
	id, created_at, embedding_set_id, classifier_path, accuracy,
	train_samples, test_samples, max_iter
`

func (r *classifierEvalRepo) Create(ctx context.Context, eval *domain.ClassifierEval) error {
	query := `
		INSERT INTO training_workspace_classifier_eval
			(id, created_at, embedding_set_id, classifier_path, accuracy,
			 train_samples, test_samples, max_iter)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`

	_, err := r.pool.Exec(ctx, query,
		eval.ID, eval.CreatedAt, eval.EmbeddingSetID, eval.ClassifierPath,
		eval.Accuracy, eval.TrainSamples, eval.TestSamples, eval.MaxIter,
	)
	if err != nil {
		return fmt.Errorf("create classifier eval: %w", err)
	}
	return nil
}

func (r *classifierEvalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ClassifierEval, error) {
	query := fmt.Sprintf(`SELECT %s FROM training_workspace_classifier_eval WHERE id = $1`, evalColumns)

	eval, err := scanEval(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEvalNotFound
		}
		return nil, fmt.Errorf("get classifier eval by id: %w", err)
	}
	return eval, nil
}

func (r *classifierEvalRepo) List(ctx context.Context, filter domain.EvalListFilter) ([]*domain.ClassifierEval, int, error) {
	conditions := []string{"TRUE"}
	args := []interface{}{}
	argPos := 1

	if filter.EmbeddingSetID != nil {
		conditions = append(conditions, fmt.Sprintf("embedding_set_id = $%d", argPos))
		args = append(args, *filter.EmbeddingSetID)
		argPos++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM training_workspace_classifier_eval WHERE %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count classifier evals: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM training_workspace_classifier_eval
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, evalColumns, whereClause, argPos, argPos+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list classifier evals: %w", err)
	}
	defer rows.Close()

	var evals []*domain.ClassifierEval
	for rows.Next() {
		eval, err := scanEval(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan classifier eval row: %w", err)
		}
		evals = append(evals, eval)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate classifier eval rows: %w", err)
	}

	return evals, total, nil
}

func scanEval(row pgx.Row) (*domain.ClassifierEval, error) {
	eval := &domain.ClassifierEval{}
	err := row.Scan(
		&eval.ID, &eval.CreatedAt, &eval.EmbeddingSetID, &eval.ClassifierPath,
		&eval.Accuracy, &eval.TrainSamples, &eval.TestSamples, &eval.MaxIter,
	)
	if err != nil {
		return nil, err
	}
	return eval, nil
}
