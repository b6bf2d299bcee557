package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"training-workspace-service/internal/domain"
)

type trainingRunRepo struct {
	pool *pgxpool.Pool
}

func NewTrainingRunRepository(pool *pgxpool.Pool) domain.TrainingRunRepository {
	return &trainingRunRepo{pool: pool}
}

const runColumns = `
	id, created_at, updated_at, algorithm, dataset_name, dataset_path,
	checkpoint_path, batch_size, epochs, out_features, tau, tau_s,
	label_range, seed, launch_mode, job_name, status, current_epoch,
	last_loss, error_message, finished_at
`

func (r *trainingRunRepo) Create(ctx context.Context, run *domain.TrainingRun) error {
	query := `
		INSERT INTO training_workspace_run
			(id, created_at, updated_at, algorithm, dataset_name, dataset_path,
			 checkpoint_path, batch_size, epochs, out_features, tau, tau_s,
			 label_range, seed, launch_mode, job_name, status, current_epoch,
			 last_loss, error_message, finished_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
	`

	_, err := r.pool.Exec(ctx, query,
		run.ID, run.CreatedAt, run.UpdatedAt,
		string(run.Algorithm), run.DatasetName, run.DatasetPath,
		run.CheckpointPath, run.BatchSize, run.Epochs, run.OutFeatures,
		run.Tau, run.TauS, run.LabelRange, run.Seed,
		string(run.LaunchMode), run.JobName, string(run.Status),
		run.CurrentEpoch, run.LastLoss, run.Error, run.FinishedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrRunConflict
		}
		return fmt.Errorf("create training run: %w", err)
	}
	return nil
}

func (r *trainingRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.TrainingRun, error) {
	query := fmt.Sprintf(`SELECT %s FROM training_workspace_run WHERE id = $1`, runColumns)

	run, err := scanRun(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("get training run by id: %w", err)
	}
	return run, nil
}

func (r *trainingRunRepo) List(ctx context.Context, filter domain.RunListFilter) ([]*domain.TrainingRun, int, error) {
	conditions := []string{"TRUE"}
	args := []interface{}{}
	argPos := 1

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, filter.Status)
		argPos++
	}
	if filter.Algorithm != "" {
		conditions = append(conditions, fmt.Sprintf("algorithm = $%d", argPos))
		args = append(args, filter.Algorithm)
		argPos++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM training_workspace_run WHERE %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count training runs: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM training_workspace_run
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, runColumns, whereClause, argPos, argPos+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list training runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.TrainingRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan training run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate training run rows: %w", err)
	}

	return runs, total, nil
}

func (r *trainingRunRepo) UpdateCheckpoint(ctx context.Context, id uuid.UUID, checkpointPath string) error {
	query := `
		UPDATE training_workspace_run
		SET checkpoint_path=$1, updated_at=NOW()
		WHERE id=$2
	`
	result, err := r.pool.Exec(ctx, query, checkpointPath, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrRunConflict
		}
		return fmt.Errorf("update training run checkpoint: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrRunNotFound
	}
	return nil
}

func (r *trainingRunRepo) UpdateProgress(ctx context.Context, id uuid.UUID, epoch int, loss float64) error {
	query := `
		UPDATE training_workspace_run
		SET current_epoch=$1, last_loss=$2, updated_at=NOW()
		WHERE id=$3
	`
	result, err := r.pool.Exec(ctx, query, epoch, loss, id)
	if err != nil {
		return fmt.Errorf("update training run progress: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrRunNotFound
	}
	return nil
}

func (r *trainingRunRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.RunStatus, errMsg string, finishedAt *time.Time) error {
	query := `
		UPDATE training_workspace_run
		SET status=$1, error_message=$2, finished_at=$3, updated_at=NOW()
		WHERE id=$4
	`
	result, err := r.pool.Exec(ctx, query, string(status), errMsg, finishedAt, id)
	if err != nil {
		return fmt.Errorf("update training run status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrRunNotFound
	}
	return nil
}

func (r *trainingRunRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM training_workspace_run WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete training run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrRunNotFound
	}
	return nil
}

// scanRun scans a TrainingRun from a pgx.Row or pgx.Rows.
func scanRun(row pgx.Row) (*domain.TrainingRun, error) {
	run := &domain.TrainingRun{}
	var algorithm, launchMode, status string

	err := row.Scan(
		&run.ID, &run.CreatedAt, &run.UpdatedAt,
		&algorithm, &run.DatasetName, &run.DatasetPath,
		&run.CheckpointPath, &run.BatchSize, &run.Epochs, &run.OutFeatures,
		&run.Tau, &run.TauS, &run.LabelRange, &run.Seed,
		&launchMode, &run.JobName, &status,
		&run.CurrentEpoch, &run.LastLoss, &run.Error, &run.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Algorithm = domain.Algorithm(algorithm)
	run.LaunchMode = domain.LaunchMode(launchMode)
	run.Status = domain.RunStatus(status)
	return run, nil
}
