package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"toolshare-backend/internal/domain"
	"toolshare-backend/internal/logger"
	"toolshare-backend/internal/repository"
)

const toolColumns = `id, owner_username, title, description, tool_type, brand, condition, hourly_rate, daily_rate, deposit, available, neighborhood, latitude, longitude, rating, review_count, image_path, created_at, version`

type toolRepository struct {
	db DBTX
}

func NewToolRepository(db DBTX) repository.ToolRepository {
	return &toolRepository{db: db}
}

// Create allocates max(id)+1 inside the insert. Two concurrent inserts that
// pick the same id fail one of them with a conflict.
func (r *toolRepository) Create(ctx context.Context, t *domain.Tool) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO tools (` + toolColumns + `)
	          SELECT COALESCE(MAX(id), 0) + 1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, 1 FROM tools
	          RETURNING id, version`
	logger.DatabaseCall("tools.create", query, "owner", t.OwnerUsername)
	err := r.db.QueryRowContext(ctx, query,
		t.OwnerUsername, t.Title, t.Description, t.ToolType, t.Brand, t.Condition,
		t.HourlyRate, t.DailyRate, t.Deposit, t.Available, t.Neighborhood,
		t.Latitude, t.Longitude, t.Rating, t.ReviewCount, t.ImagePath, t.CreatedAt,
	).Scan(&t.ID, &t.Version)
	if err != nil {
		logger.DatabaseResult("tools.create", 0, err)
		return mapError(err, fmt.Sprintf("tool owned by %q", t.OwnerUsername))
	}
	logger.DatabaseResult("tools.create", 1, nil, "id", t.ID)
	return nil
}

func (r *toolRepository) GetByID(ctx context.Context, id int64) (*domain.Tool, error) {
	query := `SELECT ` + toolColumns + ` FROM tools WHERE id = $1`
	t, err := scanTool(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("tool %d", id))
	}
	return t, nil
}

func (r *toolRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Tool, error) {
	query := `SELECT ` + toolColumns + ` FROM tools WHERE id = $1 FOR UPDATE`
	t, err := scanTool(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("tool %d", id))
	}
	return t, nil
}

func (r *toolRepository) FindWhere(ctx context.Context, f domain.ToolFilter) ([]domain.Tool, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if len(f.IDs) > 0 {
		add("id = ANY($%d)", pq.Array(f.IDs))
	}
	if f.OwnerUsername != "" {
		add("owner_username = $%d", f.OwnerUsername)
	}
	if f.ToolType != "" {
		add("LOWER(tool_type) = LOWER($%d)", f.ToolType)
	}
	if f.Neighborhood != "" {
		add("LOWER(neighborhood) = LOWER($%d)", f.Neighborhood)
	}
	if f.MaxDailyRate != nil {
		add("daily_rate <= $%d", *f.MaxDailyRate)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+q+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d OR brand ILIKE $%d)", n, n, n))
	}
	if f.AvailableOnly {
		conds = append(conds, "available")
	}

	query := `SELECT ` + toolColumns + ` FROM tools`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tools []domain.Tool
	for rows.Next() {
		t, err := scanTool(rows)
		if err != nil {
			return nil, err
		}
		tools = append(tools, *t)
	}
	return tools, rows.Err()
}

func (r *toolRepository) UpdateFields(ctx context.Context, id int64, patch domain.ToolPatch) (*domain.Tool, error) {
	var available sql.NullBool
	if patch.Available != nil {
		available = sql.NullBool{Bool: *patch.Available, Valid: true}
	}
	query := `UPDATE tools SET available = COALESCE($1, available), version = version + 1
	          WHERE id = $2 AND ($3 = 0 OR version = $3)
	          RETURNING ` + toolColumns
	logger.DatabaseCall("tools.update", query, "id", id)
	t, err := scanTool(r.db.QueryRowContext(ctx, query, available, id, patch.ExpectedVersion))
	if err == sql.ErrNoRows {
		return nil, versionMiss(ctx, r.db, "tools", "tool", id, patch.ExpectedVersion)
	}
	if err != nil {
		logger.DatabaseResult("tools.update", 0, err)
		return nil, mapError(err, fmt.Sprintf("tool %d", id))
	}
	logger.DatabaseResult("tools.update", 1, nil)
	return t, nil
}

// versionMiss explains an UPDATE that matched no row: either the row is
// missing or its version moved on.
func versionMiss(ctx context.Context, db DBTX, table, what string, id, expected int64) error {
	var current int64
	err := db.QueryRowContext(ctx, `SELECT version FROM `+table+` WHERE id = $1`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return domain.NewNotFoundError("%s %d not found", what, id)
	}
	if err != nil {
		return err
	}
	return domain.NewConflictError("%s %d is at version %d, expected %d", what, id, current, expected)
}

func scanTool(s scanner) (*domain.Tool, error) {
	t := &domain.Tool{}
	err := s.Scan(&t.ID, &t.OwnerUsername, &t.Title, &t.Description, &t.ToolType, &t.Brand, &t.Condition,
		&t.HourlyRate, &t.DailyRate, &t.Deposit, &t.Available, &t.Neighborhood,
		&t.Latitude, &t.Longitude, &t.Rating, &t.ReviewCount, &t.ImagePath, &t.CreatedAt, &t.Version)
	if err != nil {
		return nil, err
	}
	return t, nil
}
