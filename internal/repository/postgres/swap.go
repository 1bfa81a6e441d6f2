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

const swapColumns = `id, proposer_username, proposer_tool_id, receiver_username, receiver_tool_id, status, proposed_date, accepted_date, version`

type swapRepository struct {
	db DBTX
}

func NewSwapRepository(db DBTX) repository.SwapRepository {
	return &swapRepository{db: db}
}

func (r *swapRepository) Create(ctx context.Context, s *domain.Swap) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.ProposedDate.IsZero() {
		s.ProposedDate = time.Now().UTC()
	}
	query := `INSERT INTO swaps (id, proposer_username, proposer_tool_id, receiver_username, receiver_tool_id, status, proposed_date, version)
	          SELECT COALESCE(MAX(id), 0) + 1, $1, $2, $3, $4, $5, $6, 1 FROM swaps
	          RETURNING id, version`
	logger.DatabaseCall("swaps.create", query, "proposer", s.ProposerUsername, "receiver", s.ReceiverUsername)
	err := r.db.QueryRowContext(ctx, query,
		s.ProposerUsername, s.ProposerToolID, s.ReceiverUsername, s.ReceiverToolID, string(s.Status), s.ProposedDate,
	).Scan(&s.ID, &s.Version)
	if err != nil {
		logger.DatabaseResult("swaps.create", 0, err)
		return mapError(err, "swap")
	}
	logger.DatabaseResult("swaps.create", 1, nil, "id", s.ID)
	return nil
}

func (r *swapRepository) GetByID(ctx context.Context, id int64) (*domain.Swap, error) {
	query := `SELECT ` + swapColumns + ` FROM swaps WHERE id = $1`
	s, err := scanSwap(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("swap %d", id))
	}
	return s, nil
}

func (r *swapRepository) FindWhere(ctx context.Context, f domain.SwapFilter) ([]domain.Swap, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.ProposerUsername != "" {
		add("proposer_username = $%d", f.ProposerUsername)
	}
	if f.ReceiverUsername != "" {
		add("receiver_username = $%d", f.ReceiverUsername)
	}
	if f.Participant != "" {
		args = append(args, f.Participant)
		n := len(args)
		conds = append(conds, fmt.Sprintf("(proposer_username = $%d OR receiver_username = $%d)", n, n))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		add("status = ANY($%d)", pq.Array(statuses))
	}

	query := `SELECT ` + swapColumns + ` FROM swaps`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var swaps []domain.Swap
	for rows.Next() {
		s, err := scanSwap(rows)
		if err != nil {
			return nil, err
		}
		swaps = append(swaps, *s)
	}
	return swaps, rows.Err()
}

func (r *swapRepository) UpdateFields(ctx context.Context, id int64, patch domain.SwapPatch) (*domain.Swap, error) {
	var (
		status   sql.NullString
		accepted sql.NullTime
	)
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, domain.NewValidationError("status %q is invalid", *patch.Status)
		}
		status = sql.NullString{String: string(*patch.Status), Valid: true}
	}
	if patch.AcceptedDate != nil {
		accepted = sql.NullTime{Time: *patch.AcceptedDate, Valid: true}
	}
	query := `UPDATE swaps SET status = COALESCE($1, status), accepted_date = COALESCE($2, accepted_date), version = version + 1
	          WHERE id = $3 AND ($4 = 0 OR version = $4)
	          RETURNING ` + swapColumns
	logger.DatabaseCall("swaps.update", query, "id", id)
	s, err := scanSwap(r.db.QueryRowContext(ctx, query, status, accepted, id, patch.ExpectedVersion))
	if err == sql.ErrNoRows {
		return nil, versionMiss(ctx, r.db, "swaps", "swap", id, patch.ExpectedVersion)
	}
	if err != nil {
		logger.DatabaseResult("swaps.update", 0, err)
		return nil, mapError(err, fmt.Sprintf("swap %d", id))
	}
	logger.DatabaseResult("swaps.update", 1, nil)
	return s, nil
}

func scanSwap(sc scanner) (*domain.Swap, error) {
	s := &domain.Swap{}
	var (
		status   string
		accepted sql.NullTime
	)
	if err := sc.Scan(&s.ID, &s.ProposerUsername, &s.ProposerToolID, &s.ReceiverUsername, &s.ReceiverToolID,
		&status, &s.ProposedDate, &accepted, &s.Version); err != nil {
		return nil, err
	}
	s.Status = domain.SwapStatus(status)
	if accepted.Valid {
		at := accepted.Time
		s.AcceptedDate = &at
	}
	return s, nil
}
