package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/domain"
)

// DecisionRepository handles PostgreSQL operations for classification
// decisions.
//
//	CREATE TABLE circuit_decisions (
//	    id          UUID PRIMARY KEY,
//	    model_name  TEXT NOT NULL,
//	    chan_id     BIGINT NOT NULL,
//	    circ_id     BIGINT NOT NULL,
//	    cell_count  INTEGER NOT NULL,
//	    detected    BOOLEAN NOT NULL,
//	    confidence  DOUBLE PRECISION NOT NULL,
//	    stages      JSONB NOT NULL,
//	    request_id  TEXT,
//	    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type DecisionRepository struct {
	db *sql.DB
}

func NewDecisionRepository(db *sql.DB) *DecisionRepository {
	return &DecisionRepository{db: db}
}

func (r *DecisionRepository) Create(ctx context.Context, rec *domain.DecisionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	query := `
		INSERT INTO circuit_decisions (
			id, model_name, chan_id, circ_id, cell_count,
			detected, confidence, stages, request_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	stages := rec.Decision.Stages
	if stages == nil {
		stages = []domain.StageResult{}
	}
	stagesJSON, err := json.Marshal(stages)
	if err != nil {
		return fmt.Errorf("failed to marshal stages: %w", err)
	}

	var requestID sql.NullString
	if rec.RequestID != "" {
		requestID = sql.NullString{String: rec.RequestID, Valid: true}
	}

	var createdAt time.Time
	err = r.db.QueryRowContext(ctx, query,
		rec.ID,
		rec.ModelName,
		int64(rec.ChanID),
		int64(rec.CircID),
		rec.CellCount,
		rec.Decision.Detected,
		rec.Decision.Confidence,
		stagesJSON,
		requestID,
	).Scan(&createdAt)
	if err != nil {
		return fmt.Errorf("failed to create decision: %w", err)
	}

	rec.CreatedAt = createdAt
	return nil
}

const selectDecision = `
	SELECT id, model_name, chan_id, circ_id, cell_count,
	       detected, confidence, stages, request_id, created_at
	FROM circuit_decisions
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDecision(row rowScanner) (*domain.DecisionRecord, error) {
	var (
		rec            domain.DecisionRecord
		chanID, circID int64
		stagesJSON     []byte
		requestID      sql.NullString
	)
	err := row.Scan(
		&rec.ID,
		&rec.ModelName,
		&chanID,
		&circID,
		&rec.CellCount,
		&rec.Decision.Detected,
		&rec.Decision.Confidence,
		&stagesJSON,
		&requestID,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.ChanID, rec.CircID = uint64(chanID), uint64(circID)
	rec.RequestID = requestID.String
	if len(stagesJSON) > 0 {
		if err := json.Unmarshal(stagesJSON, &rec.Decision.Stages); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stages: %w", err)
		}
	}
	return &rec, nil
}

func (r *DecisionRepository) GetByID(ctx context.Context, id string) (*domain.DecisionRecord, error) {
	rec, err := scanDecision(r.db.QueryRowContext(ctx, selectDecision+`WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrDecisionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get decision: %w", err)
	}
	return rec, nil
}

// ListByModel returns the newest decisions of one model first.
func (r *DecisionRepository) ListByModel(ctx context.Context, modelName string, limit int) ([]*domain.DecisionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		selectDecision+`WHERE model_name = $1 ORDER BY created_at DESC LIMIT $2`,
		modelName, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	var out []*domain.DecisionRecord
	for rows.Next() {
		rec, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DetectionRate is the fraction of positive decisions for a model since t.
func (r *DecisionRepository) DetectionRate(ctx context.Context, modelName string, since time.Time) (float64, int64, error) {
	var total, detected int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE detected)
		FROM circuit_decisions
		WHERE model_name = $1 AND created_at >= $2
	`, modelName, since).Scan(&total, &detected)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to compute detection rate: %w", err)
	}
	if total == 0 {
		return 0, 0, nil
	}
	return float64(detected) / float64(total), total, nil
}
