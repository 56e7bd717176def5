package sync

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// externalKey formats a CRM record id for the text external_id column.
// The column stays text so non-numeric source ids can be mapped later.
func externalKey(externalID int64) string {
	return strconv.FormatInt(externalID, 10)
}

// IdentityRepo persists the mapping from CRM records to ERP records.
type IdentityRepo struct {
	pool *pgxpool.Pool
}

// NewIdentityRepo creates the identity mapping repository.
func NewIdentityRepo(pool *pgxpool.Pool) *IdentityRepo {
	return &IdentityRepo{pool: pool}
}

// Get returns the ERP id mapped to an external record, or ok=false.
func (r *IdentityRepo) Get(ctx context.Context, objectType string, externalID int64) (int64, bool, error) {
	var erpID int64
	err := r.pool.QueryRow(ctx,
		`SELECT erp_id FROM identity_mappings WHERE object_type = $1 AND external_id = $2`,
		objectType, externalKey(externalID),
	).Scan(&erpID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return erpID, true, nil
}

// Set stores or replaces a mapping.
func (r *IdentityRepo) Set(ctx context.Context, objectType string, externalID, erpID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO identity_mappings (object_type, external_id, erp_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (object_type, external_id)
		 DO UPDATE SET erp_id = EXCLUDED.erp_id, updated_at = now()`,
		objectType, externalKey(externalID), erpID,
	)
	return err
}

// LedgerRepo records processed webhook event keys for deduplication.
type LedgerRepo struct {
	pool *pgxpool.Pool
}

// NewLedgerRepo creates the event ledger repository.
func NewLedgerRepo(pool *pgxpool.Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Claim atomically records an event key. It returns false when the key
// was already claimed; the insert race is the deduplication mechanism.
func (r *LedgerRepo) Claim(ctx context.Context, eventKey string) (bool, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sync_events (event_key) VALUES ($1)`, eventKey)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Reset clears the ledger. Run at startup so events dropped during
// downtime can be redelivered and processed.
func (r *LedgerRepo) Reset(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sync_events`)
	return err
}
