package enrichment

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Request variants.
const (
	VariantDownload      = "download"
	VariantLeadDiscovery = "leadfeeder"
)

// Request statuses.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// PendingContact carries everything needed to create the CRM person
// once the enrichment callback delivers an email address.
type PendingContact struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	OrgID       int64  `json:"org_id"`
	OwnerID     int64  `json:"owner_id"`
	JobTitle    string `json:"job_title"`
	LinkedInURL string `json:"linkedin_url"`
}

// Request is a pending or completed enrichment correlated by the
// provider-issued enrichment id.
type Request struct {
	EnrichmentID string
	DealID       int64
	PersonID     *int64
	Variant      string
	Status       string
	Pending      *PendingContact
}

// RequestRepo persists enrichment requests.
type RequestRepo struct {
	pool *pgxpool.Pool
}

// NewRequestRepo creates the enrichment request repository.
func NewRequestRepo(pool *pgxpool.Pool) *RequestRepo {
	return &RequestRepo{pool: pool}
}

// Save stores a new pending request.
func (r *RequestRepo) Save(ctx context.Context, req Request) error {
	var pending []byte
	if req.Pending != nil {
		var err error
		pending, err = json.Marshal(req.Pending)
		if err != nil {
			return err
		}
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO enrichment_requests (enrichment_id, deal_id, person_id, variant, status, pending_contact)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		req.EnrichmentID, req.DealID, req.PersonID, req.Variant, StatusPending, pending,
	)
	return err
}

// Get loads a request by enrichment id; ok=false when unknown.
func (r *RequestRepo) Get(ctx context.Context, enrichmentID string) (Request, bool, error) {
	var (
		req     Request
		pending []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT enrichment_id, deal_id, person_id, variant, status, pending_contact
		 FROM enrichment_requests WHERE enrichment_id = $1`,
		enrichmentID,
	).Scan(&req.EnrichmentID, &req.DealID, &req.PersonID, &req.Variant, &req.Status, &pending)
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, false, nil
	}
	if err != nil {
		return Request{}, false, err
	}
	if len(pending) > 0 {
		var pc PendingContact
		if err := json.Unmarshal(pending, &pc); err != nil {
			return Request{}, false, err
		}
		req.Pending = &pc
	}
	return req, true, nil
}

// MarkCompleted transitions a request to completed.
func (r *RequestRepo) MarkCompleted(ctx context.Context, enrichmentID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE enrichment_requests SET status = $1 WHERE enrichment_id = $2`,
		StatusCompleted, enrichmentID,
	)
	return err
}

// ClaimRepo guards stage triggers so each deal fires each trigger once,
// no matter how many webhook revisions arrive.
type ClaimRepo struct {
	pool *pgxpool.Pool
}

// NewClaimRepo creates the trigger claim repository.
func NewClaimRepo(pool *pgxpool.Pool) *ClaimRepo {
	return &ClaimRepo{pool: pool}
}

// Claim records that the deal fired the action. Returns false when the
// claim already exists.
func (r *ClaimRepo) Claim(ctx context.Context, dealID int64, action string) (bool, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO deal_claims (deal_id, action_type) VALUES ($1, $2)`, dealID, action)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Reset clears all claims. Run at startup alongside the event ledger
// reset so stage entries missed during downtime can fire on redelivery.
func (r *ClaimRepo) Reset(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM deal_claims`)
	return err
}
