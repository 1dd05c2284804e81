package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/rentwell/mono-repo/backend/shared/go-models"
)

type PaymentReleaseRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.PaymentRelease, error)
	GetByViewingRequestID(ctx context.Context, viewingRequestID uuid.UUID) (*models.PaymentRelease, error)
	ListByStatus(ctx context.Context, statuses []models.ReleaseStatusType, limit int) ([]*models.PaymentRelease, error)

	// ClaimDue leases up to limit unsettled releases whose next attempt is due,
	// pushing next_attempt_at to leaseUntil so concurrent sweepers skip them.
	ClaimDue(ctx context.Context, now, leaseUntil time.Time, limit int) ([]*models.PaymentRelease, error)

	UpdateIfVersion(ctx context.Context, pr *models.PaymentRelease, expected int64) (pgconn.CommandTag, error)
	UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.PaymentRelease) error) error
}

type paymentReleaseRepo struct {
	*BaseVersionedRepo[*models.PaymentRelease]
	db DB
}

func NewPaymentReleaseRepository(db DB) PaymentReleaseRepository {
	r := &paymentReleaseRepo{db: db}
	r.BaseVersionedRepo = NewBaseRepo(db, baseSelectPaymentRelease()+" WHERE id=$1", scanPaymentRelease)
	return r
}

func baseSelectPaymentRelease() string {
	return `
        SELECT
            id, viewing_request_id, status, attempts, last_error,
            next_attempt_at, released_at,
            row_version, created_at, updated_at
        FROM payment_releases
    `
}

func scanPaymentRelease(row pgx.Row) (*models.PaymentRelease, error) {
	var pr models.PaymentRelease
	err := row.Scan(
		&pr.ID,
		&pr.ViewingRequestID,
		&pr.Status,
		&pr.Attempts,
		&pr.LastError,
		&pr.NextAttemptAt,
		&pr.ReleasedAt,
		&pr.RowVersion,
		&pr.CreatedAt,
		&pr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pr, nil
}

func (r *paymentReleaseRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.PaymentRelease, error) {
	return r.BaseVersionedRepo.GetByID(ctx, id.String())
}

func (r *paymentReleaseRepo) GetByViewingRequestID(ctx context.Context, viewingRequestID uuid.UUID) (*models.PaymentRelease, error) {
	pr, err := scanPaymentRelease(r.db.QueryRow(ctx, baseSelectPaymentRelease()+" WHERE viewing_request_id=$1", viewingRequestID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return pr, err
}

func (r *paymentReleaseRepo) ListByStatus(ctx context.Context, statuses []models.ReleaseStatusType, limit int) ([]*models.PaymentRelease, error) {
	st := make([]string, 0, len(statuses))
	for _, s := range statuses {
		st = append(st, string(s))
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, baseSelectPaymentRelease()+`
        WHERE status = ANY($1)
        ORDER BY next_attempt_at
        LIMIT $2
    `, st, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPaymentReleases(rows)
}

func (r *paymentReleaseRepo) ClaimDue(ctx context.Context, now, leaseUntil time.Time, limit int) ([]*models.PaymentRelease, error) {
	rows, err := r.db.Query(ctx, `
        UPDATE payment_releases
        SET next_attempt_at=$1, row_version=row_version+1, updated_at=NOW()
        WHERE id IN (
            SELECT id FROM payment_releases
            WHERE status IN ('pending','deferred')
              AND next_attempt_at <= $2
            ORDER BY next_attempt_at
            LIMIT $3
            FOR UPDATE SKIP LOCKED
        )
        RETURNING
            id, viewing_request_id, status, attempts, last_error,
            next_attempt_at, released_at,
            row_version, created_at, updated_at
    `, leaseUntil, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPaymentReleases(rows)
}

func (r *paymentReleaseRepo) UpdateIfVersion(ctx context.Context, pr *models.PaymentRelease, expected int64) (pgconn.CommandTag, error) {
	return r.db.Exec(ctx, `
        UPDATE payment_releases
        SET status=$1,
            attempts=$2,
            last_error=$3,
            next_attempt_at=$4,
            released_at=$5,
            row_version=row_version+1,
            updated_at=NOW()
        WHERE id=$6 AND row_version=$7
    `,
		pr.Status,
		pr.Attempts,
		pr.LastError,
		pr.NextAttemptAt,
		pr.ReleasedAt,
		pr.ID,
		expected,
	)
}

func (r *paymentReleaseRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.PaymentRelease) error) error {
	return r.BaseVersionedRepo.UpdateWithRetry(ctx, id.String(), mutate, r.UpdateIfVersion)
}

func collectPaymentReleases(rows pgx.Rows) ([]*models.PaymentRelease, error) {
	var out []*models.PaymentRelease
	for rows.Next() {
		pr, err := scanPaymentRelease(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}
