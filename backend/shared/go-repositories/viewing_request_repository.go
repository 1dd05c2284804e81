package repositories

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rentwell/mono-repo/backend/shared/go-models"
	"github.com/rentwell/mono-repo/backend/shared/go-utils"
)

// TransitionEffect tells ApplyTransition what to persist after the callback ran.
type TransitionEffect struct {
	// Unchanged skips the UPDATE; the locked row is returned as-is.
	Unchanged bool
	// EnqueueRelease inserts the payment_releases row in the same transaction.
	EnqueueRelease bool
}

// TransitionFunc validates and mutates the locked row in memory.
// Returning an error aborts the transaction with no state change.
type TransitionFunc func(vr *models.ViewingRequest) (TransitionEffect, error)

type ViewingRequestFilter struct {
	Statuses   []models.ViewingStatusType
	PropertyID *uuid.UUID
	Limit      int
	Offset     int
}

type ViewingRequestRepository interface {
	Create(ctx context.Context, vr *models.ViewingRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ViewingRequest, error)

	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.ViewingRequest, error)
	// paidOnly hides requests without a completed payment.
	ListByLandlord(ctx context.Context, landlordID uuid.UUID, paidOnly bool) ([]*models.ViewingRequest, error)
	List(ctx context.Context, f ViewingRequestFilter) ([]*models.ViewingRequest, error)

	// ApplyTransition locks the row, runs fn and writes the result atomically.
	// enqueued is true only if this call created the payment release record.
	ApplyTransition(ctx context.Context, id uuid.UUID, fn TransitionFunc) (vr *models.ViewingRequest, enqueued bool, err error)
}

type viewingRequestRepo struct {
	db DB
}

func NewViewingRequestRepository(db DB) ViewingRequestRepository {
	return &viewingRequestRepo{db: db}
}

func baseSelectViewingRequest() string {
	return `
        SELECT
            id, property_id, tenant_id, landlord_id, status,
            preferred_dates, scheduled_date,
            tenant_confirmed, landlord_confirmed,
            cancelled_by, completed_at,
            row_version, created_at, updated_at
        FROM viewing_requests
    `
}

func scanViewingRequest(row pgx.Row) (*models.ViewingRequest, error) {
	var vr models.ViewingRequest
	err := row.Scan(
		&vr.ID,
		&vr.PropertyID,
		&vr.TenantID,
		&vr.LandlordID,
		&vr.Status,
		&vr.PreferredDates,
		&vr.ScheduledDate,
		&vr.TenantConfirmed,
		&vr.LandlordConfirmed,
		&vr.CancelledBy,
		&vr.CompletedAt,
		&vr.RowVersion,
		&vr.CreatedAt,
		&vr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &vr, nil
}

func (r *viewingRequestRepo) Create(ctx context.Context, vr *models.ViewingRequest) error {
	return r.db.QueryRow(ctx, `
        INSERT INTO viewing_requests (
            id, property_id, tenant_id, landlord_id, status,
            preferred_dates, scheduled_date,
            tenant_confirmed, landlord_confirmed,
            created_at, updated_at, row_version
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,FALSE,FALSE,NOW(),NOW(),1)
        RETURNING row_version, created_at, updated_at
    `,
		vr.ID,
		vr.PropertyID,
		vr.TenantID,
		vr.LandlordID,
		vr.Status,
		vr.PreferredDates,
		vr.ScheduledDate,
	).Scan(&vr.RowVersion, &vr.CreatedAt, &vr.UpdatedAt)
}

func (r *viewingRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ViewingRequest, error) {
	vr, err := scanViewingRequest(r.db.QueryRow(ctx, baseSelectViewingRequest()+" WHERE id=$1", id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return vr, err
}

func (r *viewingRequestRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.ViewingRequest, error) {
	return r.query(ctx, baseSelectViewingRequest()+" WHERE tenant_id=$1 ORDER BY created_at DESC", tenantID)
}

func (r *viewingRequestRepo) ListByLandlord(ctx context.Context, landlordID uuid.UUID, paidOnly bool) ([]*models.ViewingRequest, error) {
	q := baseSelectViewingRequest() + " WHERE landlord_id=$1"
	if paidOnly {
		q += `
          AND EXISTS (
              SELECT 1 FROM transactions t
              WHERE t.viewing_request_id = viewing_requests.id
                AND t.payment_status = 'completed'
          )`
	}
	q += " ORDER BY created_at DESC"
	return r.query(ctx, q, landlordID)
}

func (r *viewingRequestRepo) List(ctx context.Context, f ViewingRequestFilter) ([]*models.ViewingRequest, error) {
	var (
		qb    strings.Builder
		args  []any
		conds []string
	)
	qb.WriteString(baseSelectViewingRequest())

	if len(f.Statuses) > 0 {
		st := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			st = append(st, string(s))
		}
		args = append(args, st)
		conds = append(conds, "status = ANY($"+strconv.Itoa(len(args))+")")
	}
	if f.PropertyID != nil {
		args = append(args, *f.PropertyID)
		conds = append(conds, "property_id = $"+strconv.Itoa(len(args)))
	}
	if len(conds) > 0 {
		qb.WriteString(" WHERE ")
		qb.WriteString(strings.Join(conds, " AND "))
	}
	qb.WriteString(" ORDER BY created_at DESC")

	if f.Limit > 0 {
		args = append(args, f.Limit)
		qb.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		qb.WriteString(" OFFSET $" + strconv.Itoa(len(args)))
	}
	return r.query(ctx, qb.String(), args...)
}

func (r *viewingRequestRepo) query(ctx context.Context, q string, args ...any) ([]*models.ViewingRequest, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.ViewingRequest
	for rows.Next() {
		vr, err := scanViewingRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, vr)
	}
	return out, rows.Err()
}

func (r *viewingRequestRepo) ApplyTransition(
	ctx context.Context,
	id uuid.UUID,
	fn TransitionFunc,
) (*models.ViewingRequest, bool, error) {
	var (
		result   *models.ViewingRequest
		enqueued bool
	)

	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, baseSelectViewingRequest()+" WHERE id=$1 FOR UPDATE", id)
		current, err := scanViewingRequest(row)
		if err != nil {
			return err
		}

		expectedVersion := current.RowVersion
		effect, err := fn(current)
		if err != nil {
			return err
		}
		if effect.Unchanged {
			result = current
			return nil
		}

		tag, err := tx.Exec(ctx, `
            UPDATE viewing_requests
            SET status=$1,
                scheduled_date=$2,
                tenant_confirmed=$3,
                landlord_confirmed=$4,
                cancelled_by=$5,
                completed_at=$6,
                row_version=row_version+1,
                updated_at=NOW()
            WHERE id=$7 AND row_version=$8
        `,
			current.Status,
			current.ScheduledDate,
			current.TenantConfirmed,
			current.LandlordConfirmed,
			current.CancelledBy,
			current.CompletedAt,
			id,
			expectedVersion,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() != 1 {
			return utils.ErrRowVersionConflict
		}

		if effect.EnqueueRelease {
			tag, err = tx.Exec(ctx, `
                INSERT INTO payment_releases (
                    id, viewing_request_id, status, attempts,
                    next_attempt_at, created_at, updated_at, row_version
                ) VALUES ($1,$2,'pending',0,NOW() + INTERVAL '10 minutes',NOW(),NOW(),1)
                ON CONFLICT (viewing_request_id) DO NOTHING
            `, uuid.New(), id)
			if err != nil {
				return err
			}
			// The confirming request makes the first attempt itself; the
			// sweeper only sees the row once that window has passed.
			enqueued = tag.RowsAffected() == 1
		}

		result, err = scanViewingRequest(tx.QueryRow(ctx, baseSelectViewingRequest()+" WHERE id=$1", id))
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return result, enqueued, nil
}
