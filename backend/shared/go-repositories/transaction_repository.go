package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rentwell/mono-repo/backend/shared/go-models"
)

type TransactionRepository interface {
	Create(ctx context.Context, t *models.Transaction) error
	GetByViewingRequestID(ctx context.Context, viewingRequestID uuid.UUID) (*models.Transaction, error)
	// MarkReleased flips a held escrow to released; it is a no-op for
	// transactions already released, so callers may repeat it.
	MarkReleased(ctx context.Context, id uuid.UUID, releaseRef string) error
}

type transactionRepo struct {
	db DB
}

func NewTransactionRepository(db DB) TransactionRepository {
	return &transactionRepo{db: db}
}

func baseSelectTransaction() string {
	return `
        SELECT
            id, viewing_request_id, amount, currency,
            payment_status, escrow_status, gateway_reference,
            release_reference, released_at,
            created_at, updated_at
        FROM transactions
    `
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(
		&t.ID,
		&t.ViewingRequestID,
		&t.Amount,
		&t.Currency,
		&t.PaymentStatus,
		&t.EscrowStatus,
		&t.GatewayReference,
		&t.ReleaseReference,
		&t.ReleasedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *transactionRepo) Create(ctx context.Context, t *models.Transaction) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO transactions (
            id, viewing_request_id, amount, currency,
            payment_status, escrow_status, gateway_reference,
            created_at, updated_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,NOW(),NOW())
    `,
		t.ID,
		t.ViewingRequestID,
		t.Amount,
		t.Currency,
		t.PaymentStatus,
		t.EscrowStatus,
		t.GatewayReference,
	)
	return err
}

// GetByViewingRequestID returns the most recent completed payment, falling
// back to the latest attempt of any status.
func (r *transactionRepo) GetByViewingRequestID(ctx context.Context, viewingRequestID uuid.UUID) (*models.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRow(ctx, baseSelectTransaction()+`
        WHERE viewing_request_id=$1
        ORDER BY (payment_status = 'completed') DESC, created_at DESC
        LIMIT 1
    `, viewingRequestID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return t, err
}

func (r *transactionRepo) MarkReleased(ctx context.Context, id uuid.UUID, releaseRef string) error {
	_, err := r.db.Exec(ctx, `
        UPDATE transactions
        SET escrow_status='released',
            release_reference=$1,
            released_at=NOW(),
            updated_at=NOW()
        WHERE id=$2 AND escrow_status='held'
    `, releaseRef, id)
	return err
}
