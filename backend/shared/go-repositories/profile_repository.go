package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rentwell/mono-repo/backend/shared/go-models"
	"github.com/rentwell/mono-repo/backend/shared/go-utils"
)

type ProfileRepository interface {
	Create(ctx context.Context, p *models.Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

// profileRepo stores phone numbers encrypted with the shared DB key.
type profileRepo struct {
	db     DB
	encKey []byte
}

func NewProfileRepository(db DB, key []byte) ProfileRepository {
	return &profileRepo{db: db, encKey: key}
}

func baseSelectProfile() string {
	return `
        SELECT
            id, role, full_name, email, phone_number,
            stripe_connect_account_id, created_at, updated_at
        FROM profiles
    `
}

func (r *profileRepo) scanProfile(row pgx.Row) (*models.Profile, error) {
	var (
		p        models.Profile
		encPhone *string
	)
	err := row.Scan(
		&p.ID,
		&p.Role,
		&p.FullName,
		&p.Email,
		&encPhone,
		&p.StripeConnectAccountID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if encPhone != nil && *encPhone != "" {
		phone, err := utils.Decrypt(r.encKey, *encPhone)
		if err != nil {
			return nil, fmt.Errorf("decrypting phone for profile %s: %w", p.ID, err)
		}
		p.PhoneNumber = &phone
	}
	return &p, nil
}

func (r *profileRepo) Create(ctx context.Context, p *models.Profile) error {
	var encPhone *string
	if p.PhoneNumber != nil && *p.PhoneNumber != "" {
		enc, err := utils.Encrypt(r.encKey, *p.PhoneNumber)
		if err != nil {
			return err
		}
		encPhone = &enc
	}
	_, err := r.db.Exec(ctx, `
        INSERT INTO profiles (
            id, role, full_name, email, phone_number,
            stripe_connect_account_id, created_at, updated_at
        ) VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW())
    `,
		p.ID,
		p.Role,
		p.FullName,
		p.Email,
		encPhone,
		p.StripeConnectAccountID,
	)
	return err
}

func (r *profileRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	p, err := r.scanProfile(r.db.QueryRow(ctx, baseSelectProfile()+" WHERE id=$1", id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return p, err
}
