package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rentwell/mono-repo/backend/shared/go-models"
)

type PropertyRepository interface {
	Create(ctx context.Context, p *models.Property) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error)
}

type propertyRepo struct {
	db DB
}

func NewPropertyRepository(db DB) PropertyRepository {
	return &propertyRepo{db: db}
}

func baseSelectProperty() string {
	return `
        SELECT
            id, owner_id, title, address, city,
            viewing_fee, currency, latitude, longitude, time_zone,
            created_at
        FROM properties
    `
}

func scanProperty(row pgx.Row) (*models.Property, error) {
	var p models.Property
	err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Title,
		&p.Address,
		&p.City,
		&p.ViewingFee,
		&p.Currency,
		&p.Latitude,
		&p.Longitude,
		&p.TimeZone,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *propertyRepo) Create(ctx context.Context, p *models.Property) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO properties (
            id, owner_id, title, address, city,
            viewing_fee, currency, latitude, longitude, time_zone,
            created_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW())
    `,
		p.ID,
		p.OwnerID,
		p.Title,
		p.Address,
		p.City,
		p.ViewingFee,
		p.Currency,
		p.Latitude,
		p.Longitude,
		p.TimeZone,
	)
	return err
}

func (r *propertyRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	p, err := scanProperty(r.db.QueryRow(ctx, baseSelectProperty()+" WHERE id=$1", id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return p, err
}
