package postgres

import (
	"context"
	"database/sql"

	"toda/internal/domain"
)

// RatingRepository is a PostgreSQL implementation of repository.RatingRepository.
type RatingRepository struct {
	q Querier
}

// NewRatingRepository creates a new PostgreSQL rating repository.
func NewRatingRepository(db *sql.DB) *RatingRepository {
	return &RatingRepository{q: db}
}

// CreatePlaceholder creates an empty rating row for a completed booking.
func (r *RatingRepository) CreatePlaceholder(ctx context.Context, rating *domain.Rating) error {
	query := `
		INSERT INTO ratings (id, booking_id, customer_id, driver_id, stars, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (booking_id) DO NOTHING
	`

	_, err := r.q.ExecContext(ctx, query,
		rating.ID,
		rating.BookingID,
		rating.CustomerID,
		rating.DriverID,
		rating.Stars,
		nullString(rating.Comment),
		rating.CreatedAt,
	)

	return err
}
