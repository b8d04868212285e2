package repository

import (
	"context"

	"toda/internal/domain"
)

// RatingRepository stores rating placeholders created when a booking
// completes. The passenger fills the rating in later from the app.
type RatingRepository interface {
	// CreatePlaceholder creates an empty rating row for a completed booking.
	CreatePlaceholder(ctx context.Context, rating *domain.Rating) error
}
