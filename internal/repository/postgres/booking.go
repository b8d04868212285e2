package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"toda/internal/domain"
	"toda/internal/repository"
)

// BookingRepository is a PostgreSQL implementation of repository.BookingRepository.
type BookingRepository struct {
	q Querier
}

// NewBookingRepository creates a new PostgreSQL booking repository.
func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{q: db}
}

// NewBookingRepositoryWithTx creates a booking repository using a transaction.
func NewBookingRepositoryWithTx(tx *sql.Tx) *BookingRepository {
	return &BookingRepository{q: tx}
}

// Create persists a new booking.
func (r *BookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	query := `
		INSERT INTO bookings (id, customer_id, customer_name, customer_phone, pickup_lat, pickup_lng, pickup_name, dropoff_lat, dropoff_lng, dropoff_name, estimated_fare, actual_fare, status, assigned_driver_id, tricycle_id, verification_code, arrived_at_pickup, arrived_at_pickup_at, no_show_reported, no_show_reported_at, cancelled_by, cancel_reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`

	_, err := r.q.ExecContext(ctx, query,
		booking.ID,
		booking.CustomerID,
		booking.CustomerName,
		booking.CustomerPhone,
		booking.PickupLat,
		booking.PickupLng,
		booking.PickupName,
		booking.DropoffLat,
		booking.DropoffLng,
		booking.DropoffName,
		booking.EstimatedFare,
		booking.ActualFare,
		booking.Status,
		nullString(booking.AssignedDriverID),
		nullString(booking.TricycleID),
		booking.VerificationCode,
		booking.ArrivedAtPickup,
		nullTime(booking.ArrivedAtPickupAt),
		booking.NoShowReported,
		nullTime(booking.NoShowReportedAt),
		nullString(booking.CancelledBy),
		nullString(booking.CancelReason),
		booking.CreatedAt,
	)

	return err
}

const bookingColumns = `id, customer_id, customer_name, customer_phone, pickup_lat, pickup_lng, pickup_name, dropoff_lat, dropoff_lng, dropoff_name, estimated_fare, actual_fare, status, assigned_driver_id, tricycle_id, verification_code, arrived_at_pickup, arrived_at_pickup_at, no_show_reported, no_show_reported_at, cancelled_by, cancel_reason, created_at`

// GetByID retrieves a booking by ID.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return booking, nil
}

// GetAll retrieves recent bookings.
func (r *BookingRepository) GetAll(ctx context.Context) ([]*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings ORDER BY created_at DESC LIMIT 100`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*domain.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

// CompareAndSetStatus writes the full booking record guarded by the expected
// current status. The WHERE clause is the compare-and-set: zero rows means
// another writer got there first.
func (r *BookingRepository) CompareAndSetStatus(ctx context.Context, booking *domain.Booking, expected domain.BookingStatus) error {
	query := `
		UPDATE bookings
		SET status = $1, assigned_driver_id = $2, tricycle_id = $3, estimated_fare = $4, actual_fare = $5, arrived_at_pickup = $6, arrived_at_pickup_at = $7, no_show_reported = $8, no_show_reported_at = $9, cancelled_by = $10, cancel_reason = $11
		WHERE id = $12 AND status = $13
	`

	result, err := r.q.ExecContext(ctx, query,
		booking.Status,
		nullString(booking.AssignedDriverID),
		nullString(booking.TricycleID),
		booking.EstimatedFare,
		booking.ActualFare,
		booking.ArrivedAtPickup,
		nullTime(booking.ArrivedAtPickupAt),
		booking.NoShowReported,
		nullTime(booking.NoShowReportedAt),
		nullString(booking.CancelledBy),
		nullString(booking.CancelReason),
		booking.ID,
		expected,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		// Distinguish a missing row from a lost race.
		var exists bool
		checkErr := r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE id = $1)`, booking.ID).Scan(&exists)
		if checkErr != nil {
			return checkErr
		}
		if !exists {
			return repository.ErrNotFound
		}
		return repository.ErrStaleStatus
	}

	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var booking domain.Booking
	var assignedDriverID, tricycleID, cancelledBy, cancelReason sql.NullString
	var arrivedAt, noShowAt sql.NullTime

	err := row.Scan(
		&booking.ID,
		&booking.CustomerID,
		&booking.CustomerName,
		&booking.CustomerPhone,
		&booking.PickupLat,
		&booking.PickupLng,
		&booking.PickupName,
		&booking.DropoffLat,
		&booking.DropoffLng,
		&booking.DropoffName,
		&booking.EstimatedFare,
		&booking.ActualFare,
		&booking.Status,
		&assignedDriverID,
		&tricycleID,
		&booking.VerificationCode,
		&booking.ArrivedAtPickup,
		&arrivedAt,
		&booking.NoShowReported,
		&noShowAt,
		&cancelledBy,
		&cancelReason,
		&booking.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if assignedDriverID.Valid {
		booking.AssignedDriverID = assignedDriverID.String
	}
	if tricycleID.Valid {
		booking.TricycleID = tricycleID.String
	}
	if arrivedAt.Valid {
		booking.ArrivedAtPickupAt = arrivedAt.Time
	}
	if noShowAt.Valid {
		booking.NoShowReportedAt = noShowAt.Time
	}
	if cancelledBy.Valid {
		booking.CancelledBy = cancelledBy.String
	}
	if cancelReason.Valid {
		booking.CancelReason = cancelReason.String
	}

	return &booking, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
