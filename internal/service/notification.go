package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"toda/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationDriverAssigned   NotificationType = "DRIVER_ASSIGNED"
	NotificationDriverArrived    NotificationType = "DRIVER_ARRIVED"
	NotificationTripCompleted    NotificationType = "TRIP_COMPLETED"
	NotificationBookingCancelled NotificationType = "BOOKING_CANCELLED"
	NotificationNoShow           NotificationType = "NO_SHOW"
)

// Notification represents a notification to be sent.
type Notification struct {
	Type        NotificationType
	RecipientID string
	Title       string
	Message     string
	Data        map[string]interface{}
	CreatedAt   time.Time
}

// NotificationService handles notification delivery. Delivery is strictly
// fire-and-forget: a failed notification must never roll back the booking
// transition that triggered it.
type NotificationService struct {
	// In the deployed system this holds the FCM client used by the
	// passenger and driver apps.
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// NotifyDriverAssigned notifies the passenger that a driver took the booking.
func (s *NotificationService) NotifyDriverAssigned(ctx context.Context, booking *domain.Booking, entry *domain.QueueEntry) error {
	notification := Notification{
		Type:        NotificationDriverAssigned,
		RecipientID: booking.CustomerID,
		Title:       "Driver Assigned",
		Message:     fmt.Sprintf("%s (tricycle %s) is on the way to %s", entry.DriverName, entry.TricycleID, booking.PickupName),
		Data: map[string]interface{}{
			"booking_id":        booking.ID,
			"driver_id":         entry.DriverID,
			"tricycle_id":       entry.TricycleID,
			"verification_code": booking.VerificationCode,
		},
		CreatedAt: time.Now(),
	}
	return s.send(ctx, notification)
}

// NotifyDriverArrived notifies the passenger that the driver is at the pickup.
func (s *NotificationService) NotifyDriverArrived(ctx context.Context, booking *domain.Booking) error {
	notification := Notification{
		Type:        NotificationDriverArrived,
		RecipientID: booking.CustomerID,
		Title:       "Driver Arrived",
		Message:     fmt.Sprintf("Your driver is waiting at %s", booking.PickupName),
		Data: map[string]interface{}{
			"booking_id": booking.ID,
			"arrived_at": booking.ArrivedAtPickupAt,
		},
		CreatedAt: time.Now(),
	}
	return s.send(ctx, notification)
}

// NotifyNoShow notifies the passenger that the booking was closed as a no-show.
func (s *NotificationService) NotifyNoShow(ctx context.Context, booking *domain.Booking) error {
	notification := Notification{
		Type:        NotificationNoShow,
		RecipientID: booking.CustomerID,
		Title:       "Booking Closed",
		Message:     "Your driver waited at the pickup point but you did not board.",
		Data: map[string]interface{}{
			"booking_id": booking.ID,
			"at":         booking.NoShowReportedAt,
		},
		CreatedAt: time.Now(),
	}
	return s.send(ctx, notification)
}

// NotifyBookingCancelled notifies the other party about a cancellation.
func (s *NotificationService) NotifyBookingCancelled(ctx context.Context, booking *domain.Booking, cancelledBy string) error {
	var recipientID, message string
	if cancelledBy == booking.CustomerID {
		recipientID = booking.AssignedDriverID
		message = "The passenger has cancelled the booking"
	} else {
		recipientID = booking.CustomerID
		message = "The driver has cancelled the booking"
	}

	if recipientID == "" {
		return nil // No one to notify.
	}

	notification := Notification{
		Type:        NotificationBookingCancelled,
		RecipientID: recipientID,
		Title:       "Booking Cancelled",
		Message:     message,
		Data: map[string]interface{}{
			"booking_id":   booking.ID,
			"cancelled_by": cancelledBy,
			"reason":       booking.CancelReason,
		},
		CreatedAt: time.Now(),
	}
	return s.send(ctx, notification)
}

// NotifyTripCompleted notifies the passenger that the trip is complete.
func (s *NotificationService) NotifyTripCompleted(ctx context.Context, booking *domain.Booking) error {
	notification := Notification{
		Type:        NotificationTripCompleted,
		RecipientID: booking.CustomerID,
		Title:       "Trip Completed",
		Message:     fmt.Sprintf("Trip complete. Fare: PHP %.2f", booking.ActualFare),
		Data: map[string]interface{}{
			"booking_id": booking.ID,
			"fare":       booking.ActualFare,
		},
		CreatedAt: time.Now(),
	}
	return s.send(ctx, notification)
}

// send delivers a notification (log-backed in this build).
func (s *NotificationService) send(ctx context.Context, notification Notification) error {
	log.Printf("[NOTIFICATION] Type=%s, Recipient=%s, Title=%s, Message=%s",
		notification.Type, notification.RecipientID, notification.Title, notification.Message)

	return nil
}
