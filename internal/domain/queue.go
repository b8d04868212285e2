package domain

import "time"

// QueueSource indicates how a driver joined the availability queue.
type QueueSource string

const (
	QueueSourceMobile   QueueSource = "MOBILE"
	QueueSourceHardware QueueSource = "HARDWARE" // RFID terminal at the TODA stand
)

// QueueEntry represents one available driver in the dispatch queue.
// The driver ID is the identity; a driver appears at most once in the queue.
type QueueEntry struct {
	DriverID   string
	DriverName string
	TricycleID string
	Source     QueueSource
	EnqueuedAt time.Time
	Position   int // derived from order when listing, not stored
}
