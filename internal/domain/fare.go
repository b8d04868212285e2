package domain

// LatLng is a geographic coordinate pair in decimal degrees.
type LatLng struct {
	Lat float64
	Lng float64
}

// DiscountType classifies a verified fare discount.
type DiscountType string

const (
	DiscountNone    DiscountType = ""
	DiscountPWD     DiscountType = "PWD"
	DiscountSenior  DiscountType = "SENIOR"
	DiscountStudent DiscountType = "STUDENT"
)

// DiscountProfile is the normalized discount information for a passenger.
// Only verified profiles affect the fare.
type DiscountProfile struct {
	Type     DiscountType
	Verified bool
}

// FareBreakdown is the derived fare for a booking. It is recomputed whenever
// both endpoints are known and never mutated in place.
type FareBreakdown struct {
	PassengerDistanceKm float64
	DriverDistanceKm    float64
	BaseFare            float64 // flat/per-km core with the convenience fee folded in
	DriverTravelFee     float64
	DiscountType        DiscountType
	DiscountPercent     float64
	DiscountAmount      float64
	TotalFare           float64
}
