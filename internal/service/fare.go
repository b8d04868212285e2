package service

import (
	"math"

	"toda/internal/config"
	"toda/internal/domain"
)

// FareService computes fare breakdowns from the configured tariff table.
// ComputeFare is a pure function of its inputs; nothing is cached or stored.
type FareService struct {
	cfg config.FareConfig
}

// NewFareService creates a new FareService.
func NewFareService(cfg config.FareConfig) *FareService {
	return &FareService{cfg: cfg}
}

// ComputeFare computes the fare for a trip from pickup to dropoff with the
// driver starting at driverLoc.
//
// The base fare is a flat rate up to the flagdown distance plus a per-km
// rate beyond it, with the convenience fee folded in (it is never shown as
// its own line). Drivers further than the free radius from the pickup earn
// a lower per-km surcharge on the excess. A discount applies only when the
// profile is verified, as a percentage of the pre-convenience subtotal, and
// a verified discount also waives the convenience fee.
func (s *FareService) ComputeFare(pickup, dropoff, driverLoc domain.LatLng, profile domain.DiscountProfile) domain.FareBreakdown {
	passengerKm := haversineKm(pickup, dropoff)
	driverKm := haversineKm(driverLoc, pickup)

	core := s.cfg.BaseFlat
	if passengerKm > s.cfg.FlagdownKm {
		core += (passengerKm - s.cfg.FlagdownKm) * s.cfg.PerKm
	}

	driverFee := 0.0
	if driverKm > s.cfg.DriverFreeKm {
		driverFee = (driverKm - s.cfg.DriverFreeKm) * s.cfg.DriverPerKm
	}

	discountType := domain.DiscountNone
	discountPercent := 0.0
	if profile.Verified {
		discountType = profile.Type
		discountPercent = s.discountPercent(profile.Type)
	}

	// The discount is taken off the pre-convenience subtotal.
	discountAmount := (core + driverFee) * discountPercent / 100

	convenienceFee := s.cfg.ConvenienceFee
	if profile.Verified && discountType != domain.DiscountNone {
		convenienceFee = 0
	}

	baseFare := core + convenienceFee

	return domain.FareBreakdown{
		PassengerDistanceKm: passengerKm,
		DriverDistanceKm:    driverKm,
		BaseFare:            baseFare,
		DriverTravelFee:     driverFee,
		DiscountType:        discountType,
		DiscountPercent:     discountPercent,
		DiscountAmount:      discountAmount,
		TotalFare:           baseFare + driverFee - discountAmount,
	}
}

// DriverTravelFee returns the surcharge for a driver travelling from
// driverLoc to the pickup. Booking-time estimates assume the driver is
// already at the pickup, so this is added once a real driver is assigned.
func (s *FareService) DriverTravelFee(driverLoc, pickup domain.LatLng) float64 {
	driverKm := haversineKm(driverLoc, pickup)
	if driverKm <= s.cfg.DriverFreeKm {
		return 0
	}
	return (driverKm - s.cfg.DriverFreeKm) * s.cfg.DriverPerKm
}

func (s *FareService) discountPercent(t domain.DiscountType) float64 {
	switch t {
	case domain.DiscountPWD:
		return s.cfg.PWDPercent
	case domain.DiscountSenior:
		return s.cfg.SeniorPercent
	case domain.DiscountStudent:
		return s.cfg.StudentPercent
	}
	return 0
}

const earthRadiusKm = 6371.0

// haversineKm returns the great-circle distance in kilometres between two
// points specified in decimal degrees.
func haversineKm(a, b domain.LatLng) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
