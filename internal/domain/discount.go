package domain

import (
	"encoding/json"
	"strings"
)

// legacy discount payload, used by newer profile records.
type discountObject struct {
	Type     string `json:"type"`
	Verified bool   `json:"verified"`
}

// DecodeDiscountProfile normalizes the discount field of a profile record.
// Historical schema versions stored it either as a bare string ("PWD",
// "Senior Citizen", "Student") or as a nested object with an explicit
// verified flag. Decode order: object first, then string fallback. A bare
// string is treated as unverified; verification is a separate admin action.
func DecodeDiscountProfile(raw []byte) (DiscountProfile, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return DiscountProfile{}, nil
	}

	var obj discountObject
	if err := json.Unmarshal(raw, &obj); err == nil {
		return DiscountProfile{Type: parseDiscountType(obj.Type), Verified: obj.Verified}, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return DiscountProfile{}, err
	}
	return DiscountProfile{Type: parseDiscountType(s)}, nil
}

func parseDiscountType(s string) DiscountType {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PWD":
		return DiscountPWD
	case "SENIOR", "SENIOR CITIZEN":
		return DiscountSenior
	case "STUDENT":
		return DiscountStudent
	}
	return DiscountNone
}
