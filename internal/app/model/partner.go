package model

import (
	"regexp"
	"time"
)

// PartnerStatus is the lifecycle state of an affiliate partner.
type PartnerStatus string

const (
	PartnerStatusActive   PartnerStatus = "active"
	PartnerStatusInactive PartnerStatus = "inactive"
	PartnerStatusArchived PartnerStatus = "archived"
)

// Valid reports whether s is one of the known partner statuses.
func (s PartnerStatus) Valid() bool {
	switch s {
	case PartnerStatusActive, PartnerStatusInactive, PartnerStatusArchived:
		return true
	}
	return false
}

var partnerIDPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// ValidPartnerID reports whether id is a well-formed partner slug.
func ValidPartnerID(id string) bool {
	return partnerIDPattern.MatchString(id)
}

// Partner is an affiliate credited for referred orders. CommissionRate is a
// flat amount paid per conversion, not a percentage of the order amount.
type Partner struct {
	ID             string        `json:"id" gorm:"primaryKey;size:64"`
	Name           string        `json:"name" gorm:"size:255;not null"`
	CommissionRate float64       `json:"commissionRate" gorm:"type:numeric(12,2);not null;default:0"`
	Status         PartnerStatus `json:"status" gorm:"size:16;not null;default:active;index"`
	CreatedAt      time.Time     `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt      time.Time     `json:"updatedAt" gorm:"autoUpdateTime"`
}

// IsActive reports whether the partner may accrue new clicks and conversions.
func (p *Partner) IsActive() bool {
	return p.Status == PartnerStatusActive
}

// PartnerStats aggregates a partner's ledger for reporting.
type PartnerStats struct {
	PartnerID         string  `json:"partnerId"`
	Clicks            int64   `json:"clicks"`
	Conversions       int64   `json:"conversions"`
	Revenue           float64 `json:"revenue"`
	CommissionEarned  float64 `json:"commissionEarned"`
	CommissionUnpaid  float64 `json:"commissionUnpaid"`
	ConversionRatePct float64 `json:"conversionRatePct"`
}
