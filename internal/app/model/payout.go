package model

import "time"

// Payout settles a partner's unpaid conversions over [PeriodStart, PeriodEnd).
type Payout struct {
	ID              string    `json:"id" gorm:"primaryKey;size:36"`
	PartnerID       string    `json:"partnerId" gorm:"size:64;not null;index"`
	PeriodStart     time.Time `json:"periodStart" gorm:"not null"`
	PeriodEnd       time.Time `json:"periodEnd" gorm:"not null"`
	Amount          float64   `json:"amount" gorm:"type:numeric(12,2);not null"`
	ConversionCount int       `json:"conversionCount" gorm:"not null"`
	CreatedAt       time.Time `json:"createdAt" gorm:"not null;index"`
}
