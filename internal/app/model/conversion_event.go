package model

import "time"

// ConversionEvent records one paid order credited to a partner. Commission is
// snapshotted from the partner's rate when the event is written.
type ConversionEvent struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	PartnerID   string    `json:"partnerId" gorm:"size:64;not null;index"`
	SessionID   string    `json:"sessionId" gorm:"size:36;index"`
	OrderID     string    `json:"orderId" gorm:"size:128;not null;uniqueIndex"`
	ServiceType string    `json:"serviceType,omitempty" gorm:"size:64"`
	Amount      float64   `json:"amount" gorm:"type:numeric(12,2);not null"`
	Commission  float64   `json:"commission" gorm:"type:numeric(12,2);not null"`
	LandingPage *string   `json:"landingPage" gorm:"type:text"`
	IsPaidOut   bool      `json:"isPaidOut" gorm:"not null;default:false;index"`
	PayoutID    *string   `json:"payoutId,omitempty" gorm:"size:36;index"`
	CreatedAt   time.Time `json:"createdAt" gorm:"not null;index"`
}
