package model

import "time"

// UTM carries the campaign parameters observed on the referral visit.
type UTM struct {
	Source   string `json:"utm_source,omitempty" gorm:"column:utm_source;size:255"`
	Medium   string `json:"utm_medium,omitempty" gorm:"column:utm_medium;size:255"`
	Campaign string `json:"utm_campaign,omitempty" gorm:"column:utm_campaign;size:255"`
}

// ClickEvent is an immutable ledger row for one attributed visit.
type ClickEvent struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	PartnerID   string    `json:"partnerId" gorm:"size:64;not null;index:idx_click_partner_ip_time,priority:1"`
	SessionID   string    `json:"sessionId" gorm:"size:36;not null;index"`
	IPAddress   string    `json:"ipAddress" gorm:"size:64;index:idx_click_partner_ip_time,priority:2"`
	LandingPage string    `json:"landingPage" gorm:"type:text"`
	UserAgent   string    `json:"userAgent,omitempty" gorm:"type:text"`
	Referrer    string    `json:"referrer,omitempty" gorm:"type:text"`
	UTM         UTM       `json:"utm" gorm:"embedded"`
	ClickedAt   time.Time `json:"clickedAt" gorm:"not null;index:idx_click_partner_ip_time,priority:3"`
}

// ClickJob is the unit of work handed from the interception layer to the
// background click pipeline.
type ClickJob struct {
	PartnerID   string    `json:"partnerId"`
	SessionID   string    `json:"sessionId"`
	LandingPage string    `json:"landingPage"`
	UTM         UTM       `json:"utm"`
	ClientIP    string    `json:"clientIp"`
	UserAgent   string    `json:"userAgent"`
	Referrer    string    `json:"referrer"`
	QueuedAt    time.Time `json:"queuedAt"`
}

const (
	ClickStreamName     = "AFFILIATE_CLICKS"
	ClickStreamSubject  = "affiliate.clicks.jobs"
	ClickConsumerName   = "click-recorder"
	ClickStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)
