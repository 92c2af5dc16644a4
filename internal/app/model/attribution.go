package model

import "time"

// AttributionWindow bounds how long a referral keeps crediting its partner.
const AttributionWindow = 30 * 24 * time.Hour

// AttributionToken associates a browser with the partner that last referred it.
type AttributionToken struct {
	PartnerID   string    `json:"partnerId"`
	SessionID   string    `json:"sessionId"`
	ClickedAt   time.Time `json:"clickedAt"`
	LandingPage string    `json:"landingPage"`
}

// Expired reports whether the token is older than the attribution window.
func (t *AttributionToken) Expired(now time.Time) bool {
	return now.Sub(t.ClickedAt) > AttributionWindow
}
