package types

import "time"

type PairingState string

const (
	PairingPending PairingState = "PENDING"
	PairingBound   PairingState = "BOUND"
	PairingExpired PairingState = "EXPIRED"
)

// PairingSession is a short-lived, single-use handshake that attributes the
// next anonymous card scan to UserID.  Bound only ever flips false -> true.
type PairingSession struct {
	ID        int64     `json:"id"`
	Token     string    `json:"pair_token"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Bound     bool      `json:"vinculado"`
}

// Expired reports whether now is at or past the session's expiry.
func (s PairingSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Active reports whether the session can still be resolved by a scan.
func (s PairingSession) Active(now time.Time) bool {
	return !s.Bound && !s.Expired(now)
}

// State derives the session state from the stored flag and the clock.
// Nothing ever writes EXPIRED.
func (s PairingSession) State(now time.Time) PairingState {
	switch {
	case s.Bound:
		return PairingBound
	case s.Expired(now):
		return PairingExpired
	default:
		return PairingPending
	}
}

type PairStartRequest struct {
	NationalID string `json:"cpf"`
}

type PairStartResponse struct {
	PairToken string    `json:"pair_token"`
	ExpiresAt time.Time `json:"expires_at"`
	Vinculado bool      `json:"vinculado"`
	UserID    int64     `json:"user_id"`
}

type SyncRequest struct {
	CardUUID string `json:"nfc_card_uuid"`
}

type SyncResponse struct {
	Linked    bool   `json:"linked"`
	User      *User  `json:"user,omitempty"`
	PairToken string `json:"pair_token,omitempty"`
	Message   string `json:"message,omitempty"`
	LogID     int64  `json:"log_id,omitempty"`
}

type PairStatus struct {
	PairToken string       `json:"pair_token"`
	Vinculado bool         `json:"vinculado"`
	Expired   bool         `json:"expired"`
	State     PairingState `json:"state"`
	User      *User        `json:"user"`
	ExpiresAt time.Time    `json:"expires_at"`
}
