package types

import "time"

type Action string

const (
	ActionLink          Action = "LINK"
	ActionUnlink        Action = "UNLINK"
	ActionAccessGranted Action = "ACCESS_GRANTED"
	ActionAccessDenied  Action = "ACCESS_DENIED"
	ActionSyncNoSession Action = "SYNC_NO_SESSION"
)

func (a Action) Valid() bool {
	switch a {
	case ActionLink, ActionUnlink, ActionAccessGranted, ActionAccessDenied, ActionSyncNoSession:
		return true
	}
	return false
}

// LogEntry is one append-only audit record.  UserID is nil when the scanned
// card matched nobody, or after the referenced user was deleted.
type LogEntry struct {
	ID         int64     `json:"id"`
	UserID     *int64    `json:"user_id"`
	CardUUID   string    `json:"nfc_uuid"`
	UserExists bool      `json:"user_exists"`
	Action     Action    `json:"action"`
	Timestamp  time.Time `json:"timestamp"`
}

type LogListResponse struct {
	Logs  []LogEntry `json:"logs"`
	Total int        `json:"total"`
}

type LinkRequest struct {
	NationalID string `json:"cpf"`
	CardUUID   string `json:"nfc_card_uuid"`
}

type UnlinkRequest struct {
	NationalID string `json:"cpf"`
}

type ValidateResponse struct {
	Authorized bool   `json:"authorized"`
	Message    string `json:"message"`
	User       *User  `json:"user,omitempty"`
	LogID      int64  `json:"log_id"`
}

// CardBinding pairs a bound card with its holder.
type CardBinding struct {
	CardUUID string `json:"nfc_card_uuid"`
	User     User   `json:"user"`
}

type CardOverview struct {
	Cards           []CardBinding    `json:"cards"`
	PairingSessions []PairingSession `json:"pairing_sessions"`
}
