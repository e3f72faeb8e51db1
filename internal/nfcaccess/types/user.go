package types

import (
	"encoding/json"
	"time"
)

// User is a registered card holder.  NationalID is always stored in its
// normalized digits-only form.
type User struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	NationalID string    `json:"cpf"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	CardUUID   *string   `json:"nfc_card_uuid"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (u User) HasCard() bool {
	return u.CardUUID != nil && *u.CardUUID != ""
}

// Card returns the bound card UUID or "" when the user has none.
func (u User) Card() string {
	if u.CardUUID == nil {
		return ""
	}
	return *u.CardUUID
}

type CreateUserRequest struct {
	Name       string `json:"name"`
	NationalID string `json:"cpf"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
}

// UserPatch carries a partial update.  Nil pointers leave the field as is.
// CardUUID distinguishes "absent" from an explicit null, which clears the
// binding.
type UserPatch struct {
	Name       *string        `json:"name,omitempty"`
	NationalID *string        `json:"cpf,omitempty"`
	Email      *string        `json:"email,omitempty"`
	Phone      *string        `json:"phone,omitempty"`
	CardUUID   NullableString `json:"nfc_card_uuid"`
}

// NullableString records whether a JSON key was present at all.
type NullableString struct {
	Set   bool
	Value *string
}

func (n *NullableString) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

func (n NullableString) MarshalJSON() ([]byte, error) {
	if !n.Set || n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}

type UserResponse struct {
	Message string `json:"message,omitempty"`
	User    User   `json:"user"`
	LogID   int64  `json:"log_id,omitempty"`
}

type UserListResponse struct {
	Users []User `json:"users"`
	Total int    `json:"total"`
}
