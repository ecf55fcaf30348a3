package identity

import "time"

// Account is the durable user record.
//
// RefreshTokenHash holds the hash of the single currently valid refresh
// token, or nil when the account has no active session. The plaintext token
// is never persisted.
type Account struct {
	ID               string
	Username         string
	Email            string
	Fullname         string
	AvatarURL        string
	AvatarObjectID   string
	CoverURL         string
	CoverObjectID    string
	PasswordHash     string
	RefreshTokenHash *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PublicAccount is the redacted view returned to clients: no password hash,
// no refresh token material, no storage object ids.
type PublicAccount struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Fullname   string    `json:"fullname"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"coverImage,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Public returns the redacted client-facing view of the account.
func (a Account) Public() PublicAccount {
	return PublicAccount{
		ID:         a.ID,
		Username:   a.Username,
		Email:      a.Email,
		Fullname:   a.Fullname,
		Avatar:     a.AvatarURL,
		CoverImage: a.CoverURL,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}
