package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of account types. Accounts default to RoleUser
// at registration.
type Role string

const (
	RoleUser        Role = "user"
	RoleUnderwriter Role = "underwriter"
	RoleAdmin       Role = "admin"
)

// ParseRole maps a stored string onto a Role, defaulting unknown values
// to RoleUser so a corrupted row can never grant elevated access.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleUnderwriter:
		return RoleUnderwriter
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleUser
	}
}

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleUnderwriter, RoleAdmin:
		return true
	}
	return false
}

// Account is the persisted identity record plus its verification and
// password-reset sub-state. PasswordHash is never serialized outward.
//
// Invariants maintained by the lifecycle service:
//   - EmailVerified == true implies VerificationOTP == nil and OTPExpiry == nil.
//   - ResetToken != nil implies ResetTokenExpiry != nil.
type Account struct {
	Bucket        int       `db:"bucket" json:"-"`
	ID            uuid.UUID `db:"account_id" json:"id"`
	Email         string    `db:"email" json:"email"`
	PasswordHash  string    `db:"password_hash" json:"-"`
	EmailVerified bool      `db:"email_verified" json:"email_verified"`
	Role          Role      `db:"role" json:"role"`

	VerificationOTP  *string    `db:"verification_otp" json:"-"`
	OTPExpiry        *time.Time `db:"otp_expiry" json:"-"`
	ResetToken       *string    `db:"reset_token" json:"-"`
	ResetTokenExpiry *time.Time `db:"reset_token_expiry" json:"-"`

	FirstName          string `db:"first_name" json:"first_name,omitempty"`
	MiddleName         string `db:"middle_name" json:"middle_name,omitempty"`
	LastName           string `db:"last_name" json:"last_name,omitempty"`
	PhoneNumber        string `db:"phone_number" json:"phone_number,omitempty"`
	Photo              string `db:"photo" json:"photo,omitempty"`
	Gender             string `db:"gender" json:"gender,omitempty"`
	MaritalStatus      string `db:"marital_status" json:"marital_status,omitempty"`
	EmploymentStatus   string `db:"employment_status" json:"employment_status,omitempty"`
	DateOfBirth        string `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Country            string `db:"country" json:"country,omitempty"`
	City               string `db:"city" json:"city,omitempty"`
	State              string `db:"state" json:"state,omitempty"`
	ResidentialAddress string `db:"residential_address" json:"residential_address,omitempty"`
	Profession         string `db:"profession" json:"profession,omitempty"`

	// National id is envelope-encrypted at rest; the key id names the DEK
	// that decrypts it. Neither field is exposed over the API.
	NationalIDEncrypted []byte `db:"national_id_encrypted" json:"-"`
	NationalIDKeyID     string `db:"national_id_key_id" json:"-"`

	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	LastLogin *time.Time `db:"last_login" json:"last_login,omitempty"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// HasActiveOTP reports whether a verification code is pending. A nil code
// or a nil expiry counts as "no active secret".
func (a *Account) HasActiveOTP() bool {
	return a.VerificationOTP != nil && a.OTPExpiry != nil
}

// HasActiveResetToken reports whether a password reset is pending.
func (a *Account) HasActiveResetToken() bool {
	return a.ResetToken != nil && a.ResetTokenExpiry != nil
}

// FullName joins the name parts for notification templates.
func (a *Account) FullName() string {
	name := a.FirstName
	if a.LastName != "" {
		if name != "" {
			name += " "
		}
		name += a.LastName
	}
	return name
}
