package service

import (
	"net/mail"
	"regexp"
	"time"
	"unicode"
)

const minPasswordLength = 8

// mobile shape: optional +, 7 to 15 digits
var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func isEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func isMobile(s string) bool {
	return phonePattern.MatchString(s)
}

func isDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func validateRegistration(in *RegisterInput) error {
	v := NewValidationError()

	switch {
	case in.FirstName == "":
		v.Add("firstName", "First name is required")
	case !isAlpha(in.FirstName):
		v.Add("firstName", "First name must contain only letters")
	}

	switch {
	case in.LastName == "":
		v.Add("lastName", "Last name is required")
	case !isAlpha(in.LastName):
		v.Add("lastName", "Last name must contain only letters")
	}

	switch {
	case in.Email == "":
		v.Add("email", "Email is required")
	case !isEmail(in.Email):
		v.Add("email", "Enter a valid email address")
	}

	switch {
	case in.Password == "":
		v.Add("password", "Password is required")
	case len(in.Password) < minPasswordLength:
		v.Add("password", "Password should be at least 8 characters long")
	}

	if v.HasErrors() {
		return v
	}
	return nil
}

func validatePassword(password string) error {
	v := NewValidationError()

	switch {
	case password == "":
		v.Add("password", "Password is required")
	case len(password) < minPasswordLength:
		v.Add("password", "Password should be at least 8 characters long")
	}

	if v.HasErrors() {
		return v
	}
	return nil
}

func validateProfileUpdate(in *ProfileUpdateInput) error {
	v := NewValidationError()

	if in.FirstName != nil && !isAlpha(*in.FirstName) {
		v.Add("firstName", "First name must contain only letters")
	}
	if in.MiddleName != nil && !isAlpha(*in.MiddleName) {
		v.Add("middleName", "Middle name must contain only letters")
	}
	if in.LastName != nil && !isAlpha(*in.LastName) {
		v.Add("lastName", "Last name must contain only letters")
	}
	if in.PhoneNumber != nil && !isMobile(*in.PhoneNumber) {
		v.Add("phoneNumber", "Enter a valid mobile number")
	}
	if in.DateOfBirth != nil && !isDate(*in.DateOfBirth) {
		v.Add("dateOfBirth", "Enter a valid date")
	}
	if in.NationalID != nil && len(*in.NationalID) < 6 {
		v.Add("nationalId", "National ID should be at least 6 characters long")
	}

	if v.HasErrors() {
		return v
	}
	return nil
}
