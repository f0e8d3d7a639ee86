// Package models defines the data types of the local OTP vault.
package models

import "time"

// OtpRecord is one stored OTP account.
//
// RawURL is the otpauth URI the record was imported from, or the one built
// for it when it was entered field by field. It may be empty for records
// written by older versions.
type OtpRecord struct {
	ID      string
	Issuer  string
	Holder  string
	Secret  string
	RawURL  string
	AddedAt time.Time
}

// Label returns "issuer:holder", or just the issuer when holder is empty.
func (r OtpRecord) Label() string {
	if r.Holder == "" {
		return r.Issuer
	}
	return r.Issuer + ":" + r.Holder
}
