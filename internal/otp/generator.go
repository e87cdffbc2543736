// Package otp issues and stores the one-time codes that verify an email
// address during signup.
package otp

import (
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TTL is how long an issued code stays valid
const TTL = 300 * time.Second

// Generator produces signup codes. Every call draws a fresh random TOTP
// secret, so codes for different requests are unrelated.
type Generator struct {
	Issuer string
	Digits otp.Digits
	now    func() time.Time
}

func NewGenerator(issuer string) *Generator {
	return &Generator{Issuer: issuer, Digits: otp.DigitsSix, now: time.Now}
}

// Generate returns a code for email
func (g *Generator) Generate(email string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      g.Issuer,
		AccountName: email,
		Period:      uint(TTL.Seconds()),
		SecretSize:  20,
		Digits:      g.Digits,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate otp secret: %w", err)
	}

	code, err := totp.GenerateCodeCustom(key.Secret(), g.now(), totp.ValidateOpts{
		Period:    uint(TTL.Seconds()),
		Digits:    g.Digits,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate otp code: %w", err)
	}
	return code, nil
}
