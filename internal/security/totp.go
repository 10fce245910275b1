package security

import (
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	totpPeriod     = 30
	totpDigits     = otp.DigitsSix
	totpSecretSize = 32

	// totpSkew accepts the current 30s step plus one step either side,
	// tolerating modest clock drift between server and authenticator.
	totpSkew = 1
)

// TOTPEngine provisions and verifies authenticator-app codes. It holds
// no per-user state; secrets live on the identity record.
type TOTPEngine struct {
	issuer string
}

func NewTOTPEngine(issuer string) *TOTPEngine {
	return &TOTPEngine{issuer: issuer}
}

// GenerateSecret returns a fresh base32 secret and the otpauth:// URI
// to embed in a scannable QR code.
func (e *TOTPEngine) GenerateSecret(account string) (secret, provisioningURI string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      e.issuer,
		AccountName: account,
		Period:      totpPeriod,
		SecretSize:  totpSecretSize,
		Digits:      totpDigits,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// VerifyCode checks code against secret at the given instant.
func (e *TOTPEngine) VerifyCode(secret, code string, at time.Time) bool {
	ok, err := totp.ValidateCustom(code, secret, at, totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    totpDigits,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
