package security

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

func codeAt(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	code, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    totpPeriod,
		Digits:    totpDigits,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	return code
}

func TestGenerateSecretProvisioningURI(t *testing.T) {
	engine := NewTOTPEngine("MeetCute")
	secret, uri, err := engine.GenerateSecret("alice@example.com")
	if err != nil {
		t.Fatalf("generate secret: %v", err)
	}
	if secret == "" {
		t.Fatal("empty secret")
	}
	if !strings.HasPrefix(uri, "otpauth://totp/") {
		t.Fatalf("unexpected provisioning uri %q", uri)
	}
	if !strings.Contains(uri, "MeetCute") {
		t.Fatalf("issuer missing from uri %q", uri)
	}
	other, _, err := engine.GenerateSecret("alice@example.com")
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if other == secret {
		t.Fatal("each enrollment must mint a fresh secret")
	}
}

func TestVerifyCodeWindow(t *testing.T) {
	engine := NewTOTPEngine("MeetCute")
	secret, _, err := engine.GenerateSecret("alice@example.com")
	if err != nil {
		t.Fatalf("generate secret: %v", err)
	}
	now := time.Date(2026, time.March, 14, 15, 9, 2, 0, time.UTC)

	// One period either side of the current step is accepted.
	for _, offset := range []time.Duration{-30 * time.Second, 0, 30 * time.Second} {
		if !engine.VerifyCode(secret, codeAt(t, secret, now.Add(offset)), now) {
			t.Fatalf("code at offset %v rejected", offset)
		}
	}
	for _, offset := range []time.Duration{-90 * time.Second, 90 * time.Second} {
		if engine.VerifyCode(secret, codeAt(t, secret, now.Add(offset)), now) {
			t.Fatalf("code at offset %v accepted", offset)
		}
	}
}

func TestVerifyCodeRejectsGarbage(t *testing.T) {
	engine := NewTOTPEngine("MeetCute")
	secret, _, err := engine.GenerateSecret("alice@example.com")
	if err != nil {
		t.Fatalf("generate secret: %v", err)
	}
	now := time.Now()
	if engine.VerifyCode(secret, "000000", now) && engine.VerifyCode(secret, "123456", now) {
		t.Fatal("two arbitrary codes both accepted")
	}
	if engine.VerifyCode(secret, "not-a-code", now) {
		t.Fatal("non-numeric code accepted")
	}
	if engine.VerifyCode("", "000000", now) {
		t.Fatal("empty secret accepted")
	}
}
