package account

import (
	"testing"
	"time"

	"github.com/darasahq/darasa/core"
)

func TestMakeVerifyResetToken(t *testing.T) {
	svc := &Service{
		conf: &core.Config{
			SecretKey: []byte("secret"),
			Server:    core.ServerConfig{PasswordResetTimeoutDelta: 3 * 24 * time.Hour},
		},
	}

	now := time.Now()
	acct := Account{
		ID:        "8f2b",
		FirstName: "T",
		LastName:  "T",
		Email:     "t@test.cd",
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	_ = acct.SetPassword("pwd")

	validToken := svc.makeResetToken(acct)

	// generate an expired token
	dayLate := svc.conf.Server.PasswordResetTimeoutDelta + (24 * time.Hour)
	nowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken := svc.makeResetToken(acct)
	nowFunc = time.Now // reset

	// a password change invalidates outstanding tokens
	rotated := acct
	_ = rotated.SetPassword("new-pwd")

	tests := []struct {
		name    string
		acct    Account
		token   string
		wantErr error
	}{
		{name: "no token", acct: acct, wantErr: errResetTokenInvalid},
		{name: "invalid parts len", acct: acct, token: "lmaooolol", wantErr: errResetTokenInvalid},
		{name: "invalid base32", acct: acct, token: "hahaha-sigsig-sig", wantErr: errResetTokenInvalid},
		{name: "invalid timestamp", acct: acct, token: "NRXWY-sigsig-sig", wantErr: errResetTokenInvalid},
		{name: "invalid token", acct: acct, token: "HE4TS-sigsig-sig", wantErr: errResetTokenInvalid},
		{name: "expired token", acct: acct, token: expiredToken, wantErr: errResetTokenExpired},
		{name: "password changed", acct: rotated, token: validToken, wantErr: errResetTokenInvalid},
		{name: "valid token", acct: acct, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.verifyResetToken(tt.acct, tt.token); err != tt.wantErr {
				t.Errorf("verifyResetToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	acct := Account{ID: "0b4fae4b-5b3f-4e0e-9f9f-8f2b2f3d4e5a"}
	uid := EncodeUID(acct)
	id, err := decodeUID(uid)
	if err != nil {
		t.Fatalf("decodeUID(): %v", err)
	}
	if id != acct.ID {
		t.Errorf("decodeUID() = %q, want %q", id, acct.ID)
	}

	if _, err = decodeUID("%%%"); err == nil {
		t.Error("decodeUID() should reject invalid base64")
	}
}
