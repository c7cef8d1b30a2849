package account

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Password-reset tokens are single-use by construction: the HMAC covers the
// password hash and last login, both of which change once the reset succeeds.

var (
	resetSalt = []byte("darasa.core.account.reset_token")
	nowFunc   = time.Now // mockable

	// errors
	errResetTokenInvalid = errors.New("invalid token")
	errResetTokenExpired = errors.New("token expired")
)

// EncodeUID base64 encodes the given Account ID for use in reset URLs.
func EncodeUID(acct Account) string {
	return base64.RawURLEncoding.EncodeToString([]byte(acct.ID))
}

func decodeUID(uid string) (string, error) {
	idBytes, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(idBytes), nil
}

// makeResetToken generates a password reset token for acct.
func (svc *Service) makeResetToken(acct Account) string {
	return svc.makeTokenWithTimestamp(acct, numDaysSince2001(nowFunc()))
}

// verifyResetToken checks that a password reset token for acct is valid.
func (svc *Service) verifyResetToken(acct Account, token string) error {
	if token == "" {
		return errResetTokenInvalid
	}

	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return errResetTokenInvalid
	}

	data, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(parts[0])
	if err != nil {
		return errResetTokenInvalid
	}
	ts, err := strconv.Atoi(string(data))
	if err != nil {
		return errResetTokenInvalid
	}

	// check that the token has not been tampered with
	newToken := svc.makeTokenWithTimestamp(acct, ts)
	if subtle.ConstantTimeCompare([]byte(newToken), []byte(token)) == 0 {
		return errResetTokenInvalid
	}

	// check that the timestamp is within limit
	if (numDaysSince2001(nowFunc()) - ts) > int(svc.conf.Server.PasswordResetTimeoutDelta/(24*time.Hour)) {
		return errResetTokenExpired
	}
	return nil
}

func (svc *Service) makeTokenWithTimestamp(acct Account, ts int) string {
	tsB32 := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte(strconv.Itoa(ts)))
	return fmt.Sprintf("%s-%s", tsB32, svc.signResetValue(hashResetValue(acct, ts)))
}

func numDaysSince2001(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(t.Sub(ref).Hours() / 24))
}

func (svc *Service) signResetValue(val []byte) string {
	key := sha256.Sum256(append(resetSalt, svc.conf.SecretKey...))
	h := hmac.New(sha256.New, key[:])
	h.Write(val)
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func hashResetValue(acct Account, ts int) []byte {
	var val bytes.Buffer
	val.WriteString(acct.ID)
	val.Write(acct.PasswordHash)
	if !acct.LastLogin.IsZero() {
		val.WriteString(acct.LastLogin.String())
	}
	val.WriteString(strconv.Itoa(ts))
	return val.Bytes()
}
