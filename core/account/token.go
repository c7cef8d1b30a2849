package account

import (
	"errors"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// Token verification failures. Each kind is distinct so the server can log
// the precise reason while callers surface a uniform "unauthenticated".
var (
	ErrTokenMalformed = errors.New("malformed token")
	ErrTokenSignature = errors.New("invalid token signature")
	ErrTokenExpired   = errors.New("token expired")
)

var signingMethod = jwt.SigningMethodHS256

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Email        string `json:"email,omitempty"`
	Role         string `json:"role,omitempty"`
}

// TokenAuthority issues and verifies the bearer tokens returned by login and
// registration. The signing secret and TTLs are fixed at construction; no
// process-wide state is consulted per call.
type TokenAuthority struct {
	issuer     string
	secret     []byte
	ttl        time.Duration
	refreshTTL time.Duration
	nowFunc    func() time.Time // mockable
}

func NewTokenAuthority(issuer string, secret []byte, ttl, refreshTTL time.Duration) *TokenAuthority {
	return &TokenAuthority{
		issuer:     issuer,
		secret:     secret,
		ttl:        ttl,
		refreshTTL: refreshTTL,
		nowFunc:    time.Now,
	}
}

// Claims builds the claim set for acct. origIat, when provided, preserves the
// original issue time across token refreshes.
func (ta *TokenAuthority) Claims(acct Account, origIat ...int64) *Claims {
	now := ta.nowFunc()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    ta.issuer,
			Subject:   acct.ID,
			ExpiresAt: now.Add(ta.ttl).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Email:        acct.Email,
		Role:         acct.Role,
	}
}

// Issue generates a signed compact token string representing claims.
func (ta *TokenAuthority) Issue(claims *Claims) (string, error) {
	return jwt.NewWithClaims(signingMethod, claims).SignedString(ta.secret)
}

// Verify checks the signature first, then expiry, and returns the decoded
// claims. Failures map to exactly one of ErrTokenMalformed, ErrTokenSignature
// or ErrTokenExpired.
func (ta *TokenAuthority) Verify(tokenStr string) (*Claims, error) {
	parser := &jwt.Parser{
		ValidMethods:         []string{signingMethod.Alg()},
		SkipClaimsValidation: true, // expiry is checked below against our clock
	}
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return ta.secret, nil
	})
	if err != nil {
		var vErr *jwt.ValidationError
		if errors.As(err, &vErr) {
			if vErr.Errors&jwt.ValidationErrorMalformed != 0 {
				return nil, ErrTokenMalformed
			}
			if vErr.Errors&(jwt.ValidationErrorSignatureInvalid|jwt.ValidationErrorUnverifiable) != 0 {
				return nil, ErrTokenSignature
			}
		}
		return nil, ErrTokenMalformed
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrTokenMalformed
	}
	if !claims.VerifyExpiresAt(ta.nowFunc().Unix(), true) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}

// RefreshWindowExpired reports whether claims are past the refresh window
// counted from the original issue time.
func (ta *TokenAuthority) RefreshWindowExpired(claims *Claims) bool {
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(ta.refreshTTL)
	return ta.nowFunc().After(expTime)
}
