package pagination

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer stamped into every cursor token and required on decode.
const Issuer = "querykit-pagination"

// TTL is the validity window of a cursor token from issuance.
const TTL = time.Hour

var (
	// ErrCursorExpired is returned by the strict validator when the
	// token's exp has passed.
	ErrCursorExpired = errors.New("cursor expired")
	// ErrCursorInvalid covers malformed tokens, bad signatures and
	// wrong issuers on the strict path.
	ErrCursorInvalid = errors.New("invalid cursor token")
)

// CursorData is the resume point a cursor page carries.
type CursorData struct {
	Timestamp int64  `json:"timestamp"`
	Position  uint32 `json:"position"`
	PerPage   uint32 `json:"per_page"`
}

// CursorClaims wraps CursorData in registered JWT claims. Tokens are
// never persisted server side; the claims are the whole state.
type CursorClaims struct {
	Cursor CursorData `json:"cursor"`
	jwt.RegisteredClaims
}

// Codec signs and verifies cursor tokens with a process-wide HS256
// secret. The secret is read once at startup and never rotated.
type Codec struct {
	secret []byte
	now    func() time.Time
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret), now: time.Now}
}

// Encode issues a signed token for data, valid for exactly TTL.
func (c *Codec) Encode(data CursorData) (string, error) {
	now := c.now()
	claims := CursorClaims{
		Cursor: data,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Next issues the continuation cursor for the page boundary just
// crossed, anchored at the current timestamp.
func (c *Codec) Next(position uint32, perPage int) (string, error) {
	return c.Encode(CursorData{
		Timestamp: c.now().Unix(),
		Position:  position,
		PerPage:   uint32(perPage),
	})
}

// Prev approximates a backward cursor by stepping the timestamp back
// one page worth of seconds. It is a heuristic, not a true backward
// seek.
func (c *Codec) Prev(position uint32, perPage int) (string, error) {
	return c.Encode(CursorData{
		Timestamp: c.now().Unix() - int64(perPage),
		Position:  position,
		PerPage:   uint32(perPage),
	})
}

// Decode is the lenient path: absent, forged, malformed and expired
// tokens all collapse to "no cursor" so callers restart from the
// beginning.
func (c *Codec) Decode(token string) *CursorData {
	data, err := c.Validate(token)
	if err != nil {
		return nil
	}
	return data
}

// Validate is the strict entry point used by diagnostic tooling. It
// distinguishes expiry from every other failure.
func (c *Codec) Validate(token string) (*CursorData, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrCursorInvalid
	}

	claims := &CursorClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrCursorExpired
		}
		return nil, ErrCursorInvalid
	}

	data := claims.Cursor
	if data.Timestamp <= 0 || data.PerPage < MinPerPage || data.PerPage > MaxPerPage {
		return nil, ErrCursorInvalid
	}
	return &data, nil
}
