package voice

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultTokenTTL = time.Hour

var ErrNotConfigured = errors.New("voice room not configured")

// VideoGrant mirrors the room permissions a voice server expects in a
// participant token.
type VideoGrant struct {
	Room           string `json:"room"`
	RoomJoin       bool   `json:"roomJoin"`
	CanPublish     bool   `json:"canPublish"`
	CanSubscribe   bool   `json:"canSubscribe"`
	CanPublishData bool   `json:"canPublishData"`
}

type RoomClaims struct {
	Name  string     `json:"name,omitempty"`
	Video VideoGrant `json:"video"`
	jwt.RegisteredClaims
}

// TokenIssuer signs room access tokens with the voice server API secret.
type TokenIssuer struct {
	apiKey    string
	apiSecret string
	ttl       time.Duration
	now       func() time.Time
}

func NewTokenIssuer(apiKey, apiSecret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{apiKey: apiKey, apiSecret: apiSecret, ttl: ttl, now: time.Now}
}

func (t *TokenIssuer) Configured() bool {
	return t != nil && t.apiKey != "" && t.apiSecret != ""
}

// Issue returns a signed token letting identity join room with publish and
// subscribe rights.
func (t *TokenIssuer) Issue(room, identity, name string) (string, error) {
	if !t.Configured() {
		return "", ErrNotConfigured
	}

	now := t.now()
	claims := RoomClaims{
		Name: name,
		Video: VideoGrant{
			Room:           room,
			RoomJoin:       true,
			CanPublish:     true,
			CanSubscribe:   true,
			CanPublishData: true,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.apiKey,
			Subject:   identity,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			ID:        identity,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(t.apiSecret))
}
