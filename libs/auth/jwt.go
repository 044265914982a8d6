package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"`
	Exp  int64  `json:"exp"`
	Iat  int64  `json:"iat"`
}

type header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

var b64 = base64.RawURLEncoding

func SignHS256(claims Claims, secret string) (string, error) {
	if secret == "" {
		return "", errors.New("empty signing secret")
	}
	var segments [2]string
	for i, v := range []any{header{Alg: "HS256", Typ: "JWT"}, claims} {
		raw, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		segments[i] = b64.EncodeToString(raw)
	}
	signingInput := segments[0] + "." + segments[1]
	return signingInput + "." + sign(signingInput, secret), nil
}

// ParseAndVerifyHS256 rejects anything not signed with HS256 under secret, and expired tokens.
// Claims are decoded only after the signature matches.
func ParseAndVerifyHS256(token, secret string) (*Claims, error) {
	if secret == "" {
		return nil, ErrInvalidToken
	}
	head, body, sig, ok := split(token)
	if !ok {
		return nil, ErrInvalidToken
	}
	if !hmac.Equal([]byte(sig), []byte(sign(head+"."+body, secret))) {
		return nil, ErrInvalidToken
	}

	var h header
	if err := decodeSegment(head, &h); err != nil || h.Alg != "HS256" {
		return nil, ErrInvalidToken
	}
	var claims Claims
	if err := decodeSegment(body, &claims); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.Exp > 0 && time.Now().Unix() > claims.Exp {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

func split(token string) (head, body, sig string, ok bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

func decodeSegment(seg string, v any) error {
	raw, err := b64.DecodeString(seg)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func sign(input, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(input))
	return b64.EncodeToString(mac.Sum(nil))
}
