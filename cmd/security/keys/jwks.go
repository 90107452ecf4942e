package keys

import (
	"encoding/base64"
	"math/big"
)

// JWK is the public half of the pair in RFC 7517 form.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKS is a JSON Web Key Set.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWKS publishes the verification key so resource servers need no call back to the issuer.
func (p *Pair) JWKS() JWKS {
	return JWKS{Keys: []JWK{{
		Kty: "RSA",
		Use: "sig",
		Kid: p.KeyID,
		Alg: "RS256",
		N:   base64.RawURLEncoding.EncodeToString(p.Public.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(p.Public.E)).Bytes()),
	}}}
}
