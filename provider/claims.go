package provider

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the decoded payload of the provider's token
type Claims map[string]any

func (c Claims) Subject() string {
	s, _ := c["sub"].(string)
	return s
}

func (c Claims) PreferredUsername() string {
	s, _ := c["preferred_username"].(string)
	return s
}

// DecodeClaims reads the payload of a JWT without verifying its signature.
// Signature checks happen at the token endpoint and through the OIDC verifier.
func DecodeClaims(raw string) (Claims, error) {
	parser := jwt.NewParser()
	mapClaims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, mapClaims); err != nil {
		return nil, fmt.Errorf("decode claims: %w", err)
	}
	return Claims(mapClaims), nil
}
