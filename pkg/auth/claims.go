package auth

import (
	"fmt"
	"strconv"

	"github.com/angelmondragon/adspace-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uint64
	Role   enums.Role
	// JTI doubles as the session key; a fresh one is generated when empty.
	JTI string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID uint64     `json:"user_id"`
	Role   enums.Role `json:"role"`
	jwt.RegisteredClaims
}

// Validate runs after the registered-claim checks (jwt.ClaimsValidator). The
// subject must agree with user_id and the role must be one the API knows.
func (c AccessTokenClaims) Validate() error {
	if c.UserID == 0 {
		return fmt.Errorf("user id is required")
	}
	if !c.Role.IsValid() {
		return fmt.Errorf("invalid role %q", c.Role)
	}
	if c.Subject != "" && c.Subject != strconv.FormatUint(c.UserID, 10) {
		return fmt.Errorf("subject %q does not match user id %d", c.Subject, c.UserID)
	}
	return nil
}
