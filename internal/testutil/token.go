package testutil

import (
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
)

// AccessToken signs an access token carrying the claims the HRIS auth
// service puts in its tokens.
func AccessToken(auth *jwtauth.JWTAuth, userID string, employeeID *string, role user.Role, ttl time.Duration) (string, error) {
	claims := map[string]interface{}{
		"user_id":     userID,
		"employee_id": nil,
		"role":        string(role),
		"type":        "access",
		"exp":         time.Now().Add(ttl).Unix(),
	}
	if employeeID != nil {
		claims["employee_id"] = *employeeID
	}

	_, token, err := auth.Encode(claims)
	return token, err
}
