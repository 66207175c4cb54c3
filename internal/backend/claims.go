package backend

import (
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// UserIDFromToken reads the user_id claim from an access token without
// verifying it. The backend remains the authority on token validity; this
// only labels the session.
func UserIDFromToken(token string) string {
	if token == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	for _, key := range []string{"user_id", "sub"} {
		switch v := claims[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case nil:
		default:
			return fmt.Sprint(v)
		}
	}
	return ""
}
