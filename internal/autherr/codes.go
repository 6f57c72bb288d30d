// Package autherr defines the closed failure taxonomy shared by the
// authentication services and the HTTP boundary. Code values are the stable
// wire contract; descriptions may change without breaking clients.
package autherr

import "encoding/json"

type Code struct {
	value       string
	description string
}

var (
	InternalError = Code{"A-1000", "Internal error"}

	InvalidSignupCredentials = Code{"A-S1001", "Invalid signup credentials"}

	InvalidLoginCredentials = Code{"A-L1001", "Invalid login credentials"}
	AccountBanned           = Code{"A-L1002", "Account banned"}
	TooManyLoginAttempts    = Code{"A-L1003", "Too many login attempts"}

	AccessTokenExpired = Code{"A-AT1001", "Access token expired"}
	AccessTokenInvalid = Code{"A-AT1002", "Access token signature invalid"}

	RefreshTokenExpired = Code{"A-RT1001", "Refresh token expired"}
	RefreshTokenInvalid = Code{"A-RT1002", "Refresh token invalid"}

	InsufficientPermissions = Code{"A-R1001", "Insufficient permissions"}
	ForbiddenResource       = Code{"A-R1002", "Forbidden resource"}
	RoleNotAllowed          = Code{"A-R1003", "Role not allowed"}
)

func (c Code) Value() string       { return c.value }
func (c Code) Description() string { return c.description }

func (c Code) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.value + `"`), nil
}

func (c *Code) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	c.value = v
	c.description = ""
	return nil
}
