package auth

import (
	"github.com/mitchellh/mapstructure"
)

// roleMetadata is the nested shape some issuers embed under app_metadata.
type roleMetadata struct {
	Role string `mapstructure:"role"`
}

// RoleFromClaims extracts the caller's role claim from a token claim set.
// Supports:
//   - Flat claim: {"role": "admin"}
//   - Nested metadata: {"app_metadata": {"role": "admin"}}
//
// Returns the empty string when no usable role claim is present; absence is
// not an error, the role resolver falls back to the user table.
func RoleFromClaims(claims map[string]interface{}) string {
	if role, ok := claims["role"].(string); ok && role != "" {
		return role
	}
	if meta, ok := claims["app_metadata"].(map[string]interface{}); ok {
		return roleFromMetadata(meta)
	}
	return ""
}

// roleFromMetadata decodes the nested app_metadata object.
func roleFromMetadata(metadata map[string]interface{}) string {
	if metadata == nil {
		return ""
	}
	var decoded roleMetadata
	if err := mapstructure.Decode(metadata, &decoded); err != nil {
		// Malformed metadata is treated as no claim
		return ""
	}
	return decoded.Role
}
