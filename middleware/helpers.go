package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/golang-jwt/jwt/v4"
)

// Role is the caller role carried in the token.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleOrganizer Role = "organizer"
	RoleViewer    Role = "viewer"
)

func (r Role) valid() bool {
	switch r {
	case RoleAdmin, RoleOrganizer, RoleViewer:
		return true
	}
	return false
}

const (
	jwtClaimUserID = "user_id"
	jwtClaimRole   = "role"
)

var ErrNoClaims = errors.New("request is not authenticated")

func claimsFromContext(ctx context.Context) (jwt.MapClaims, error) {
	claims, ok := ctx.Value(userContextKey).(jwt.MapClaims)
	if !ok {
		return nil, ErrNoClaims
	}
	return claims, nil
}

// GetUserIDFromContext returns the positive user id of the authenticated caller.
// JSON numbers decode as float64; numeric strings are accepted as well.
func GetUserIDFromContext(ctx context.Context) (int, error) {
	claims, err := claimsFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var id int
	switch v := claims[jwtClaimUserID].(type) {
	case nil:
		return 0, fmt.Errorf("token has no %s claim", jwtClaimUserID)
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt32 {
			return 0, fmt.Errorf("%s claim %v is not a valid id", jwtClaimUserID, v)
		}
		id = int(v)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%s claim %q is not a number", jwtClaimUserID, v)
		}
		id = n
	default:
		return 0, fmt.Errorf("%s claim has unsupported type %T", jwtClaimUserID, v)
	}

	if id <= 0 {
		return 0, fmt.Errorf("%s claim must be positive, got %d", jwtClaimUserID, id)
	}
	return id, nil
}

func GetUserRoleFromContext(ctx context.Context) (Role, error) {
	claims, err := claimsFromContext(ctx)
	if err != nil {
		return "", err
	}
	raw, ok := claims[jwtClaimRole].(string)
	if !ok {
		return "", fmt.Errorf("token has no %s claim", jwtClaimRole)
	}
	if role := Role(raw); role.valid() {
		return role, nil
	}
	return "", fmt.Errorf("unknown role %q", raw)
}
