// Package access resolves who is calling and what they're allowed to do
package access

import (
	"bitwise74/recipe-api/internal/model"

	"github.com/gin-gonic/gin"
)

// ContextKey is the gin context key the principal is stored under
const ContextKey = "principal"

type Role int

const (
	RoleNone Role = iota
	RoleUser
	RoleNutritionist
	RoleStaff
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleNutritionist:
		return "nutritionist"
	case RoleStaff:
		return "staff"
	default:
		return "none"
	}
}

// Principal is the authenticated caller. Exactly one of Profile and
// Nutritionist is set for RoleUser and RoleNutritionist, staff may
// carry either or none.
type Principal struct {
	Account      *model.Account
	Role         Role
	Profile      *model.Profile
	Nutritionist *model.NutritionistProfile
}

// Resolve builds the principal of an account with its profiles preloaded.
// Staff wins over any profile.
func Resolve(a *model.Account) *Principal {
	p := &Principal{
		Account:      a,
		Profile:      a.Profile,
		Nutritionist: a.Nutritionist,
	}

	switch {
	case a.IsStaff:
		p.Role = RoleStaff
	case a.Profile != nil:
		p.Role = RoleUser
	case a.Nutritionist != nil:
		p.Role = RoleNutritionist
	default:
		p.Role = RoleNone
	}

	return p
}

func (p *Principal) Is(roles ...Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}

	return false
}

// Verified reports whether the caller's profile has been verified. Staff
// are always considered verified.
func (p *Principal) Verified() bool {
	switch p.Role {
	case RoleStaff:
		return true
	case RoleUser:
		return p.Profile.IsVerified
	case RoleNutritionist:
		return p.Nutritionist.IsVerified
	}

	return false
}

// CanModify reports whether the caller owns the resource or is staff
func (p *Principal) CanModify(ownerAccountID uint) bool {
	return p.Role == RoleStaff || p.Account.ID == ownerAccountID
}

// FromContext returns the principal the JWT middleware stored in c
func FromContext(c *gin.Context) (*Principal, bool) {
	v, ok := c.Get(ContextKey)
	if !ok {
		return nil, false
	}

	p, ok := v.(*Principal)
	return p, ok
}
