// README: Common value objects shared across modules.
package types

import "github.com/google/uuid"

type ID string

func NewID() ID {
	return ID(uuid.New().String())
}

// Money is an amount in minor units (cents) with a currency code.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func (m Money) IsZero() bool {
	return m.Amount == 0 && m.Currency == ""
}

// Role is the capacity a user acts in. Every actor-facing operation carries
// one explicitly instead of comparing raw role strings.
type Role string

const (
	RoleFarmer Role = "farmer"
	RoleBuyer  Role = "buyer"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleFarmer, RoleBuyer:
		return Role(s), true
	}
	return "", false
}
