// README: User profile read model.
package profile

import (
	"time"

	"harvest/internal/types"
)

type User struct {
	ID        types.ID
	Name      string
	Email     string
	Role      types.Role
	CreatedAt time.Time
}
