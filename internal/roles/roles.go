// Package roles derives the caller's role flags from the group set the
// identity provider exposes. Manager and Delivery Crew are independent,
// non-exclusive flags; Customer is the fallback when neither is held.
package roles

import "github.com/Skotchmaster/restaurant_api/internal/models"

type Identity struct {
	UserID       uint
	Username     string
	Manager      bool
	DeliveryCrew bool
}

func FromGroups(userID uint, username string, groups []string) Identity {
	id := Identity{UserID: userID, Username: username}
	for _, g := range groups {
		switch g {
		case models.GroupManager:
			id.Manager = true
		case models.GroupDeliveryCrew:
			id.DeliveryCrew = true
		}
	}
	return id
}

func (i Identity) IsCustomer() bool {
	return !i.Manager && !i.DeliveryCrew
}

// IsStaff reports whether the caller may see non-featured menu items.
func (i Identity) IsStaff() bool {
	return i.Manager || i.DeliveryCrew
}
