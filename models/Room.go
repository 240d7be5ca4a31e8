package models

import "time"

// Membership statuses inside a room.
// member: full member, invited: added by an admin and pending approval,
// waiting: asked to join and pending approval.
const (
	MemberStatusMember  = "member"
	MemberStatusInvited = "invited"
	MemberStatusWaiting = "waiting"
)

// DefaultRoomColor is assigned to rooms created without a color.
const DefaultRoomColor = "#00CAFF"

// Room is a travel group sharing a chat and optionally an itinerary.
// The invite code is short enough to share out of band; uniqueness is
// enforced by the database index.
type Room struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	Name       string `json:"name" gorm:"size:80;not null"`
	InviteCode string `json:"inviteCode" gorm:"size:6;uniqueIndex;not null"`
	RoomImage  string `json:"roomImage" gorm:"size:512"` // empty means no image
	RoomColor  string `json:"roomColor" gorm:"size:7"`

	ItineraryID *uint      `json:"itineraryID" gorm:"index"`
	Itinerary   *Itinerary `json:"-" gorm:"foreignKey:ItineraryID"`

	ChatID string `json:"chatID" gorm:"size:36;not null"`

	Members []RoomMember `json:"members" gorm:"foreignKey:RoomID"`

	CreatedOn time.Time `json:"createdOn"`
	UpdatedOn time.Time `json:"updatedOn"`
}

// RoomMember tracks each user's state inside a room. A user appears at
// most once per room. Admin rights live on the membership row, so
// removing the row also removes the admin entry.
type RoomMember struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	RoomID uint `json:"roomID" gorm:"not null;uniqueIndex:idx_room_user"`
	UserID uint `json:"userID" gorm:"not null;uniqueIndex:idx_room_user;index"`
	User   User `json:"-" gorm:"foreignKey:UserID"`

	Nickname *string   `json:"nickname,omitempty" gorm:"size:40"` // nil means no override
	Status   string    `json:"status" gorm:"size:16;index"`
	IsAdmin  bool      `json:"isAdmin"`
	JoinedOn time.Time `json:"joinedOn"`
}

// FindMember returns the membership row for userID, or nil.
func (r *Room) FindMember(userID uint) *RoomMember {
	for i := range r.Members {
		if r.Members[i].UserID == userID {
			return &r.Members[i]
		}
	}
	return nil
}

// HasMember reports whether userID holds a membership row of any status.
func (r *Room) HasMember(userID uint) bool {
	return r.FindMember(userID) != nil
}

// IsAdmin reports whether userID is an admin of the room.
func (r *Room) IsAdmin(userID uint) bool {
	m := r.FindMember(userID)
	return m != nil && m.IsAdmin
}

// AdminIDs returns the ids of all admins in membership order.
func (r *Room) AdminIDs() []uint {
	ids := make([]uint, 0, 1)
	for i := range r.Members {
		if r.Members[i].IsAdmin {
			ids = append(ids, r.Members[i].UserID)
		}
	}
	return ids
}
