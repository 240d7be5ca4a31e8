package storage

import "errors"

// Sentinel errors returned by the stores. Services map these to
// client-facing error kinds.
var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrMemberNotFound      = errors.New("member not found")
	ErrItineraryNotFound   = errors.New("itinerary not found")
	ErrDuplicateInviteCode = errors.New("invite code already in use")
	ErrDuplicateMember     = errors.New("user already in room")
)
