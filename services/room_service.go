package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/revieqt/TaraG-v2-backend/models"
	"github.com/revieqt/TaraG-v2-backend/storage"
	"github.com/revieqt/TaraG-v2-backend/utils"
	"golang.org/x/exp/slices"
)

// maxInviteCodeAttempts bounds the generate-and-insert retry loop when
// allocating a room invite code.
const maxInviteCodeAttempts = 100

var validMemberStatuses = []string{
	models.MemberStatusMember,
	models.MemberStatusInvited,
	models.MemberStatusWaiting,
}

var roomColorPattern = regexp.MustCompile(`(?i)^#[0-9A-F]{6}$`)

// unknownUsername is shown for members whose user row cannot be
// resolved anymore.
const unknownUsername = "Unknown"

// ImageStore hosts room image assets. Deletion is best-effort.
type ImageStore interface {
	UploadRoomImage(data []byte, publicID string) (string, error)
	DeleteRoomImage(imageURL string) bool
}

// RoomService implements the room membership engine: creation, the
// invite lifecycle, admin-guarded settings updates and leaving.
type RoomService struct {
	store       storage.RoomStore
	users       UserDirectory
	itineraries ItineraryDirectory
	images      ImageStore

	// overridable for tests
	newInviteCode func() string
}

func NewRoomService(store storage.RoomStore, users UserDirectory, itineraries ItineraryDirectory, images ImageStore) *RoomService {
	return &RoomService{
		store:         store,
		users:         users,
		itineraries:   itineraries,
		images:        images,
		newInviteCode: utils.GenerateInviteCode,
	}
}

// RoomListItem is one entry of the room list. MemberCount counts every
// membership record regardless of status.
type RoomListItem struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	RoomImage   string `json:"roomImage,omitempty"`
	MemberCount int    `json:"memberCount"`
}

// RoomMemberView is a membership record enriched with the username.
type RoomMemberView struct {
	UserID   uint      `json:"userID"`
	Nickname string    `json:"nickname,omitempty"`
	Username string    `json:"username"`
	JoinedOn time.Time `json:"joinedOn"`
	Status   string    `json:"status"`
}

// RoomDetail is the full view of a room for its members.
type RoomDetail struct {
	Name       string           `json:"name"`
	InviteCode string           `json:"inviteCode"`
	RoomImage  string           `json:"roomImage,omitempty"`
	RoomColor  string           `json:"roomColor"`
	ChatID     string           `json:"chatID"`
	Admins     []uint           `json:"admins"`
	Members    []RoomMemberView `json:"members"`

	ItineraryID        *uint      `json:"itineraryID,omitempty"`
	ItineraryTitle     string     `json:"itineraryTitle,omitempty"`
	ItineraryStartDate *time.Time `json:"itineraryStartDate,omitempty"`
	ItineraryEndDate   *time.Time `json:"itineraryEndDate,omitempty"`
}

// CreatedRoom is the response payload of room creation.
type CreatedRoom struct {
	ID          uint             `json:"id"`
	Name        string           `json:"name"`
	InviteCode  string           `json:"inviteCode"`
	RoomImage   string           `json:"roomImage"`
	RoomColor   string           `json:"roomColor"`
	ItineraryID *uint            `json:"itineraryID,omitempty"`
	ChatID      string           `json:"chatID"`
	Admins      []uint           `json:"admins"`
	Members     []RoomMemberView `json:"members"`
}

// LeaveResult reports whether leaving emptied and deleted the room.
type LeaveResult struct {
	RoomDeleted bool `json:"roomDeleted"`
}

// ListRooms returns every room where userID holds a membership of the
// given status. Unknown filters silently fall back to "member".
func (s *RoomService) ListRooms(ctx context.Context, userID uint, status string) ([]RoomListItem, error) {
	if !slices.Contains(validMemberStatuses, status) {
		status = models.MemberStatusMember
	}

	rooms, err := s.store.FindByMember(ctx, userID, status)
	if err != nil {
		return nil, utils.UnknownError(err)
	}

	items := make([]RoomListItem, 0, len(rooms))
	for i := range rooms {
		items = append(items, RoomListItem{
			ID:          rooms[i].ID,
			Name:        rooms[i].Name,
			RoomImage:   rooms[i].RoomImage,
			MemberCount: len(rooms[i].Members),
		})
	}
	return items, nil
}

// GetRoom returns the detail view of a room. Any membership record,
// including invited and waiting ones, grants read access.
func (s *RoomService) GetRoom(ctx context.Context, userID, roomID uint) (*RoomDetail, error) {
	room, err := s.findRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasMember(userID) {
		return nil, utils.ForbiddenError("Access denied: User is not a member of this room")
	}

	detail := &RoomDetail{
		Name:       room.Name,
		InviteCode: room.InviteCode,
		RoomImage:  room.RoomImage,
		RoomColor:  room.RoomColor,
		ChatID:     room.ChatID,
		Admins:     room.AdminIDs(),
		Members:    s.memberViews(ctx, room.Members),
	}

	if room.ItineraryID != nil {
		detail.ItineraryID = room.ItineraryID
		summary, err := s.itineraries.Summary(ctx, *room.ItineraryID)
		if err != nil {
			// Enrichment only; the room view must not fail with it.
			log.Printf("failed to fetch itinerary %d for room %d: %v", *room.ItineraryID, roomID, err)
		} else {
			detail.ItineraryTitle = summary.Title
			start, end := summary.StartDate, summary.EndDate
			detail.ItineraryStartDate = &start
			detail.ItineraryEndDate = &end
		}
	}

	return detail, nil
}

// CreateRoom creates a room with the creator as sole admin and first
// member. Invited ids become "invited" memberships; they are not
// checked against the user directory here, pending invites to unknown
// users simply never get approved.
func (s *RoomService) CreateRoom(ctx context.Context, userID uint, name string, invitedMembers []uint, itineraryID *uint) (*CreatedRoom, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, utils.ValidationError("Room name is required")
	}

	now := time.Now()
	members := []models.RoomMember{{
		UserID:   userID,
		Status:   models.MemberStatusMember,
		IsAdmin:  true,
		JoinedOn: now,
	}}
	for _, invitedID := range invitedMembers {
		if invitedID == userID {
			continue
		}
		already := slices.ContainsFunc(members, func(m models.RoomMember) bool {
			return m.UserID == invitedID
		})
		if already {
			continue
		}
		members = append(members, models.RoomMember{
			UserID:   invitedID,
			Status:   models.MemberStatusInvited,
			JoinedOn: now,
		})
	}

	room := &models.Room{
		Name:        name,
		RoomColor:   models.DefaultRoomColor,
		ItineraryID: itineraryID,
		ChatID:      uuid.NewString(),
		Members:     members,
		CreatedOn:   now,
		UpdatedOn:   now,
	}

	// The store's unique index is the real guarantor of code
	// uniqueness; this loop only retries on its rejections.
	created := false
	for attempt := 0; attempt < maxInviteCodeAttempts; attempt++ {
		room.InviteCode = s.newInviteCode()
		err := s.store.Create(ctx, room)
		if err == nil {
			created = true
			break
		}
		if errors.Is(err, storage.ErrDuplicateInviteCode) {
			continue
		}
		return nil, utils.UnknownError(err)
	}
	if !created {
		return nil, utils.ConflictError("Could not allocate a unique invite code")
	}

	return &CreatedRoom{
		ID:          room.ID,
		Name:        room.Name,
		InviteCode:  room.InviteCode,
		RoomImage:   room.RoomImage,
		RoomColor:   room.RoomColor,
		ItineraryID: room.ItineraryID,
		ChatID:      room.ChatID,
		Admins:      room.AdminIDs(),
		Members:     s.memberViews(ctx, room.Members),
	}, nil
}

// LeaveRoom removes the caller's membership. The sole admin may only
// leave when no other members remain, in which case the emptied room
// is deleted.
func (s *RoomService) LeaveRoom(ctx context.Context, userID, roomID uint) (*LeaveResult, error) {
	room, err := s.findRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	member := room.FindMember(userID)
	if member == nil {
		return nil, utils.ForbiddenError("User is not a member of this room")
	}

	if member.IsAdmin {
		otherAdmins := 0
		for i := range room.Members {
			if room.Members[i].IsAdmin && room.Members[i].UserID != userID {
				otherAdmins++
			}
		}
		otherMembers := len(room.Members) - 1
		if otherAdmins == 0 && otherMembers > 0 {
			return nil, utils.ForbiddenError("You cannot leave the room as the only admin. Please assign another admin first.")
		}
	}

	roomDeleted, err := s.store.RemoveMember(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrRoomNotFound) || errors.Is(err, storage.ErrMemberNotFound) {
			// Lost a race with a concurrent leave or delete.
			return nil, utils.NotFoundError("Room not found")
		}
		return nil, utils.UnknownError(err)
	}
	return &LeaveResult{RoomDeleted: roomDeleted}, nil
}

// UpdateRoomImage replaces the room image with freshly uploaded bytes
// and deletes the previous asset best-effort.
func (s *RoomService) UpdateRoomImage(ctx context.Context, userID, roomID uint, imageData []byte) (string, error) {
	room, err := s.requireAdmin(ctx, userID, roomID, "Only admins can update room image")
	if err != nil {
		return "", err
	}

	publicID := fmt.Sprintf("room_%d_%d", roomID, time.Now().UnixNano())
	newURL, uploadErr := s.images.UploadRoomImage(imageData, publicID)
	if uploadErr != nil {
		return "", utils.UnknownError(uploadErr)
	}

	if room.RoomImage != "" {
		if !s.images.DeleteRoomImage(room.RoomImage) {
			log.Printf("failed to delete old image of room %d", roomID)
		}
	}

	if err := s.updateRoom(ctx, roomID, map[string]interface{}{"room_image": newURL}); err != nil {
		return "", err
	}
	return newURL, nil
}

// UpdateRoomColor sets the room color after validating the hex format.
func (s *RoomService) UpdateRoomColor(ctx context.Context, userID, roomID uint, color string) error {
	if _, err := s.requireAdmin(ctx, userID, roomID, "Only admins can update room color"); err != nil {
		return err
	}
	if !roomColorPattern.MatchString(color) {
		return utils.ValidationError("Invalid color format. Use hex format (e.g., #00CAFF)")
	}
	return s.updateRoom(ctx, roomID, map[string]interface{}{"room_color": color})
}

// UpdateAttachedItinerary points the room at an existing itinerary.
func (s *RoomService) UpdateAttachedItinerary(ctx context.Context, userID, roomID, itineraryID uint) error {
	if _, err := s.requireAdmin(ctx, userID, roomID, "Only admins can update attached itinerary"); err != nil {
		return err
	}
	if _, err := s.itineraries.Summary(ctx, itineraryID); err != nil {
		if errors.Is(err, storage.ErrItineraryNotFound) {
			return utils.NotFoundError("Itinerary not found")
		}
		return utils.UnknownError(err)
	}
	return s.updateRoom(ctx, roomID, map[string]interface{}{"itinerary_id": itineraryID})
}

// InviteUser adds an "invited" membership for the target user.
func (s *RoomService) InviteUser(ctx context.Context, userID, roomID, targetUserID uint) error {
	room, err := s.requireAdmin(ctx, userID, roomID, "Only admins can invite users")
	if err != nil {
		return err
	}
	if room.HasMember(targetUserID) {
		return utils.ConflictError("User is already a member of this room")
	}

	exists, err := s.users.Exists(ctx, targetUserID)
	if err != nil {
		return utils.UnknownError(err)
	}
	if !exists {
		return utils.NotFoundError("User not found")
	}

	err = s.store.AddMember(ctx, &models.RoomMember{
		RoomID:   roomID,
		UserID:   targetUserID,
		Status:   models.MemberStatusInvited,
		JoinedOn: time.Now(),
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateMember) {
			return utils.ConflictError("User is already a member of this room")
		}
		return utils.UnknownError(err)
	}
	return nil
}

// ApproveInvite promotes an invited membership to full member and
// refreshes its join time.
func (s *RoomService) ApproveInvite(ctx context.Context, userID, roomID, targetUserID uint) error {
	room, err := s.requireAdmin(ctx, userID, roomID, "Only admins can approve invites")
	if err != nil {
		return err
	}
	member := room.FindMember(targetUserID)
	if member == nil {
		return utils.ValidationError("User is not invited to this room")
	}
	if member.Status != models.MemberStatusInvited {
		return utils.ValidationError("User is not in invited status")
	}

	updated, err := s.store.UpdateMemberStatus(ctx, roomID, targetUserID,
		models.MemberStatusInvited, models.MemberStatusMember, time.Now())
	if err != nil {
		return utils.UnknownError(err)
	}
	if !updated {
		// The invite changed underneath us between read and update.
		return utils.ValidationError("User is not in invited status")
	}
	return nil
}

// UpdateNickname sets or clears the target member's display override.
func (s *RoomService) UpdateNickname(ctx context.Context, userID, roomID, targetUserID uint, nickname string) error {
	room, err := s.requireAdmin(ctx, userID, roomID, "Only admins can update nicknames")
	if err != nil {
		return err
	}
	if !room.HasMember(targetUserID) {
		return utils.NotFoundError("User is not a member of this room")
	}

	var value *string
	if trimmed := strings.TrimSpace(nickname); trimmed != "" {
		value = &trimmed
	}
	updated, err := s.store.UpdateMemberNickname(ctx, roomID, targetUserID, value)
	if err != nil {
		return utils.UnknownError(err)
	}
	if !updated {
		return utils.NotFoundError("User is not a member of this room")
	}
	return nil
}

func (s *RoomService) findRoom(ctx context.Context, roomID uint) (*models.Room, error) {
	room, err := s.store.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, storage.ErrRoomNotFound) {
			return nil, utils.NotFoundError("Room not found")
		}
		return nil, utils.UnknownError(err)
	}
	return room, nil
}

func (s *RoomService) requireAdmin(ctx context.Context, userID, roomID uint, denied string) (*models.Room, error) {
	room, err := s.findRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsAdmin(userID) {
		return nil, utils.ForbiddenError(denied)
	}
	return room, nil
}

func (s *RoomService) updateRoom(ctx context.Context, roomID uint, fields map[string]interface{}) error {
	if err := s.store.UpdateFields(ctx, roomID, fields); err != nil {
		if errors.Is(err, storage.ErrRoomNotFound) {
			return utils.NotFoundError("Room not found")
		}
		return utils.UnknownError(err)
	}
	return nil
}

// memberViews enriches membership rows with usernames. Lookup failures
// degrade to the placeholder name instead of failing the call.
func (s *RoomService) memberViews(ctx context.Context, members []models.RoomMember) []RoomMemberView {
	ids := make([]uint, 0, len(members))
	for i := range members {
		if !slices.Contains(ids, members[i].UserID) {
			ids = append(ids, members[i].UserID)
		}
	}

	usernames, err := s.users.Usernames(ctx, ids)
	if err != nil {
		log.Printf("failed to resolve usernames: %v", err)
		usernames = map[uint]string{}
	}

	views := make([]RoomMemberView, 0, len(members))
	for i := range members {
		m := &members[i]
		username, ok := usernames[m.UserID]
		if !ok {
			username = unknownUsername
		}
		view := RoomMemberView{
			UserID:   m.UserID,
			Username: username,
			JoinedOn: m.JoinedOn,
			Status:   m.Status,
		}
		if m.Nickname != nil {
			view.Nickname = *m.Nickname
		}
		views = append(views, view)
	}
	return views
}
