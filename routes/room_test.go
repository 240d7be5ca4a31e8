package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"github.com/revieqt/TaraG-v2-backend/models"
	"github.com/revieqt/TaraG-v2-backend/services"
	"github.com/revieqt/TaraG-v2-backend/storage"
	"github.com/revieqt/TaraG-v2-backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRoomStore is a minimal in-memory RoomStore for exercising the
// HTTP layer without a database.
type memRoomStore struct {
	nextID uint
	rooms  map[uint]*models.Room
}

func (m *memRoomStore) Create(_ context.Context, room *models.Room) error {
	for _, r := range m.rooms {
		if r.InviteCode == room.InviteCode {
			return storage.ErrDuplicateInviteCode
		}
	}
	m.nextID++
	room.ID = m.nextID
	for i := range room.Members {
		room.Members[i].RoomID = room.ID
	}
	stored := *room
	stored.Members = append([]models.RoomMember(nil), room.Members...)
	m.rooms[room.ID] = &stored
	return nil
}

func (m *memRoomStore) FindByID(_ context.Context, id uint) (*models.Room, error) {
	room, ok := m.rooms[id]
	if !ok {
		return nil, storage.ErrRoomNotFound
	}
	cp := *room
	cp.Members = append([]models.RoomMember(nil), room.Members...)
	return &cp, nil
}

func (m *memRoomStore) FindByMember(_ context.Context, userID uint, status string) ([]models.Room, error) {
	var out []models.Room
	for _, room := range m.rooms {
		for i := range room.Members {
			if room.Members[i].UserID == userID && room.Members[i].Status == status {
				out = append(out, *room)
				break
			}
		}
	}
	return out, nil
}

func (m *memRoomStore) UpdateFields(_ context.Context, roomID uint, fields map[string]interface{}) error {
	room, ok := m.rooms[roomID]
	if !ok {
		return storage.ErrRoomNotFound
	}
	if v, ok := fields["room_color"]; ok {
		room.RoomColor = v.(string)
	}
	if v, ok := fields["room_image"]; ok {
		room.RoomImage = v.(string)
	}
	if v, ok := fields["itinerary_id"]; ok {
		id := v.(uint)
		room.ItineraryID = &id
	}
	room.UpdatedOn = time.Now()
	return nil
}

func (m *memRoomStore) AddMember(_ context.Context, member *models.RoomMember) error {
	room, ok := m.rooms[member.RoomID]
	if !ok {
		return storage.ErrRoomNotFound
	}
	for i := range room.Members {
		if room.Members[i].UserID == member.UserID {
			return storage.ErrDuplicateMember
		}
	}
	room.Members = append(room.Members, *member)
	return nil
}

func (m *memRoomStore) UpdateMemberStatus(_ context.Context, roomID, userID uint, fromStatus, toStatus string, joinedOn time.Time) (bool, error) {
	room, ok := m.rooms[roomID]
	if !ok {
		return false, nil
	}
	for i := range room.Members {
		if room.Members[i].UserID == userID && room.Members[i].Status == fromStatus {
			room.Members[i].Status = toStatus
			room.Members[i].JoinedOn = joinedOn
			return true, nil
		}
	}
	return false, nil
}

func (m *memRoomStore) UpdateMemberNickname(_ context.Context, roomID, userID uint, nickname *string) (bool, error) {
	room, ok := m.rooms[roomID]
	if !ok {
		return false, nil
	}
	for i := range room.Members {
		if room.Members[i].UserID == userID {
			room.Members[i].Nickname = nickname
			return true, nil
		}
	}
	return false, nil
}

func (m *memRoomStore) RemoveMember(_ context.Context, roomID, userID uint) (bool, error) {
	room, ok := m.rooms[roomID]
	if !ok {
		return false, storage.ErrRoomNotFound
	}
	for i := range room.Members {
		if room.Members[i].UserID == userID {
			room.Members = append(room.Members[:i], room.Members[i+1:]...)
			if len(room.Members) == 0 {
				delete(m.rooms, roomID)
				return true, nil
			}
			return false, nil
		}
	}
	return false, storage.ErrMemberNotFound
}

type memUsers struct{}

func (memUsers) Exists(_ context.Context, id uint) (bool, error) {
	return id < 10, nil
}

func (memUsers) Usernames(_ context.Context, ids []uint) (map[uint]string, error) {
	out := map[uint]string{}
	for _, id := range ids {
		if id < 10 {
			out[id] = fmt.Sprintf("user%d", id)
		}
	}
	return out, nil
}

type memItineraries struct{}

func (memItineraries) Summary(_ context.Context, id uint) (*services.ItinerarySummary, error) {
	return nil, storage.ErrItineraryNotFound
}

type memImages struct{}

func (memImages) UploadRoomImage(_ []byte, publicID string) (string, error) {
	return "https://img.test/" + publicID, nil
}

func (memImages) DeleteRoomImage(string) bool { return true }

// buildTestApp creates a minimal Iris app with the room routes and the
// JWT verifier wired against in-memory collaborators.
func buildTestApp() *iris.Application {
	os.Setenv("ACCESS_TOKEN_SECRET", "testsecret")
	InitRoomRoutes(services.NewRoomService(
		&memRoomStore{rooms: map[uint]*models.Room{}},
		memUsers{},
		memItineraries{},
		memImages{},
	))

	app := iris.New()

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, os.Getenv("ACCESS_TOKEN_SECRET"))
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} { return new(utils.AccessToken) })

	rooms := app.Party("/api/rooms", accessTokenVerifierMiddleware)
	{
		rooms.Get("/", GetRooms)
		rooms.Get("/view/{roomID:uint}", GetSpecificRoom)
		rooms.Post("/create", CreateRoom)
		rooms.Post("/leave", LeaveRoom)
		rooms.Post("/update-color", UpdateRoomColor)
		rooms.Post("/invite", InviteUser)
		rooms.Post("/approve-invite", ApproveInvite)
		rooms.Post("/update-nickname", UpdateNickname)
	}
	if err := app.Build(); err != nil {
		panic(err)
	}
	return app
}

func signTestToken(id uint) string {
	token, _ := utils.CreateAccessToken(id)
	return token
}

func doJSON(app *iris.Application, method, path string, userID uint, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if userID != 0 {
		req.Header.Set("Authorization", "Bearer "+signTestToken(userID))
	}
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	return resp
}

func TestRoomRoutesRequireToken(t *testing.T) {
	app := buildTestApp()

	resp := doJSON(app, http.MethodGet, "/api/rooms/", 0, "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = doJSON(app, http.MethodPost, "/api/rooms/create", 0, `{"name":"Trip"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestCreateAndViewRoom(t *testing.T) {
	app := buildTestApp()

	resp := doJSON(app, http.MethodPost, "/api/rooms/create", 1, `{"name":"Trip","invitedMembers":[2]}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var created struct {
		Message string `json:"message"`
		Data    struct {
			ID         uint   `json:"id"`
			InviteCode string `json:"inviteCode"`
			RoomColor  string `json:"roomColor"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.Equal(t, "#00CAFF", created.Data.RoomColor)
	assert.Len(t, created.Data.InviteCode, 6)

	viewPath := fmt.Sprintf("/api/rooms/view/%d", created.Data.ID)
	resp = doJSON(app, http.MethodGet, viewPath, 1, "")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var detail struct {
		Data struct {
			InviteCode string `json:"inviteCode"`
			Members    []struct {
				Username string `json:"username"`
				Status   string `json:"status"`
			} `json:"members"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &detail))
	assert.Equal(t, created.Data.InviteCode, detail.Data.InviteCode)
	require.Len(t, detail.Data.Members, 2)
	assert.Equal(t, "user1", detail.Data.Members[0].Username)
	assert.Equal(t, "invited", detail.Data.Members[1].Status)

	// Outsiders get a 403 on the same view.
	resp = doJSON(app, http.MethodGet, viewPath, 3, "")
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestCreateRoomValidation(t *testing.T) {
	app := buildTestApp()

	resp := doJSON(app, http.MethodPost, "/api/rooms/create", 1, `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestViewMissingRoom(t *testing.T) {
	app := buildTestApp()

	resp := doJSON(app, http.MethodGet, "/api/rooms/view/42", 1, "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestUpdateRoomColorStatusMapping(t *testing.T) {
	app := buildTestApp()

	resp := doJSON(app, http.MethodPost, "/api/rooms/create", 1, `{"name":"Trip","invitedMembers":[2]}`)
	require.Equal(t, http.StatusCreated, resp.Code)

	var created struct {
		Data struct {
			ID uint `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	roomID := created.Data.ID

	// Non-admin member -> 403.
	body := fmt.Sprintf(`{"roomID":%d,"color":"#ABCDEF"}`, roomID)
	resp = doJSON(app, http.MethodPost, "/api/rooms/update-color", 2, body)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	// Admin with a bad value -> 400.
	body = fmt.Sprintf(`{"roomID":%d,"color":"blue"}`, roomID)
	resp = doJSON(app, http.MethodPost, "/api/rooms/update-color", 1, body)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	// Admin with a valid value -> 200.
	body = fmt.Sprintf(`{"roomID":%d,"color":"#ABCDEF"}`, roomID)
	resp = doJSON(app, http.MethodPost, "/api/rooms/update-color", 1, body)
	assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
}

func TestInviteApproveAndLeaveFlow(t *testing.T) {
	app := buildTestApp()

	resp := doJSON(app, http.MethodPost, "/api/rooms/create", 1, `{"name":"Trip"}`)
	require.Equal(t, http.StatusCreated, resp.Code)
	var created struct {
		Data struct {
			ID uint `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	roomID := created.Data.ID

	// Invite an unknown user id -> 404.
	body := fmt.Sprintf(`{"roomID":%d,"userID":99}`, roomID)
	resp = doJSON(app, http.MethodPost, "/api/rooms/invite", 1, body)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	body = fmt.Sprintf(`{"roomID":%d,"userID":2}`, roomID)
	resp = doJSON(app, http.MethodPost, "/api/rooms/invite", 1, body)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	// Inviting again conflicts.
	resp = doJSON(app, http.MethodPost, "/api/rooms/invite", 1, body)
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = doJSON(app, http.MethodPost, "/api/rooms/approve-invite", 1, body)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	// Sole admin cannot leave while another member remains.
	leaveBody := fmt.Sprintf(`{"roomID":%d}`, roomID)
	resp = doJSON(app, http.MethodPost, "/api/rooms/leave", 1, leaveBody)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	// The other member leaves, then the admin empties the room.
	resp = doJSON(app, http.MethodPost, "/api/rooms/leave", 2, leaveBody)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = doJSON(app, http.MethodPost, "/api/rooms/leave", 1, leaveBody)
	require.Equal(t, http.StatusOK, resp.Code)

	var left struct {
		Data struct {
			RoomDeleted bool `json:"roomDeleted"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &left))
	assert.True(t, left.Data.RoomDeleted)
}
