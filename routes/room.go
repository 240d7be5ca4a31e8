package routes

import (
	"io"
	"net/http"
	"strconv"

	"github.com/kataras/iris/v12"
	jsonWT "github.com/kataras/iris/v12/middleware/jwt"
	"github.com/revieqt/TaraG-v2-backend/services"
	"github.com/revieqt/TaraG-v2-backend/utils"
)

var roomService *services.RoomService

// InitRoomRoutes wires the service instance used by the room handlers.
func InitRoomRoutes(svc *services.RoomService) {
	roomService = svc
}

func requestUserID(ctx iris.Context) (uint, bool) {
	tok := jsonWT.Get(ctx)
	if tok == nil {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return 0, false
	}
	return tok.(*utils.AccessToken).ID, true
}

// GetRooms lists the rooms the caller belongs to, filtered by
// membership status (?status=member|invited|waiting).
func GetRooms(ctx iris.Context) {
	userID, ok := requestUserID(ctx)
	if !ok {
		return
	}
	status := ctx.URLParamDefault("status", "member")

	rooms, err := roomService.ListRooms(ctx.Request().Context(), userID, status)
	if err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}
	utils.JSONData(ctx, "Rooms retrieved successfully", rooms)
}

// GetSpecificRoom returns the details of one room for its members.
func GetSpecificRoom(ctx iris.Context) {
	userID, ok := requestUserID(ctx)
	if !ok {
		return
	}
	roomID, err := ctx.Params().GetUint("roomID")
	if err != nil {
		ctx.StopWithStatus(http.StatusBadRequest)
		return
	}

	room, svcErr := roomService.GetRoom(ctx.Request().Context(), userID, roomID)
	if svcErr != nil {
		utils.HandleServiceError(svcErr, ctx)
		return
	}
	utils.JSONData(ctx, "Room details retrieved successfully", room)
}

type CreateRoomInput struct {
	Name           string `json:"name" validate:"required"`
	InvitedMembers []uint `json:"invitedMembers"`
	ItineraryID    *uint  `json:"itineraryID"`
}

func CreateRoom(ctx iris.Context) {
	userID, ok := requestUserID(ctx)
	if !ok {
		return
	}
	var input CreateRoomInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	room, err := roomService.CreateRoom(ctx.Request().Context(), userID, input.Name, input.InvitedMembers, input.ItineraryID)
	if err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}
	ctx.StatusCode(http.StatusCreated)
	utils.JSONData(ctx, "Room created successfully", room)
}

type LeaveRoomInput struct {
	RoomID uint `json:"roomID" validate:"required"`
}

func LeaveRoom(ctx iris.Context) {
	userID, ok := requestUserID(ctx)
	if !ok {
		return
	}
	var input LeaveRoomInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	result, err := roomService.LeaveRoom(ctx.Request().Context(), userID, input.RoomID)
	if err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}
	message := "You have left the room successfully."
	if result.RoomDeleted {
		message = "You have left the room. The room has been deleted as it has no members."
	}
	utils.JSONData(ctx, message, result)
}

// UpdateRoomImage accepts a multipart form with an "image" file and a
// "roomID" field.
func UpdateRoomImage(ctx iris.Context) {
	userID, ok := requestUserID(ctx)
	if !ok {
		return
	}

	roomID, err := strconv.ParseUint(ctx.FormValue("roomID"), 10, 32)
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Room ID is required", ctx)
		return
	}

	file, _, err := ctx.FormFile("image")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Image file is required", ctx)
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	imageURL, svcErr := roomService.UpdateRoomImage(ctx.Request().Context(), userID, uint(roomID), imageData)
	if svcErr != nil {
		utils.HandleServiceError(svcErr, ctx)
		return
	}
	utils.JSONData(ctx, "Room image updated successfully", iris.Map{"roomImage": imageURL})
}

type UpdateRoomColorInput struct {
	RoomID uint   `json:"roomID" validate:"required"`
	Color  string `json:"color" validate:"required"`
}

func UpdateRoomColor(ctx iris.Context) {
	userID, ok := requestUserID(ctx)
	if !ok {
		return
	}
	var input UpdateRoomColorInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if err := roomService.UpdateRoomColor(ctx.Request().Context(), userID, input.RoomID, input.Color); err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}
	utils.JSONMessage(ctx, "Room color updated successfully")
}

type UpdateItineraryInput struct {
	RoomID      uint `json:"roomID" validate:"required"`
	ItineraryID uint `json:"itineraryID" validate:"required"`
}

func UpdateAttachedItinerary(ctx iris.Context) {
	userID, ok := requestUserID(ctx)
	if !ok {
		return
	}
	var input UpdateItineraryInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if err := roomService.UpdateAttachedItinerary(ctx.Request().Context(), userID, input.RoomID, input.ItineraryID); err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}
	utils.JSONMessage(ctx, "Room itinerary updated successfully")
}

type RoomUserInput struct {
	RoomID uint `json:"roomID" validate:"required"`
	UserID uint `json:"userID" validate:"required"`
}

func InviteUser(ctx iris.Context) {
	userID, ok := requestUserID(ctx)
	if !ok {
		return
	}
	var input RoomUserInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if err := roomService.InviteUser(ctx.Request().Context(), userID, input.RoomID, input.UserID); err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}
	utils.JSONMessage(ctx, "User invited successfully")
}

func ApproveInvite(ctx iris.Context) {
	userID, ok := requestUserID(ctx)
	if !ok {
		return
	}
	var input RoomUserInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if err := roomService.ApproveInvite(ctx.Request().Context(), userID, input.RoomID, input.UserID); err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}
	utils.JSONMessage(ctx, "Invite approved successfully")
}

type UpdateNicknameInput struct {
	RoomID   uint   `json:"roomID" validate:"required"`
	UserID   uint   `json:"userID" validate:"required"`
	Nickname string `json:"nickname"`
}

func UpdateNickname(ctx iris.Context) {
	userID, ok := requestUserID(ctx)
	if !ok {
		return
	}
	var input UpdateNicknameInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if err := roomService.UpdateNickname(ctx.Request().Context(), userID, input.RoomID, input.UserID, input.Nickname); err != nil {
		utils.HandleServiceError(err, ctx)
		return
	}
	utils.JSONMessage(ctx, "Nickname updated successfully")
}
