package routes

import (
	"github.com/kataras/iris/v12"
	"github.com/revieqt/TaraG-v2-backend/models"
	"github.com/revieqt/TaraG-v2-backend/storage"
	"github.com/revieqt/TaraG-v2-backend/utils"
)

// SearchUsers lets clients look up users by username or email when
// picking room invitees (auth required).
func SearchUsers(ctx iris.Context) {
	if _, ok := requestUserID(ctx); !ok {
		return
	}
	q := ctx.URLParamDefault("q", "")
	limit := ctx.URLParamIntDefault("limit", 20)
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	if len(q) < 1 {
		utils.JSONData(ctx, "Users retrieved successfully", []interface{}{})
		return
	}

	var users []models.User
	search := "%" + q + "%"
	err := storage.DB.Limit(limit).
		Where("lower(username) LIKE lower(?) OR lower(email) LIKE lower(?)", search, search).
		Select("id, username, avatar_url").
		Find(&users).Error
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	utils.JSONData(ctx, "Users retrieved successfully", users)
}
