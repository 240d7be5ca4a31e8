package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"github.com/revieqt/TaraG-v2-backend/routes"
	"github.com/revieqt/TaraG-v2-backend/services"
	"github.com/revieqt/TaraG-v2-backend/storage"
	"github.com/revieqt/TaraG-v2-backend/utils"
)

func main() {
	// Only load .env in development
	if os.Getenv("RENDER") == "" {
		godotenv.Load()
	}

	storage.InitializeDB()
	storage.InitializeRedis()
	storage.InitializeS3()

	app := iris.New()
	app.Validator = validator.New()

	// CORS configuration
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	app.Use(iris.Compression)

	secret := os.Getenv("ACCESS_TOKEN_SECRET")
	if secret == "" {
		log.Fatal("ACCESS_TOKEN_SECRET environment variable is required")
	}
	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(secret))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok"})
	})

	roomService := services.NewRoomService(
		storage.NewRoomStore(storage.DB),
		services.NewUserDirectory(storage.DB, storage.Redis),
		services.NewItineraryDirectory(storage.DB),
		storage.NewImageHost(),
	)
	routes.InitRoomRoutes(roomService)

	rooms := app.Party("/api/rooms", accessTokenVerifierMiddleware)
	{
		rooms.Get("/", routes.GetRooms)
		rooms.Get("/view/{roomID:uint}", routes.GetSpecificRoom)
		rooms.Post("/create", routes.CreateRoom)
		rooms.Post("/leave", routes.LeaveRoom)
		rooms.Post("/update-image", routes.UpdateRoomImage)
		rooms.Post("/update-color", routes.UpdateRoomColor)
		rooms.Post("/update-itinerary", routes.UpdateAttachedItinerary)
		rooms.Post("/invite", routes.InviteUser)
		rooms.Post("/approve-invite", routes.ApproveInvite)
		rooms.Post("/update-nickname", routes.UpdateNickname)
	}

	user := app.Party("/api/user")
	{
		user.Get("/search", accessTokenVerifierMiddleware, routes.SearchUsers)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	app.Listen(":" + port)
}
