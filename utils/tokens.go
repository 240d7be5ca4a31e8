package utils

import (
	"os"
	"time"

	"github.com/kataras/iris/v12/middleware/jwt"
)

// AccessToken is the claims payload carried in the bearer token. The
// auth service issues these; this server only verifies and reads them.
type AccessToken struct {
	ID uint `json:"ID"`
}

// CreateAccessToken signs a 24h access token for the given user.
func CreateAccessToken(id uint) (string, error) {
	signer := jwt.NewSigner(jwt.HS256, os.Getenv("ACCESS_TOKEN_SECRET"), 24*time.Hour)

	token, err := signer.Sign(AccessToken{ID: id})
	if err != nil {
		return "", err
	}

	return string(token), nil
}
