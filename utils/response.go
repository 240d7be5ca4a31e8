package utils

import (
	"github.com/kataras/iris/v12"
)

// JSONData writes the standard response envelope.
func JSONData(ctx iris.Context, message string, data interface{}) {
	ctx.JSON(iris.Map{"message": message, "data": data})
}

// JSONMessage writes a message-only response.
func JSONMessage(ctx iris.Context, message string) {
	ctx.JSON(iris.Map{"message": message})
}
