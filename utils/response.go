package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusOK, 0, "success", data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

// codedError is implemented by domain errors that carry their own status and code.
type codedError interface {
	error
	HTTPStatus() int
	ErrorCode() int
}

// Fail writes err as an error response. Domain errors keep their status, code
// and message; anything else is logged and reported as an internal error.
func Fail(ctx *gin.Context, err error) {
	var ce codedError
	if errors.As(err, &ce) {
		status := ce.HTTPStatus()
		if status >= http.StatusInternalServerError && Logger != nil {
			Logger.Error("request failed", zap.String("path", ctx.FullPath()), zap.Error(err))
		}
		Error(ctx, status, ce.ErrorCode(), ce.Error())
		return
	}
	if Logger != nil {
		Logger.Error("request failed", zap.String("path", ctx.FullPath()), zap.Error(err))
	}
	Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
}
