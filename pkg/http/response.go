package http

import (
	"errors"
	"net/http"

	applogger "PriceCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

// DataResponse writes API response with status and data.
func DataResponse(c echo.Context, statusCode int, data interface{}) error {
	return c.JSON(statusCode, APIResponse{
		Status:    statusCode,
		Message:   http.StatusText(statusCode),
		Data:      data,
		RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
	})
}

// SuccessResponse writes success response.
func SuccessResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusOK, data)
}

// BadRequestResponse writes bad request error.
func BadRequestResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusBadRequest, data)
}

// InternalServerErrorResponse writes internal server error.
func InternalServerErrorResponse(c echo.Context) error {
	return DataResponse(c, http.StatusInternalServerError, "Something went wrong")
}

// AppErrorResponse writes application error response.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return DataResponse(c, appErr.Status, []*AppError{appErr})
	}
	return InternalServerErrorResponse(c)
}

// ErrorHandler renders errors that escape handlers, including echo's own
// (unknown routes, body limit) in the APIResponse envelope.
func ErrorHandler(l *applogger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		if werr := writeError(c, err); werr != nil && l != nil {
			l.Error("write error response", applogger.Error(werr))
		}
	}
}

func writeError(c echo.Context, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return AppErrorResponse(c, appErr)
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		switch he.Code {
		case http.StatusRequestEntityTooLarge:
			return AppErrorResponse(c, PayloadTooLargeError("upload exceeds the size limit"))
		case http.StatusNotFound:
			return AppErrorResponse(c, NotFoundError("route not found"))
		}
		return DataResponse(c, he.Code, he.Message)
	}

	return InternalServerErrorResponse(c)
}
