package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// JSONResponse writes v with the given status.
func JSONResponse(c echo.Context, statusCode int, v interface{}) error {
	return c.JSON(statusCode, v)
}

// Detail writes a {"detail": message} body.
func Detail(c echo.Context, statusCode int, message string) error {
	return c.JSON(statusCode, DetailResponse{Detail: message})
}

// SuccessResponse writes a 200 response.
func SuccessResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

// CreatedResponse writes a 201 response.
func CreatedResponse(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, data)
}

// FieldErrorsResponse writes a 400 with one message list per field.
func FieldErrorsResponse(c echo.Context, errs FieldErrors) error {
	return c.JSON(http.StatusBadRequest, errs)
}

// AppErrorResponse writes application error response.
// Errors that are not AppError or FieldErrors are returned unchanged so the
// exception middleware can render them.
func AppErrorResponse(c echo.Context, err error) error {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return FieldErrorsResponse(c, fe)
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Field != "" {
			return FieldErrorsResponse(c, FieldErrors{appErr.Field: {appErr.Message}})
		}
		return c.JSON(appErr.Status, DetailResponse{Detail: appErr.Message, Code: appErr.Code})
	}
	return err
}
