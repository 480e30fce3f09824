package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	applogger "Copilot/pkg/logger"

	"github.com/labstack/echo/v4"
)

// UncaughtMessage prefixes every uncaught-error response.
const UncaughtMessage = "An error occurred (uncaught)"

// ExceptionResponse is the body written for uncaught errors.
type ExceptionResponse struct {
	Exceptions string `json:"exceptions"`
}

// ExceptionHandler turns errors nobody else handled into a stable JSON 500.
// The error text is exposed to clients only when debug is set.
type ExceptionHandler struct {
	l     *applogger.Logger
	debug bool
}

// NewExceptionHandler creates an ExceptionHandler.
func NewExceptionHandler(l *applogger.Logger, debug bool) *ExceptionHandler {
	if l == nil {
		l = applogger.Nop()
	}
	return &ExceptionHandler{l: l, debug: debug}
}

// HandleException logs err and writes the 500 envelope.
func (h *ExceptionHandler) HandleException(c echo.Context, err error) error {
	msg := UncaughtMessage
	if h.debug && err != nil {
		msg += " " + err.Error()
	}
	h.l.Error(msg,
		applogger.Error(err),
		applogger.String("method", c.Request().Method),
		applogger.String("path", c.Request().URL.Path),
	)
	if c.Response().Committed {
		return nil
	}
	return c.JSON(http.StatusInternalServerError, ExceptionResponse{Exceptions: msg})
}

// JSONError recovers panics and converts any error that is not an
// *echo.HTTPError into the uncaught-error envelope. Routing errors such as
// 404 and 405 keep Echo's default rendering.
func JSONError(h *ExceptionHandler) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					perr, ok := r.(error)
					if !ok {
						perr = fmt.Errorf("%v", r)
					}
					h.l.Debug("panic recovered", applogger.String("stack", string(debug.Stack())))
					err = h.HandleException(c, perr)
				}
			}()

			err = next(c)
			if err == nil {
				return nil
			}
			var he *echo.HTTPError
			if errors.As(err, &he) {
				return err
			}
			return h.HandleException(c, err)
		}
	}
}
