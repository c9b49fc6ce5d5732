package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"todo-service/internal/entity"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "api").Logger()

// HTTPErrorHandler turns service errors into JSON responses. Unknown errors are
// logged and answered with a generic 500 body.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).
			Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Msg("Unhandled error")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		logger.Error().Err(err).Msg("Error writing error response")
	}
}

func errorResponse(err error) (int, map[string]string) {
	var ve *entity.ValidationError
	var he *echo.HTTPError

	switch {
	case errors.As(err, &ve):
		body := map[string]string{"error": ve.Message}
		if ve.Field != "" {
			body["field"] = ve.Field
		}
		return http.StatusBadRequest, body
	case errors.Is(err, entity.ErrDuplicateUser), errors.Is(err, entity.ErrInvalidCredentials):
		return http.StatusBadRequest, errorBody(err)
	case errors.Is(err, entity.ErrUnauthenticated):
		return http.StatusUnauthorized, errorBody(entity.ErrUnauthenticated)
	case errors.Is(err, entity.ErrNotFound), errors.Is(err, entity.ErrUserNotFound):
		return http.StatusNotFound, errorBody(err)
	case errors.As(err, &he):
		if he.Code >= http.StatusInternalServerError {
			return he.Code, map[string]string{"error": http.StatusText(he.Code)}
		}
		return he.Code, map[string]string{"error": fmt.Sprint(he.Message)}
	default:
		return http.StatusInternalServerError, map[string]string{"error": "internal server error"}
	}
}

func errorBody(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}
