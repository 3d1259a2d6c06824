package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/rotaract/reportdesk/core"
	"github.com/rotaract/reportdesk/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errRefreshRevoked       = echo.NewHTTPError(http.StatusForbidden, "refresh token revoked")
	errInvalidRefreshToken  = echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, tokens *Tokens, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var (
			code    int
			message string
			fields  map[string]string
		)

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message, _ = origErr.Message.(string)
				break
			}
			// bind errors wrap our own
			if vErr, ok := origErr.Internal.(*core.ValidationError); ok {
				code = http.StatusBadRequest
				message, fields = validationMessage(vErr)
				break
			}
			if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
				origErr = herr
			}
			code = origErr.Code
			if m, ok := origErr.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(code)
			}
		case *core.ValidationError:
			code = http.StatusBadRequest
			message, fields = validationMessage(origErr)
		case *core.NotFoundError:
			code = http.StatusNotFound
			message = origErr.Error()
		default:
			if errors.Cause(err) == core.ErrPermissionDenied {
				code = http.StatusForbidden
				message = core.ErrPermissionDenied.Error()
				break
			}
			// any other error is a server error
			code = http.StatusInternalServerError
			message = http.StatusText(http.StatusInternalServerError)

			usr, cErr := getContextUser(ctx)
			if cErr != nil {
				if claims, clErr := getContextClaims(ctx); clErr == nil {
					usr = user.User{ID: claims.Subject, Username: claims.Username, Email: claims.Email}
				}
			}
			logger.Error(message, errors.Wrap(err, message), usr, map[string]interface{}{
				"requestId": ctx.Response().Header().Get(echo.HeaderXRequestID),
				"path":      ctx.Request().URL.Path,
			})

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}

		// Send response
		if !ctx.Response().Committed {
			if code == http.StatusUnauthorized {
				tokens.clearCookies(ctx)
			}
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, newErrorResponse(code, message, fields))
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func validationMessage(vErr *core.ValidationError) (string, map[string]string) {
	if len(vErr.Fields) == 0 {
		return vErr.Error(), nil
	}
	fields := make(map[string]string, len(vErr.Fields))
	for _, fErr := range vErr.Fields {
		fields[fErr.Field] = fErr.Error
	}
	return vErr.Error(), fields
}
