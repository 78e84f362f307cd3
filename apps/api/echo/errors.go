package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/Chrouos/tomato-website-sub000/core"
	"github.com/Chrouos/tomato-website-sub000/core/credit"
	"github.com/Chrouos/tomato-website-sub000/core/encourage"
	"github.com/Chrouos/tomato-website-sub000/core/user"
)

var (
	errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpNotFound = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch cause := errors.Cause(err); cause {
		case credit.ErrInsufficientCredit, encourage.ErrNoRecipient:
			code = http.StatusBadRequest
			message = cause.Error()
		case encourage.ErrAlreadyReplied:
			code = http.StatusConflict
			message = cause.Error()
		case encourage.ErrNotFound, user.ErrNotFound:
			code = http.StatusNotFound
			message = errHttpNotFound.Message
		default:
			code, message = handleGenericError(err, ctx, logger, signalShutdown)
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func handleGenericError(err error, ctx echo.Context, logger core.Logger, signalShutdown func()) (int, interface{}) {
	switch origErr := errors.Cause(err).(type) {
	case *echo.HTTPError:
		if origErr == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, origErr.Message
		}
		if origErr.Internal != nil {
			if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
				origErr = herr
			}
		}
		return origErr.Code, origErr.Message
	case validator.ValidationErrors:
		fldErrs := make(map[string]string, len(origErr))
		for _, vErr := range origErr {
			fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
		}
		return http.StatusBadRequest, fldErrs
	case *core.ValidationError:
		if origErr.Fields != nil {
			fldErrs := make(map[string]string, len(origErr.Fields))
			for _, fErr := range origErr.Fields {
				fldErrs[fErr.Field] = fErr.Error
			}
			return http.StatusBadRequest, fldErrs
		}
		return http.StatusBadRequest, origErr.Error()
	default: // any other error is a server error
		msg := http.StatusText(http.StatusInternalServerError)

		var usr user.User
		if claims, cErr := getContextClaims(ctx); cErr == nil {
			usr.ID = claims.Subject
			usr.Username = claims.Username
		}
		logger.Error(msg, errors.Wrap(err, msg), usr)

		// shutting down...
		if core.IsShutdown(err) {
			signalShutdown()
		}
		return http.StatusInternalServerError, msg
	}
}
