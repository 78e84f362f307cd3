package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/Chrouos/tomato-website-sub000/core"
	"github.com/Chrouos/tomato-website-sub000/core/user"
)

// appJWTConfig is the default JWT auth middleware config.
var appJWTConfig = middleware.JWTConfig{
	SigningKey:    []byte(core.Conf.SecretKey),
	SigningMethod: middleware.AlgorithmHS256,
	ContextKey:    "userToken",
	Claims:        new(Claims),
}

// Claims represents the authorization claims transmitted via a JWT.
// Token issuance lives with the main site; this API only needs the
// subject id and username out of a presented token.
type Claims struct {
	jwt.StandardClaims
	Username string `json:"username,omitempty"`
}

func GetUserClaims(usr user.User) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    core.Conf.AppName,
			Subject:   usr.ID,
			ExpiresAt: now.Add(core.Conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username: usr.Username,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(appJWTConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(appJWTConfig.SigningKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// tokenFromQuery copies a ?token= query param into the Authorization
// header. EventSource clients cannot set request headers, so the
// streaming endpoint accepts the token this way too.
func tokenFromQuery(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if ctx.Request().Header.Get(echo.HeaderAuthorization) == "" {
			if token := ctx.QueryParam("token"); token != "" {
				ctx.Request().Header.Set(echo.HeaderAuthorization, "Bearer "+token)
			}
		}
		return next(ctx)
	}
}
