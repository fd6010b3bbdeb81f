package echoapi

import (
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/academia-labs/academia/core"
	"github.com/academia-labs/academia/core/user"
)

const (
	tokenContextKey = "userToken"
	tokenLifetime   = 24 * time.Hour
)

// Claims represents the authorization claims transmitted via a JWT.
// Tokens are issued by the auth service sharing SecretKey; this API only verifies them.
type Claims struct {
	jwt.StandardClaims
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
}

func (c Claims) Valid() error {
	if err := c.StandardClaims.Valid(); err != nil {
		return err
	}
	if id, err := strconv.Atoi(c.Subject); err != nil || id <= 0 {
		return errors.New("invalid subject")
	}
	if !core.IsRole(c.Role) {
		return errors.New("invalid role")
	}
	return nil
}

// Session builds the Session of the claims' user.
func (c Claims) Session() core.Session {
	id, _ := strconv.Atoi(c.Subject)
	return core.Session{UserID: id, Email: c.Email, Name: c.Name, Role: c.Role}
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
	}
}

func GetUserClaims(conf *core.Config, usr user.User) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   strconv.Itoa(usr.ID),
			Audience:  conf.AppName,
			ExpiresAt: now.Add(tokenLifetime).Unix(),
			IssuedAt:  now.Unix(),
		},
		Email: usr.Email,
		Name:  usr.Name,
		Role:  usr.Role,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextSession returns the Session of the verified token of the request.
func getContextSession(ctx echo.Context) (core.Session, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return core.Session{}, err
	}
	return claims.Session(), nil
}
