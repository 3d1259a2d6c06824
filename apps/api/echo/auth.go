package echoapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/rotaract/reportdesk/core"
	"github.com/rotaract/reportdesk/core/user"
)

const (
	contextTokenKey = "userToken"
	contextUserKey  = "user"

	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"

	tokenAudience = "rotaract"
)

// Claims represents the authorization claims transmitted via an access JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Username     string   `json:"username,omitempty"`
	Email        string   `json:"email,omitempty"`
	IsAdmin      bool     `json:"is_admin,omitempty"`
	Roles        []string `json:"roles,omitempty"`
}

// RefreshClaims are carried by refresh JWTs. They expire OrigIssuedAt + the refresh delta, whatever the rotations.
type RefreshClaims struct {
	jwt.StandardClaims
	OrigIssuedAt int64 `json:"oriat"`
}

// TokenPair is returned on login and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Tokens issues and parses the access and refresh JWTs.
type Tokens struct {
	issuer        string
	accessKey     []byte
	refreshKey    []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	secureCookies bool
	now           func() time.Time
}

func NewTokens(conf *core.Config) *Tokens {
	return &Tokens{
		issuer:        conf.AppName,
		accessKey:     []byte(conf.SecretKey),
		refreshKey:    []byte(conf.Auth.RefreshSecretKey),
		accessTTL:     conf.Auth.JWTExpirationDelta,
		refreshTTL:    conf.Auth.JWTRefreshExpirationDelta,
		secureCookies: conf.Auth.SecureCookies,
		now:           time.Now,
	}
}

func (tk *Tokens) jwtConfig() middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    tk.accessKey,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

func (tk *Tokens) GetUserClaims(usr user.User, origIat ...int64) *Claims {
	now := tk.now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    tk.issuer,
			Subject:   usr.ID,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(tk.accessTTL).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Username:     usr.Username,
		Email:        usr.Email,
		IsAdmin:      usr.IsAdmin(),
		Roles:        usr.Roles,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func (tk *Tokens) GenerateToken(claims *Claims) (string, error) {
	return sign(claims, tk.accessKey)
}

func (tk *Tokens) generateRefreshToken(usr user.User, origIat int64) (string, error) {
	now := tk.now()
	claims := &RefreshClaims{
		StandardClaims: jwt.StandardClaims{
			Id:        usr.ID + "." + now.Format("20060102150405.000000000"),
			Issuer:    tk.issuer,
			Subject:   usr.ID,
			Audience:  tokenAudience,
			ExpiresAt: time.Unix(origIat, 0).Add(tk.refreshTTL).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: origIat,
	}
	return sign(claims, tk.refreshKey)
}

func sign(claims jwt.Claims, key []byte) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	ss, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// Issue returns a fresh token pair for usr. origIat carries over the session start on refresh.
func (tk *Tokens) Issue(usr user.User, origIat ...int64) (TokenPair, error) {
	claims := tk.GetUserClaims(usr, origIat...)
	access, err := tk.GenerateToken(claims)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := tk.generateRefreshToken(usr, claims.OrigIssuedAt)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (tk *Tokens) parseRefreshToken(token string) (*RefreshClaims, error) {
	claims := new(RefreshClaims)
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != middleware.AlgorithmHS256 {
			return nil, errors.Errorf("unexpected jwt signing method=%v", t.Header["alg"])
		}
		return tk.refreshKey, nil
	})
	if err != nil {
		if verr, ok := err.(*jwt.ValidationError); ok && verr.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, errRefreshExpired
		}
		return nil, errInvalidRefreshToken
	}
	return claims, nil
}

func (tk *Tokens) setCookies(ctx echo.Context, pair TokenPair) {
	ctx.SetCookie(tk.cookie(accessTokenCookie, pair.AccessToken, tk.accessTTL))
	ctx.SetCookie(tk.cookie(refreshTokenCookie, pair.RefreshToken, tk.refreshTTL))
}

func (tk *Tokens) clearCookies(ctx echo.Context) {
	ctx.SetCookie(tk.cookie(accessTokenCookie, "", -1))
	ctx.SetCookie(tk.cookie(refreshTokenCookie, "", -1))
}

func (tk *Tokens) cookie(name, value string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   tk.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl < 0 {
		c.MaxAge = -1
	} else {
		c.Expires = tk.now().Add(ttl)
	}
	return c
}

// authenticate checks the credentials of a login attempt.
func authenticate(ctx context.Context, uname, pwd string, svc *user.Service) (user.User, error) {
	usr, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		if core.IsNotFound(err) {
			return user.User{}, errAuthenticationFailed
		}
		return user.User{}, errors.Wrap(err, "finding user by username or email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return user.User{}, errAuthenticationFailed
	}
	if !usr.IsActive {
		return user.User{}, errAccountDeactivated
	}
	usr, err = svc.SetLastLogin(ctx, usr)
	return usr, errors.Wrap(err, "setting lastLogin")
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUnauthorized
}

// contextUserMiddleware loads the user behind the JWT claims. Unknown users are unauthenticated.
func contextUserMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
			if err != nil {
				if core.IsNotFound(err) {
					return errUnauthorized
				}
				return errors.Wrap(err, "finding user by ID")
			}
			if !usr.IsActive {
				return errAccountDeactivated
			}
			ctx.Set(contextUserKey, usr)
			return next(ctx)
		}
	}
}

// cookieTokenMiddleware lets browsers authenticate with the accessToken cookie.
// An Authorization header always wins.
func cookieTokenMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			req := ctx.Request()
			if strings.TrimSpace(req.Header.Get(echo.HeaderAuthorization)) == "" {
				if c, err := ctx.Cookie(accessTokenCookie); err == nil && c.Value != "" {
					req.Header.Set(echo.HeaderAuthorization, middleware.DefaultJWTConfig.AuthScheme+" "+c.Value)
				}
			}
			return next(ctx)
		}
	}
}

// adminMiddleware requires the context user to be an admin.
func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return err
			}
			if !usr.IsAdmin() {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}
