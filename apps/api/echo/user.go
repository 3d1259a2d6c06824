package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/rotaract/reportdesk/core"
	"github.com/rotaract/reportdesk/core/user"
)

type userApi struct {
	svc    *user.Service
	tokens *Tokens
}

func registerUserAPI(g *echo.Group, tokens *Tokens, svc *user.Service, authed ...echo.MiddlewareFunc) {
	api := userApi{svc: svc, tokens: tokens}

	ug := g.Group("/users")

	// un-authed endpoints
	ug.POST("/register", api.register)
	ug.POST("/login", api.login)
	ug.POST("/refresh-token", api.refreshToken)

	// authed endpoints
	ag := ug.Group("", authed...)
	ag.GET("/check-auth", api.checkAuth)
	ag.POST("/logout", api.logout)
}

type (
	LoginRequest struct {
		Username string `json:"username" form:"username" validate:"required"`
		Password string `json:"password" form:"password" validate:"required"`
	}

	RefreshRequest struct {
		RefreshToken string `json:"refreshToken" form:"refreshToken"`
	}

	LoginResponse struct {
		User user.User `json:"user"`
		TokenPair
	}
)

func (lr *LoginRequest) Validate() error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	var flds []core.FieldError
	if lr.Username == "" {
		flds = append(flds, core.FieldError{Field: "username", Error: "this field is required"})
	}
	if lr.Password == "" {
		flds = append(flds, core.FieldError{Field: "password", Error: "this field is required"})
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// Handlers

func (api *userApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	return respond(ctx, http.StatusCreated, usr, "User registered successfully")
}

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := authenticate(ctx.Request().Context(), data.Username, data.Password, api.svc)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	pair, err := api.issue(ctx, usr)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, LoginResponse{User: usr, TokenPair: pair}, "User logged in successfully")
}

// refreshToken rotates the token pair. The refresh token comes from its cookie or the request body.
func (api *userApi) refreshToken(ctx echo.Context) error {
	var data RefreshRequest
	if c, err := ctx.Cookie(refreshTokenCookie); err == nil {
		data.RefreshToken = c.Value
	}
	if data.RefreshToken == "" {
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to RefreshRequest")
		}
	}
	if data.RefreshToken == "" {
		return errInvalidRefreshToken
	}

	claims, err := api.tokens.parseRefreshToken(data.RefreshToken)
	if err != nil {
		return err
	}
	usr, err := api.svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if core.IsNotFound(err) {
			return errInvalidRefreshToken
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if !usr.IsActive {
		return errAccountDeactivated
	}
	if err := api.svc.VerifyRefreshToken(usr, data.RefreshToken); err != nil {
		return errRefreshRevoked
	}

	pair, err := api.issue(ctx, usr, claims.OrigIssuedAt)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, pair, "Access token refreshed")
}

func (api *userApi) checkAuth(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, usr, "User is authenticated")
}

func (api *userApi) logout(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if _, err := api.svc.ClearRefreshToken(ctx.Request().Context(), usr); err != nil {
		return errors.Wrap(err, "clearing refresh token")
	}
	api.tokens.clearCookies(ctx)
	return respond(ctx, http.StatusOK, nil, "User logged out")
}

// issue generates a token pair, stores the refresh token fingerprint and sets the auth cookies.
func (api *userApi) issue(ctx echo.Context, usr user.User, origIat ...int64) (TokenPair, error) {
	pair, err := api.tokens.Issue(usr, origIat...)
	if err != nil {
		return TokenPair{}, errors.Wrap(err, "generating tokens")
	}
	if _, err := api.svc.SetRefreshToken(ctx.Request().Context(), usr, pair.RefreshToken); err != nil {
		return TokenPair{}, errors.Wrap(err, "storing refresh token")
	}
	api.tokens.setCookies(ctx, pair)
	return pair, nil
}
