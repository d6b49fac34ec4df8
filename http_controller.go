package auth

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RegisterAuthRoutes mounts the credential and token endpoints on the router.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	app.
		Post(controller.Routes.Login, controller.Login).
		SetName("auth.login.post")

	app.
		Post(controller.Routes.Register, controller.Register).
		SetName("auth.register.post")

	app.
		Post(controller.Routes.Refresh, controller.Refresh).
		SetName("auth.refresh.post")
}

type AuthControllerRoutes struct {
	Login    string
	Register string
	Refresh  string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Routes       *AuthControllerRoutes
	Auther       Authenticator
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

// WithControllerLogger sets the controller logger.
func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithControllerAuther sets the authenticator the endpoints delegate to.
func WithControllerAuther(auther Authenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

// WithControllerRoutes overrides the default endpoint paths.
func WithControllerRoutes(routes *AuthControllerRoutes) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if routes != nil {
			c.Routes = routes
		}
		return c
	}
}

// WithControllerDebug toggles payload dumps on the controller.
func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Login:    "/auth/login",
			Register: "/auth/register",
			Refresh:  "/auth/refresh",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = c.defaultErrHandler
	}

	return c
}

// LoginRequest is the credential payload for the login endpoint.
type LoginRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// GetIdentifier returns the identifier used to look up the account.
func (r LoginRequest) GetIdentifier() string {
	return r.Username
}

// GetPassword returns the plaintext password.
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) Login(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, "Error parsing body")
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(ctx, err.Error())
	}

	if a.Debug {
		a.Logger.Debug("login payload: %s", print.MaybePrettyJSON(payload))
	}

	result, err := a.Auther.Login(ctx.Context(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		a.Logger.Info("login rejected", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, result)
}

// RegisterRequest is the signup payload for the register endpoint.
type RegisterRequest struct {
	Username    string `form:"username" json:"username"`
	Email       string `form:"email" json:"email"`
	Password    string `form:"password" json:"password"`
	DisplayName string `form:"display_name" json:"display_name"`
}

// Validate will run validation rules
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(2, 100)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&r.DisplayName, validation.Length(0, 200)),
	)
}

func (a *AuthController) Register(ctx router.Context) error {
	payload := new(RegisterRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, "Error parsing body")
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(ctx, err.Error())
	}

	msg := RegisterUserMessage{
		Username:    payload.Username,
		Email:       payload.Email,
		Password:    payload.Password,
		DisplayName: payload.DisplayName,
	}

	result, err := a.Auther.Register(ctx.Context(), msg)
	if err != nil {
		a.Logger.Info("registration rejected", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, result)
}

// RefreshRequest carries the refresh token for the refresh endpoint.
type RefreshRequest struct {
	RefreshToken string `form:"refresh_token" json:"refresh_token"`
}

// Validate will run validation rules
func (r RefreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

func (a *AuthController) Refresh(ctx router.Context) error {
	payload := new(RefreshRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, "Error parsing body")
	}

	if err := payload.Validate(); err != nil {
		return a.badRequest(ctx, err.Error())
	}

	result, err := a.Auther.Refresh(ctx.Context(), payload.RefreshToken)
	if err != nil {
		a.Logger.Info("token refresh rejected", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, result)
}

func (a *AuthController) badRequest(ctx router.Context, message string) error {
	body := NewErrorResponse(http.StatusBadRequest, message)
	return ctx.JSON(http.StatusBadRequest, body)
}

// defaultErrHandler maps domain errors onto the HTTP surface. Authentication
// failures collapse into a generic 401 so callers cannot probe which part of
// the credentials was wrong.
func (a *AuthController) defaultErrHandler(ctx router.Context, err error) error {
	status, message := HTTPStatusForError(err)

	if a.Debug {
		var richErr *errors.Error
		if errors.As(err, &richErr) {
			a.Logger.Debug("auth error detail: %s", print.MaybePrettyJSON(richErr))
		}
	}

	body := NewErrorResponse(status, message)
	return ctx.JSON(status, body)
}

// HTTPStatusForError resolves a domain error into a response status and a
// caller-safe message.
func HTTPStatusForError(err error) (int, string) {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return http.StatusInternalServerError, "An unexpected server error occurred"
	}

	switch richErr.Category {
	case errors.CategoryAuth:
		return http.StatusUnauthorized, "The credentials provided are invalid"
	case errors.CategoryAuthz:
		return http.StatusForbidden, richErr.Message
	case errors.CategoryRateLimit:
		return http.StatusTooManyRequests, richErr.Message
	case errors.CategoryNotFound:
		// unknown accounts during token exchange read as an auth failure
		return http.StatusUnauthorized, "The credentials provided are invalid"
	case errors.CategoryConflict, errors.CategoryValidation, errors.CategoryBadInput:
		return http.StatusBadRequest, richErr.Message
	default:
		return http.StatusInternalServerError, "An unexpected server error occurred"
	}
}
