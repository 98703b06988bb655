package shop

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"

	"github.com/openmerce/go-shop/social"
)

// AccountControllerRoutes are the mounted paths
type AccountControllerRoutes struct {
	Signup      string
	Signin      string
	AdminSignin string
	Google      string
	Signout     string
	Me          string
	Password    string
	Account     string
}

// AccountController owns the account lifecycle endpoints
type AccountController struct {
	Debug     bool
	Logger    Logger
	Repo      RepositoryManager
	Auther    Authenticator
	Tokens    TokenService
	Cookies   *SessionCookies
	Providers map[string]social.Provider
	Routes    *AccountControllerRoutes
	Activity  ActivitySink

	contextKey string

	register  *RegisterUserHandler
	password  *ChangePasswordHandler
	federated *FederatedSigninHandler
}

type AccountControllerOption func(*AccountController) *AccountController

func WithControllerLogger(logger Logger) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Logger = logger
		return c
	}
}

func WithRepositoryManager(repo RepositoryManager) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Repo = repo
		return c
	}
}

func WithAuther(auther Authenticator) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Auther = auther
		return c
	}
}

func WithTokenService(tokens TokenService) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Tokens = tokens
		return c
	}
}

func WithSessionCookies(cookies *SessionCookies) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Cookies = cookies
		return c
	}
}

func WithSocialProvider(provider social.Provider) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		if c.Providers == nil {
			c.Providers = map[string]social.Provider{}
		}
		c.Providers[provider.Name()] = provider
		return c
	}
}

func WithControllerActivitySink(sink ActivitySink) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Activity = sink
		return c
	}
}

func WithDebug(debug bool) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Debug = debug
		return c
	}
}

func NewAccountController(opts ...AccountControllerOption) *AccountController {
	c := &AccountController{
		Logger: defLogger{},
		Routes: &AccountControllerRoutes{
			Signup:      "/auth/signup",
			Signin:      "/auth/signin",
			AdminSignin: "/auth/admin/signin",
			Google:      "/auth/google",
			Signout:     "/auth/signout",
			Me:          "/auth/me",
			Password:    "/auth/password",
			Account:     "/users/:id",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in account controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in account controller...")
	}

	if c.Tokens == nil {
		panic("Missing TokenService in account controller...")
	}

	if c.Cookies == nil {
		panic("Missing SessionCookies in account controller...")
	}

	c.Activity = normalizeActivitySink(c.Activity)

	c.register = NewRegisterUserHandler(c.Repo)
	c.password = NewChangePasswordHandler(c.Repo)
	c.federated = NewFederatedSigninHandler(c.Repo)

	return c
}

// RegisterRoutes mounts the account endpoints. The protected handler
// guards everything that needs an authenticated session; the account
// delete additionally requires owner-or-admin on the path id.
func (a *AccountController) RegisterRoutes(app fiber.Router, contextKey string, protected fiber.Handler) {
	a.contextKey = contextKey

	app.Post(a.Routes.Signup, a.Signup)
	app.Post(a.Routes.Signin, a.Signin)
	app.Post(a.Routes.AdminSignin, a.AdminSignin)
	app.Post(a.Routes.Google, a.GoogleSignin)
	app.Post(a.Routes.Signout, a.Signout)

	app.Get(a.Routes.Me, protected, a.Me)
	app.Post(a.Routes.Password, protected, a.ChangePassword)
	app.Delete(a.Routes.Account, protected, RequireOwnerOrAdmin(contextKey, "id"), a.DeleteAccount)
}

// SignupRequest payload
type SignupRequest struct {
	Username        string `json:"username"`
	Phone           string `json:"phone"`
	FullName        string `json:"fullName"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	RememberMe      bool   `json:"rememberMe"`
}

// Validate will run validation rules
func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 30), is.Alphanumeric),
		validation.Field(&r.Phone, validation.Required, validation.Length(10, 15), is.Digit, validation.By(validatePlausiblePhone)),
		validation.Field(&r.FullName, validation.Length(0, 200)),
		validation.Field(&r.Password, validation.Required),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(validateStringEquals(r.Password)),
		),
	)
}

func (a *AccountController) Signup(c *fiber.Ctx) error {
	payload := new(SignupRequest)

	if err := c.BodyParser(payload); err != nil {
		return WriteError(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid request body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return WriteError(c, goerrors.Wrap(err, goerrors.CategoryValidation, "signup validation failed").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := ValidatePasswordStrength(payload.Password); err != nil {
		return WriteError(c, err)
	}

	if a.Debug {
		a.Logger.Debug("signup payload: %s", print.MaybePrettyJSON(payload))
	}

	ctx := c.UserContext()

	if taken, err := a.Repo.Users().UsernameTaken(ctx, payload.Username); err != nil {
		return WriteError(c, err)
	} else if taken {
		return WriteError(c, ErrUsernameTaken)
	}

	if taken, err := a.Repo.Users().PhoneTaken(ctx, payload.Phone); err != nil {
		return WriteError(c, err)
	} else if taken {
		return WriteError(c, ErrPhoneTaken)
	}

	user, err := a.register.Execute(ctx, RegisterUserMessage{
		Username: payload.Username,
		Phone:    payload.Phone,
		FullName: payload.FullName,
		Password: payload.Password,
	})
	if err != nil {
		return WriteError(c, err)
	}

	token, err := a.Tokens.Issue(NewIdentityFromUser(user), payload.RememberMe)
	if err != nil {
		return WriteError(c, err)
	}

	a.Cookies.Set(c, token)
	a.recordActivity(c, ActivityEventSignup, user.ID.String(), nil)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"token":   token,
		"user":    user.Sanitized(),
	})
}

// SigninRequest payload. The identifier field holds a username or a
// phone number; the server classifies it by shape.
type SigninRequest struct {
	UsernameOrPhone string `json:"usernameOrPhone"`
	Password        string `json:"password"`
	RememberMe      bool   `json:"rememberMe"`
}

// Validate will run validation rules
func (r SigninRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UsernameOrPhone, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AccountController) Signin(c *fiber.Ctx) error {
	return a.signin(c, false)
}

// AdminSignin is the admin counterpart: it rejects non-admin accounts
// and persists the remember-me preference before issuing the session.
func (a *AccountController) AdminSignin(c *fiber.Ctx) error {
	return a.signin(c, true)
}

func (a *AccountController) signin(c *fiber.Ctx, admin bool) error {
	payload := new(SigninRequest)

	if err := c.BodyParser(payload); err != nil {
		return WriteError(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid request body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return WriteError(c, goerrors.Wrap(err, goerrors.CategoryValidation, "signin validation failed").
			WithCode(goerrors.CodeBadRequest))
	}

	if a.Debug {
		a.Logger.Debug("signin identifier: %s", payload.UsernameOrPhone)
	}

	identifier := ClassifyIdentifier(payload.UsernameOrPhone)
	ctx := c.UserContext()

	var token string
	var identity Identity
	var err error

	if admin {
		token, identity, err = a.Auther.LoginAdmin(ctx, identifier, payload.Password, payload.RememberMe)
	} else {
		token, identity, err = a.Auther.Login(ctx, identifier, payload.Password, payload.RememberMe)
	}

	if err != nil {
		return WriteError(c, err)
	}

	a.Cookies.Set(c, token)

	return c.JSON(fiber.Map{
		"success": true,
		"token":   token,
		"user": fiber.Map{
			"id":       identity.ID(),
			"username": identity.Username(),
			"role":     identity.Role(),
		},
	})
}

// GoogleSigninRequest carries the access token the client obtained from
// Google.
type GoogleSigninRequest struct {
	AccessToken string `json:"accessToken"`
}

// Validate will run validation rules
func (r GoogleSigninRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.AccessToken, validation.Required),
	)
}

func (a *AccountController) GoogleSignin(c *fiber.Ctx) error {
	payload := new(GoogleSigninRequest)

	if err := c.BodyParser(payload); err != nil {
		return WriteError(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid request body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return WriteError(c, goerrors.Wrap(err, goerrors.CategoryValidation, "google signin validation failed").
			WithCode(goerrors.CodeBadRequest))
	}

	provider, ok := a.Providers["google"]
	if !ok {
		return WriteError(c, goerrors.New("google sign-in is not configured", goerrors.CategoryOperation).
			WithCode(goerrors.CodeInternal))
	}

	ctx := c.UserContext()

	profile, err := provider.UserInfo(ctx, payload.AccessToken)
	if err != nil {
		a.Logger.Warn("google userinfo rejected: %v", err)
		return WriteError(c, goerrors.Wrap(err, goerrors.CategoryAuth, "could not verify google access token").
			WithCode(goerrors.CodeUnauthorized))
	}

	user, created, err := a.federated.Execute(ctx, FederatedSigninMessage{Profile: profile})
	if err != nil {
		return WriteError(c, err)
	}

	if !user.Active {
		return WriteError(c, ErrAccountInactive)
	}

	token, err := a.Tokens.Issue(NewIdentityFromUser(user), false)
	if err != nil {
		return WriteError(c, err)
	}

	a.Cookies.Set(c, token)
	a.recordActivity(c, ActivityEventFederatedLogin, user.ID.String(), map[string]any{
		"provider": provider.Name(),
		"created":  created,
	})

	if created {
		a.Logger.Info("provisioned account %s via google", user.ID)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"token":   token,
		"created": created,
		"user":    user.Sanitized(),
	})
}

// ChangePasswordRequest payload
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Validate will run validation rules
func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required),
	)
}

func (a *AccountController) ChangePassword(c *fiber.Ctx) error {
	claims, ok := ClaimsFromFiber(c, a.contextKey)
	if !ok {
		return WriteError(c, ErrUnableToFindSession)
	}

	payload := new(ChangePasswordRequest)

	if err := c.BodyParser(payload); err != nil {
		return WriteError(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid request body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return WriteError(c, goerrors.Wrap(err, goerrors.CategoryValidation, "password change validation failed").
			WithCode(goerrors.CodeBadRequest))
	}

	userID, err := uuid.Parse(claims.UserID())
	if err != nil {
		return WriteError(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "malformed account id in session").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := a.password.Execute(c.UserContext(), ChangePasswordMessage{
		UserID:          userID,
		CurrentPassword: payload.CurrentPassword,
		NewPassword:     payload.NewPassword,
	}); err != nil {
		return WriteError(c, err)
	}

	a.recordActivity(c, ActivityEventPasswordChanged, userID.String(), nil)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "password updated",
	})
}

// DeleteAccount soft deletes the account in the path. RequireOwnerOrAdmin
// has already authorized the caller. A user deleting their own account
// also loses the session cookie.
func (a *AccountController) DeleteAccount(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return WriteError(c, goerrors.Wrap(err, goerrors.CategoryBadInput, "malformed account id").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := a.Repo.Users().SoftDelete(c.UserContext(), id); err != nil {
		if goerrors.IsNotFound(err) {
			return WriteError(c, ErrIdentityNotFound)
		}
		return WriteError(c, err)
	}

	if claims, ok := ClaimsFromFiber(c, a.contextKey); ok && claims.UserID() == id.String() {
		a.Cookies.Clear(c)
	}

	a.recordActivity(c, ActivityEventAccountDeleted, id.String(), nil)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "account deleted",
	})
}

func (a *AccountController) Signout(c *fiber.Ctx) error {
	a.Cookies.Clear(c)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "signed out",
	})
}

// Me returns the authenticated account, sanitized
func (a *AccountController) Me(c *fiber.Ctx) error {
	claims, ok := ClaimsFromFiber(c, a.contextKey)
	if !ok {
		return WriteError(c, ErrUnableToFindSession)
	}

	user, err := a.Repo.Users().FindByID(c.UserContext(), claims.UserID())
	if err != nil {
		if goerrors.IsNotFound(err) {
			return WriteError(c, ErrIdentityNotFound)
		}
		return WriteError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user.Sanitized(),
	})
}

// recordActivity reports a lifecycle event best-effort. The actor is the
// authenticated caller when one is present, otherwise the affected user.
func (a *AccountController) recordActivity(c *fiber.Ctx, eventType ActivityEventType, userID string, metadata map[string]any) {
	actor := ActorRef{ID: userID, Type: "user"}
	if claims, ok := ClaimsFromFiber(c, a.contextKey); ok {
		actor = ActorRef{ID: claims.UserID(), Type: "user"}
	}

	if metadata == nil {
		metadata = map[string]any{}
	}

	event := ActivityEvent{
		EventType:  eventType,
		Actor:      actor,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}

	if err := a.Activity.Record(c.UserContext(), event); err != nil {
		a.Logger.Warn("activity sink record error: %v", err)
	}
}

func validateStringEquals(str string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != str {
			return fmt.Errorf("value does not match")
		}
		return nil
	}
}

// validatePlausiblePhone checks that the digits form a possible number
// in some dialing plan. Shape checks (length, digits) run before this.
func validatePlausiblePhone(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	num, err := phonenumbers.Parse("+"+s, "")
	if err != nil {
		return fmt.Errorf("phone number is not dialable")
	}

	if !phonenumbers.IsPossibleNumber(num) {
		return fmt.Errorf("phone number is not dialable")
	}

	return nil
}
