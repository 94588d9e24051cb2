package account

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

// requiredRuleMessage is how validation.Required reports an absent value;
// the library exports no sentinel error to compare against.
const requiredRuleMessage = "cannot be blank"

// forgotPasswordAck is the single response body for forgot-password; it is
// byte-identical whether or not the email is registered.
const forgotPasswordAck = "If the email address is registered, a password reset link has been sent."

// RegisterAuthRoutes mounts the credential lifecycle under /auth.
func RegisterAuthRoutes(app fiber.Router, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	grp := app.Group("/auth")
	grp.Post("/register", controller.Register)
	grp.Get("/verify-email", controller.VerifyEmail)
	grp.Post("/login", controller.Login)
	grp.Post("/forgot-password", controller.ForgotPassword)
	grp.Post("/reset-password", controller.ResetPassword)
	grp.Post("/resend-verification", controller.ResendVerification)

	return controller
}

type AuthController struct {
	Debug    bool
	Logger   Logger
	Repo     RepositoryManager
	Tokens   *TokenIssuer
	Sessions *SessionIssuer
	Notifier Notifier
}

type AuthControllerOption func(*AuthController) *AuthController

func WithRepository(repo RepositoryManager) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Repo = repo
		return a
	}
}

func WithTokenIssuer(tokens *TokenIssuer) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Tokens = tokens
		return a
	}
}

func WithSessionIssuer(sessions *SessionIssuer) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Sessions = sessions
		return a
	}
}

func WithControllerNotifier(n Notifier) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Notifier = n
		return a
	}
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		if logger != nil {
			a.Logger = logger
		}
		return a
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Debug = debug
		return a
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:   defLogger{},
		Notifier: noopNotifier{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Tokens == nil {
		c.Tokens = NewTokenIssuer()
	}

	if c.Sessions == nil {
		panic("Missing SessionIssuer in auth controller...")
	}

	return c
}

// RegisterPayload accepts both field casings; legacy clients send
// PascalCase names. Normalization happens once at the boundary.
type RegisterPayload struct {
	Email    string `json:"email"`
	Username string `json:"userName"`
	Password string `json:"password"`

	LegacyEmail    string `json:"Email"`
	LegacyUsername string `json:"UserName"`
	LegacyPassword string `json:"Password"`
}

func (p *RegisterPayload) normalize() {
	if p.Email == "" {
		p.Email = p.LegacyEmail
	}
	if p.Username == "" {
		p.Username = p.LegacyUsername
	}
	if p.Password == "" {
		p.Password = p.LegacyPassword
	}
}

// Validate will run validation rules
func (p RegisterPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Username, validation.Required),
		validation.Field(&p.Password, validation.Required),
	)
}

func (a *AuthController) Register(c *fiber.Ctx) error {
	payload := new(RegisterPayload)

	if err := c.BodyParser(payload); err != nil {
		return a.renderError(c, parseError(err))
	}

	payload.normalize()
	if err := payload.Validate(); err != nil {
		return a.renderValidationError(c, err)
	}

	var res *RegisterResponse
	msg := RegisterMessage{
		Email:    payload.Email,
		Username: payload.Username,
		Password: payload.Password,
		// New accounts get a deterministic id derived from the email, so
		// retried registrations cannot mint divergent identities.
		UseHashid: true,
		OnResponse: func(r *RegisterResponse) {
			res = r
		},
	}

	register := NewRegisterHandler(a.Repo, a.Tokens).
		WithNotifier(a.Notifier).
		WithLogger(a.Logger)

	if err := register.Execute(c.UserContext(), msg); err != nil {
		return a.renderError(c, err)
	}

	message := "registration successful, check your email to verify your account"
	if res.Outcome == OutcomeVerificationResent {
		message = "verification email resent, check your email to verify your account"
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status":  res.Outcome,
		"message": message,
	})
}

func (a *AuthController) VerifyEmail(c *fiber.Ctx) error {
	token := c.Query("token")

	verify := NewVerifyEmailHandler(a.Repo).WithLogger(a.Logger)

	if err := verify.Execute(c.UserContext(), VerifyEmailMessage{Token: token}); err != nil {
		return a.renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "email verified successfully",
	})
}

// LoginPayload carries the historical login field names.
type LoginPayload struct {
	Identifier string `json:"loginUserName"`
	Password   string `json:"loginPassword"`
}

// Validate will run validation rules
func (p LoginPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Identifier, validation.Required),
		validation.Field(&p.Password, validation.Required),
	)
}

func (a *AuthController) Login(c *fiber.Ctx) error {
	payload := new(LoginPayload)

	if err := c.BodyParser(payload); err != nil {
		return a.renderError(c, parseError(err))
	}

	if err := payload.Validate(); err != nil {
		return a.renderValidationError(c, err)
	}

	var res *LoginResponse
	msg := LoginMessage{
		Identifier: payload.Identifier,
		Password:   payload.Password,
		OnResponse: func(r *LoginResponse) {
			res = r
		},
	}

	login := NewLoginHandler(a.Repo, a.Sessions).WithLogger(a.Logger)

	if err := login.Execute(c.UserContext(), msg); err != nil {
		return a.renderError(c, err)
	}

	return c.JSON(res)
}

// EmailPayload accepts both field casings for email-only operations.
type EmailPayload struct {
	Email       string `json:"email"`
	LegacyEmail string `json:"Email"`
}

func (p *EmailPayload) normalize() {
	if p.Email == "" {
		p.Email = p.LegacyEmail
	}
}

// Validate will run validation rules
func (p EmailPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required),
	)
}

func (a *AuthController) ForgotPassword(c *fiber.Ctx) error {
	payload := new(EmailPayload)

	if err := c.BodyParser(payload); err != nil {
		return a.renderError(c, parseError(err))
	}

	payload.normalize()
	if err := payload.Validate(); err != nil {
		return a.renderValidationError(c, err)
	}

	initReset := NewInitializePasswordResetHandler(a.Repo, a.Tokens).
		WithNotifier(a.Notifier).
		WithLogger(a.Logger)

	if err := initReset.Execute(c.UserContext(), InitializePasswordResetMessage{Email: payload.Email}); err != nil {
		return a.renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": forgotPasswordAck,
	})
}

type ResetPasswordPayload struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (p ResetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Token, validation.Required),
		validation.Field(&p.Password, validation.Required),
	)
}

func (a *AuthController) ResetPassword(c *fiber.Ctx) error {
	payload := new(ResetPasswordPayload)

	if err := c.BodyParser(payload); err != nil {
		return a.renderError(c, parseError(err))
	}

	if err := payload.Validate(); err != nil {
		return a.renderValidationError(c, err)
	}

	finalize := NewFinalizePasswordResetHandler(a.Repo).WithLogger(a.Logger)

	msg := FinalizePasswordResetMessage{
		Token:    payload.Token,
		Password: payload.Password,
	}

	if err := finalize.Execute(c.UserContext(), msg); err != nil {
		return a.renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "password has been reset successfully",
	})
}

func (a *AuthController) ResendVerification(c *fiber.Ctx) error {
	payload := new(EmailPayload)

	if err := c.BodyParser(payload); err != nil {
		return a.renderError(c, parseError(err))
	}

	payload.normalize()
	if err := payload.Validate(); err != nil {
		return a.renderValidationError(c, err)
	}

	resend := NewResendVerificationHandler(a.Repo, a.Tokens).
		WithNotifier(a.Notifier).
		WithLogger(a.Logger)

	if err := resend.Execute(c.UserContext(), ResendVerificationMessage{Email: payload.Email}); err != nil {
		return a.renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "verification email resent, check your email to verify your account",
	})
}

func parseError(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body").
		WithCode(goerrors.CodeBadRequest)
}

func (a *AuthController) renderValidationError(c *fiber.Ctx, err error) error {
	fields, ok := err.(validation.Errors)
	if !ok {
		return a.renderError(c, err)
	}

	// Absent required fields get the same coded error the lifecycle
	// handlers report, so clients see one MISSING_FIELD surface.
	for field, fieldErr := range fields {
		if fieldErr.Error() == requiredRuleMessage {
			return a.renderError(c, NewMissingFieldError(field))
		}
	}

	details := map[string]string{}
	for field, fieldErr := range fields {
		details[field] = fieldErr.Error()
	}

	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": fiber.Map{
			"message": "invalid request payload",
			"fields":  details,
		},
	})
}

func (a *AuthController) renderError(c *fiber.Ctx, err error) error {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		a.Logger.Error("unhandled error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fiber.Map{"message": "internal server error"},
		})
	}

	status := statusFromCategory(rich.Category)

	// Internal details are only surfaced in non-production diagnostics.
	if status >= fiber.StatusInternalServerError {
		a.Logger.Error("request failed: %v", rich)
		message := "internal server error"
		if a.Debug {
			message = rich.Error()
		}
		return c.Status(status).JSON(fiber.Map{
			"error": fiber.Map{"message": message},
		})
	}

	body := fiber.Map{"message": rich.Message}
	if rich.TextCode != "" {
		body["text_code"] = rich.TextCode
	}
	if rich.Metadata != nil {
		if checks, ok := rich.Metadata["checks"]; ok {
			body["checks"] = checks
		}
	}

	return c.Status(status).JSON(fiber.Map{
		"error": body,
	})
}

func statusFromCategory(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryAuth:
		return fiber.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return fiber.StatusForbidden
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return fiber.StatusBadRequest
	case goerrors.CategoryConflict:
		return fiber.StatusConflict
	case goerrors.CategoryNotFound:
		return fiber.StatusNotFound
	case goerrors.CategoryRateLimit:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}
