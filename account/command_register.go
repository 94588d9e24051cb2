package account

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// RegisterOutcome reports which path registration took.
type RegisterOutcome = string

const (
	// OutcomeRegistered means a new unverified account was created.
	OutcomeRegistered RegisterOutcome = "registered"
	// OutcomeVerificationResent means registration hit an abandoned
	// unverified signup and re-issued its verification token.
	OutcomeVerificationResent RegisterOutcome = "verification-resent"
)

type RegisterMessage struct {
	Email     string `json:"email"`
	Username  string `json:"userName"`
	Password  string `json:"password"`
	UseHashid bool   `json:"-"`

	OnResponse func(*RegisterResponse)
}

func (e RegisterMessage) Type() string { return "account.register" }

type RegisterResponse struct {
	Outcome RegisterOutcome
	User    *User
}

type RegisterHandler struct {
	repo     RepositoryManager
	tokens   *TokenIssuer
	notifier Notifier
	logger   Logger
}

func NewRegisterHandler(repo RepositoryManager, tokens *TokenIssuer) *RegisterHandler {
	return &RegisterHandler{
		repo:     repo,
		tokens:   tokens,
		notifier: noopNotifier{},
		logger:   defLogger{},
	}
}

func (h *RegisterHandler) WithNotifier(n Notifier) *RegisterHandler {
	h.notifier = normalizeNotifier(n)
	return h
}

func (h *RegisterHandler) WithLogger(logger Logger) *RegisterHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterHandler) Execute(ctx context.Context, event RegisterMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterHandler) execute(ctx context.Context, event RegisterMessage) error {
	if event.Email == "" {
		return NewMissingFieldError("email")
	}
	if event.Username == "" {
		return NewMissingFieldError("userName")
	}
	if event.Password == "" {
		return NewMissingFieldError("password")
	}

	if !isEmail(event.Email) {
		return NewInvalidEmailError()
	}

	checks := EvaluatePassword(event.Password)
	if !checks.Acceptable() {
		return NewWeakPasswordError(checks)
	}

	email := NormalizeEmail(event.Email)
	resp := &RegisterResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := h.repo.Users().GetByEmailOrUsernameTx(ctx, tx, email, event.Username)
		if err != nil && !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing account")
		}

		if existing != nil {
			if existing.Verified {
				return ErrAccountExists
			}
			return h.reissueVerification(ctx, tx, existing, resp)
		}

		return h.createUnverified(ctx, tx, event, email, resp)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "registration transaction failed")
	}

	if err := h.notifier.SendVerification(ctx, resp.User.Email, resp.User.VerificationToken, *resp.User.VerificationExpiresAt); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to send verification email")
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

// reissueVerification handles the idempotent re-registration of an
// abandoned signup: the previous token is overwritten, so only the latest
// one can verify.
func (h *RegisterHandler) reissueVerification(ctx context.Context, tx bun.Tx, user *User, resp *RegisterResponse) error {
	token, err := h.tokens.Issue(VerificationTokenTTL)
	if err != nil {
		return err
	}

	user.SetVerificationToken(token)

	updated, err := h.repo.Users().UpdateTx(ctx, tx, user, repository.UpdateByID(user.ID.String()))
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to refresh verification token")
	}

	resp.Outcome = OutcomeVerificationResent
	resp.User = updated
	resp.User.SetVerificationToken(token)

	return nil
}

func (h *RegisterHandler) createUnverified(ctx context.Context, tx bun.Tx, event RegisterMessage, email string, resp *RegisterResponse) error {
	hash, err := HashPassword(event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	token, err := h.tokens.Issue(VerificationTokenTTL)
	if err != nil {
		return err
	}

	user := &User{
		Email:        email,
		Username:     event.Username,
		PasswordHash: hash,
	}
	user.SetVerificationToken(token)

	if event.UseHashid {
		if id, err := hashid.NewUUID(email); err == nil {
			user.ID = id
		}
	}

	created, err := h.repo.Users().CreateTx(ctx, tx, user)
	if err != nil {
		// A concurrent registration may win the uniqueness race; the
		// storage layer reports it as a conflict either way.
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
	}

	resp.Outcome = OutcomeRegistered
	resp.User = created
	resp.User.SetVerificationToken(token)

	return nil
}
