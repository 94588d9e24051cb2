package account

import (
	"context"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

type LoginMessage struct {
	Identifier string `json:"loginUserName"`
	Password   string `json:"loginPassword"`

	OnResponse func(*LoginResponse)
}

func (e LoginMessage) Type() string { return "account.login" }

type LoginResponse struct {
	Token string     `json:"token"`
	User  PublicUser `json:"user"`
}

type LoginHandler struct {
	repo     RepositoryManager
	sessions *SessionIssuer
	logger   Logger
}

func NewLoginHandler(repo RepositoryManager, sessions *SessionIssuer) *LoginHandler {
	return &LoginHandler{
		repo:     repo,
		sessions: sessions,
		logger:   defLogger{},
	}
}

func (h *LoginHandler) WithLogger(logger Logger) *LoginHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *LoginHandler) Execute(ctx context.Context, event LoginMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during login",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *LoginHandler) execute(ctx context.Context, event LoginMessage) error {
	if event.Identifier == "" {
		return NewMissingFieldError("loginUserName")
	}
	if event.Password == "" {
		return NewMissingFieldError("loginPassword")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.repo.Users().GetByIdentifier(ctx, event.Identifier)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			// Same error as a wrong password; responses must not reveal
			// whether the account exists.
			h.logger.Debug("login identifier not found")
			return ErrInvalidCredentials
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up login identity")
	}

	if !user.Verified {
		return ErrEmailNotVerified
	}

	if err := ComparePasswordAndHash(event.Password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrMismatchedHashAndPassword) {
			h.logger.Debug("login password mismatch for user %s", user.ID.String())
			return ErrInvalidCredentials
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to verify credentials")
	}

	token, err := h.sessions.Issue(user)
	if err != nil {
		return err
	}

	if event.OnResponse != nil {
		event.OnResponse(&LoginResponse{
			Token: token,
			User:  user.Public(),
		})
	}

	return nil
}
