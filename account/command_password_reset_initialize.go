package account

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type InitializePasswordResetMessage struct {
	Email string `json:"email"`

	OnResponse func(*InitializePasswordResetResponse)
}

func (e InitializePasswordResetMessage) Type() string { return "account.password_reset_initialize" }

// InitializePasswordResetResponse is identical whether or not the email is
// registered; it never discloses which path was taken.
type InitializePasswordResetResponse struct {
	Acknowledged bool
}

type InitializePasswordResetHandler struct {
	repo     RepositoryManager
	tokens   *TokenIssuer
	notifier Notifier
	logger   Logger
}

func NewInitializePasswordResetHandler(repo RepositoryManager, tokens *TokenIssuer) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{
		repo:     repo,
		tokens:   tokens,
		notifier: noopNotifier{},
		logger:   defLogger{},
	}
}

func (h *InitializePasswordResetHandler) WithNotifier(n Notifier) *InitializePasswordResetHandler {
	h.notifier = normalizeNotifier(n)
	return h
}

func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	if event.Email == "" {
		return NewMissingFieldError("email")
	}

	var user *User
	var token IssuedToken

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error

		user, err = h.repo.Users().GetByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				// Unknown email: acknowledge without side effects.
				user = nil
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up account for password reset")
		}

		token, err = h.tokens.Issue(ResetTokenTTL)
		if err != nil {
			return err
		}

		user.SetResetToken(token)

		if _, err := h.repo.Users().UpdateTx(ctx, tx, user, repository.UpdateByID(user.ID.String())); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist reset token")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "password reset initialization failed")
	}

	if user != nil {
		if err := h.notifier.SendPasswordReset(ctx, user.Email, token.Token, token.ExpiresAt); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to send password reset email")
		}
	}

	if event.OnResponse != nil {
		event.OnResponse(&InitializePasswordResetResponse{Acknowledged: true})
	}

	return nil
}
