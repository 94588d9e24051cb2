package account

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type ResendVerificationMessage struct {
	Email string `json:"email"`

	OnResponse func(*User)
}

func (e ResendVerificationMessage) Type() string { return "account.resend_verification" }

type ResendVerificationHandler struct {
	repo     RepositoryManager
	tokens   *TokenIssuer
	notifier Notifier
	logger   Logger
}

func NewResendVerificationHandler(repo RepositoryManager, tokens *TokenIssuer) *ResendVerificationHandler {
	return &ResendVerificationHandler{
		repo:     repo,
		tokens:   tokens,
		notifier: noopNotifier{},
		logger:   defLogger{},
	}
}

func (h *ResendVerificationHandler) WithNotifier(n Notifier) *ResendVerificationHandler {
	h.notifier = normalizeNotifier(n)
	return h
}

func (h *ResendVerificationHandler) WithLogger(logger Logger) *ResendVerificationHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ResendVerificationHandler) Execute(ctx context.Context, event ResendVerificationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during verification resend",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ResendVerificationHandler) execute(ctx context.Context, event ResendVerificationMessage) error {
	if event.Email == "" {
		return NewMissingFieldError("email")
	}

	user := &User{}
	var token IssuedToken

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error

		user, err = h.repo.Users().GetByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrUserNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up account")
		}

		if user.Verified {
			return ErrAlreadyVerified
		}

		token, err = h.tokens.Issue(VerificationTokenTTL)
		if err != nil {
			return err
		}

		// Overwrites any outstanding token; the previous one becomes
		// permanently invalid.
		user.SetVerificationToken(token)

		if _, err := h.repo.Users().UpdateTx(ctx, tx, user, repository.UpdateByID(user.ID.String())); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist verification token")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "verification resend failed")
	}

	if err := h.notifier.SendVerification(ctx, user.Email, token.Token, token.ExpiresAt); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to send verification email")
	}

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}
