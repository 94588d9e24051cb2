// Package bearer guards routes with the stateless session token issued at
// login. Extraction is configurable (header, query, cookie) but every
// verification failure surfaces as the same unauthorized response, so callers
// cannot distinguish an expired session from a tampered one.
package bearer

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/vitalscan/backend/account"
)

var (
	defaultTokenLookup      = "header:" + fiber.HeaderAuthorization
	ErrMissingOrMalformed   = errors.New("missing or malformed session token")
	defaultUnauthorizedBody = fiber.Map{"error": fiber.Map{"message": "invalid or expired session", "text_code": account.TextCodeSessionInvalid}}
	defaultMalformedBody    = fiber.Map{"error": fiber.Map{"message": ErrMissingOrMalformed.Error()}}
)

type Config struct {
	// Filter skips the middleware for matching requests, e.g. health checks.
	Filter         func(*fiber.Ctx) bool
	SuccessHandler fiber.Handler
	ErrorHandler   func(*fiber.Ctx, error) error
	// Verifier is required; failures are reported as one kind.
	Verifier account.SessionVerifier
	// ContextKey is where verified claims are stored in the request locals.
	ContextKey string
	// TokenLookup is a comma separated list of sources, e.g.
	// "header:Authorization,cookie:session,query:token".
	TokenLookup string
	AuthScheme  string
}

func New(config ...Config) fiber.Handler {
	cfg := configDefault(config...)

	extractors := getExtractors(cfg.TokenLookup, cfg.AuthScheme)

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		raw, err := extractRawToken(c, extractors)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		claims, err := cfg.Verifier.Verify(raw)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		c.Locals(cfg.ContextKey, claims)

		return cfg.SuccessHandler(c)
	}
}

func configDefault(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Verifier == nil {
		panic("AUTH: bearer middleware configuration: Verifier is required.")
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
			if errors.Is(err, ErrMissingOrMalformed) {
				return c.Status(fiber.StatusBadRequest).JSON(defaultMalformedBody)
			}
			return c.Status(fiber.StatusUnauthorized).JSON(defaultUnauthorizedBody)
		}
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "session"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

// ClaimsFromCtx returns the claims stored by the middleware, or nil when the
// request did not pass through it.
func ClaimsFromCtx(c *fiber.Ctx, contextKey ...string) *account.SessionClaims {
	key := "session"
	if len(contextKey) > 0 {
		key = contextKey[0]
	}

	claims, ok := c.Locals(key).(*account.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}

type tokenExtractor func(c *fiber.Ctx) (string, error)

func extractRawToken(c *fiber.Ctx, extractors []tokenExtractor) (string, error) {
	var raw string
	var err error

	for _, extractor := range extractors {
		raw, err = extractor(c)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

func getExtractors(tokenLookup string, authScheme string) []tokenExtractor {
	extractors := make([]tokenExtractor, 0)

	// header:Authorization,cookie:session,query:token
	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) != 2 {
			continue
		}

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, tokenFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, tokenFromQuery(parts[1]))
		case "cookie":
			extractors = append(extractors, tokenFromCookie(parts[1]))
		}
	}

	return extractors
}

// tokenFromHeader returns a function that extracts the token from the request header.
func tokenFromHeader(header string, authScheme string) tokenExtractor {
	return func(c *fiber.Ctx) (string, error) {
		a := c.Get(header)
		authScheme = strings.TrimSpace(authScheme)
		l := len(authScheme)
		if l == 0 {
			return "", ErrMissingOrMalformed
		}
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
			return strings.TrimSpace(a[l:]), nil
		}
		return "", ErrMissingOrMalformed
	}
}

// tokenFromQuery returns a function that extracts the token from the query string.
func tokenFromQuery(param string) tokenExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Query(param)
		if token == "" {
			return "", ErrMissingOrMalformed
		}
		return token, nil
	}
}

// tokenFromCookie returns a function that extracts the token from the named cookie.
func tokenFromCookie(name string) tokenExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrMissingOrMalformed
		}
		return token, nil
	}
}
