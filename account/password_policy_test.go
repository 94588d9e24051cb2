package account_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vitalscan/backend/account"
)

func TestEvaluatePassword(t *testing.T) {
	tests := []struct {
		name       string
		password   string
		acceptable bool
		failing    []string
	}{
		{
			name:       "Acceptable password",
			password:   "Str0ng&Secret!",
			acceptable: true,
		},
		{
			name:       "Too short",
			password:   "S3cret!ab",
			acceptable: false,
			failing:    []string{"minLength"},
		},
		{
			name:       "Too long",
			password:   "Aa1!" + strings.Repeat("x", 64),
			acceptable: false,
			failing:    []string{"maxLength"},
		},
		{
			name:       "Missing uppercase",
			password:   "str0ng&secret!",
			acceptable: false,
			failing:    []string{"hasUppercase"},
		},
		{
			name:       "Missing lowercase",
			password:   "STR0NG&SECRET!",
			acceptable: false,
			failing:    []string{"hasLowercase"},
		},
		{
			name:       "Missing digit",
			password:   "Strong&Secret!",
			acceptable: false,
			failing:    []string{"hasDigit"},
		},
		{
			name:       "Missing symbol",
			password:   "Str0ngSecret1",
			acceptable: false,
			failing:    []string{"hasSymbol"},
		},
		{
			name:       "Empty password fails everything but max length",
			password:   "",
			acceptable: false,
			failing:    []string{"minLength", "hasUppercase", "hasLowercase", "hasDigit", "hasSymbol"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checks := account.EvaluatePassword(tt.password)
			assert.Equal(t, tt.acceptable, checks.Acceptable())

			m := checks.Map()
			for _, rule := range tt.failing {
				assert.False(t, m[rule], "expected rule %q to fail", rule)
			}
		})
	}
}

func TestEvaluatePasswordBoundaries(t *testing.T) {
	// Exactly at the limits, with every class present.
	atMin := "Aa1!aaaaaa"
	assert.Len(t, atMin, account.PasswordMinLength)
	assert.True(t, account.EvaluatePassword(atMin).Acceptable())

	atMax := "Aa1!" + strings.Repeat("a", account.PasswordMaxLength-4)
	assert.Len(t, atMax, account.PasswordMaxLength)
	assert.True(t, account.EvaluatePassword(atMax).Acceptable())
}

// Length limits count runes, not bytes.
func TestEvaluatePasswordCountsRunes(t *testing.T) {
	// 9 runes but 14 bytes; a byte count would wrongly satisfy the
	// minimum.
	short := "Aa1!ééééé"
	assert.Equal(t, 9, len([]rune(short)))
	assert.Greater(t, len(short), account.PasswordMinLength)
	assert.False(t, account.EvaluatePassword(short).MinLength)

	// 64 runes but well over 64 bytes; a byte count would wrongly reject
	// it.
	long := "Aa1!" + strings.Repeat("é", account.PasswordMaxLength-4)
	assert.Equal(t, account.PasswordMaxLength, len([]rune(long)))
	assert.Greater(t, len(long), account.PasswordMaxLength)
	checks := account.EvaluatePassword(long)
	assert.True(t, checks.MaxLength)
	assert.True(t, checks.Acceptable())
}

func TestPasswordChecksMapCoversEveryRule(t *testing.T) {
	m := account.EvaluatePassword("Str0ng&Secret!").Map()

	for _, rule := range []string{"minLength", "maxLength", "hasUppercase", "hasLowercase", "hasDigit", "hasSymbol"} {
		_, ok := m[rule]
		assert.True(t, ok, "missing rule %q", rule)
	}
}
