package gate

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "Hello World", "Hello World"},
		{"script tag stripped", `before<script>alert(1)</script>after`, "beforealert(1)after"},
		{"javascript scheme stripped", "javascript:alert(1)", "alert(1)"},
		{"vbscript scheme stripped", "vbscript:msgbox", "msgbox"},
		{"data scheme stripped", "data:text/html,x", "text/html,x"},
		{"event handler stripped", `img onerror=alert(1)`, "img alert(1)"},
		{"angle brackets stripped", "a <b> c", "a b c"},
		{"nested scheme cannot survive", "javasjavascript:cript:alert(1)", "alert(1)"},
		{"whitespace trimmed", "  padded  ", "padded"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Sanitize(tc.in)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, got, Sanitize(got), "sanitize must be idempotent")
		})
	}
}

func TestSanitizeClampsLength(t *testing.T) {
	long := strings.Repeat("a", 5000)
	got := Sanitize(long)
	assert.Len(t, got, 1000)
	assert.Equal(t, got, Sanitize(got))
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("user@example.com"))
	assert.True(t, ValidateEmail("first.last+tag@sub.example.org"))

	assert.False(t, ValidateEmail("user@"))
	assert.False(t, ValidateEmail("@example.com"))
	assert.False(t, ValidateEmail("no-at-sign"))
	assert.False(t, ValidateEmail("spaces in@example.com"))

	tooLong := strings.Repeat("a", 250) + "@x.com"
	assert.False(t, ValidateEmail(tooLong))
}

func TestValidateURL(t *testing.T) {
	assert.True(t, ValidateURL("https://example.com/path"))
	assert.True(t, ValidateURL("http://example.com"))

	assert.False(t, ValidateURL("javascript:alert(1)"))
	assert.False(t, ValidateURL("ftp://example.com"))
	assert.False(t, ValidateURL("https://"))
	assert.False(t, ValidateURL("not a url"))
}

func TestValidateField(t *testing.T) {
	t.Run("empty optional short-circuits to valid", func(t *testing.T) {
		assert.NoError(t, ValidateField("bio", "", Rule{MaxLength: 10}))
		assert.NoError(t, ValidateField("bio", "   ", Rule{MinLength: 5}))
	})

	t.Run("empty required fails", func(t *testing.T) {
		err := ValidateField("title", "", Rule{Required: true})
		var fe *FieldError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "title", fe.Field)
	})

	t.Run("sql heuristic runs before format checks", func(t *testing.T) {
		err := ValidateField("email", "x@example.com' OR 1=1", Rule{Email: true})
		var fe *FieldError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "contains disallowed characters", fe.Message)
	})

	t.Run("skip sql check honored", func(t *testing.T) {
		assert.NoError(t, ValidateField("snippet", "SELECT id FROM users", Rule{SkipSQLCheck: true}))
	})

	t.Run("length bounds", func(t *testing.T) {
		assert.Error(t, ValidateField("title", "ab", Rule{MinLength: 3}))
		assert.Error(t, ValidateField("title", "abcd", Rule{MaxLength: 3}))
		assert.NoError(t, ValidateField("title", "abc", Rule{MinLength: 3, MaxLength: 3}))
	})

	t.Run("pattern", func(t *testing.T) {
		rule := Rule{Pattern: regexp.MustCompile(`^[a-z-]+$`)}
		assert.NoError(t, ValidateField("slug", "hero-section", rule))
		assert.Error(t, ValidateField("slug", "Hero Section", rule))
	})
}

func TestSubmit(t *testing.T) {
	rules := map[string]Rule{
		"title": {Required: true, MaxLength: 100},
		"email": {Email: true},
		"url":   {URL: true},
	}

	t.Run("invokes writer with sanitized payload", func(t *testing.T) {
		var written map[string]any
		err := Submit(context.Background(), map[string]any{
			"title": "  Hero <script>x</script>  ",
			"email": "user@example.com",
			"order": 3,
		}, rules, func(_ context.Context, payload map[string]any) error {
			written = payload
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, "Hero x", written["title"])
		assert.Equal(t, "user@example.com", written["email"])
		assert.Equal(t, 3, written["order"], "non-string values pass through")
	})

	t.Run("collects all field errors and never writes", func(t *testing.T) {
		called := false
		err := Submit(context.Background(), map[string]any{
			"email": "not-an-email",
			"url":   "ftp://nope",
		}, rules, func(context.Context, map[string]any) error {
			called = true
			return nil
		})
		require.Error(t, err)
		assert.False(t, called, "writer must not run when any field fails")

		var verrs Errors
		require.ErrorAs(t, err, &verrs)
		assert.Len(t, verrs, 3)
		assert.Contains(t, verrs, "title")
		assert.Contains(t, verrs, "email")
		assert.Contains(t, verrs, "url")
	})

	t.Run("writer errors propagate unchanged", func(t *testing.T) {
		want := assert.AnError
		err := Submit(context.Background(), map[string]any{"title": "ok"}, rules, func(context.Context, map[string]any) error {
			return want
		})
		assert.ErrorIs(t, err, want)
	})
}
