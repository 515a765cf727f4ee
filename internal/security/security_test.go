package security

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lingoleap/lingoleap/internal/domain"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// ─── Passwords ──────────────────────────────────────────────────────────────

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}
	if hash == "correct horse" || !strings.HasPrefix(hash, "$2") {
		t.Errorf("hash = %q, want bcrypt hash", hash)
	}
	if err := CheckPassword(hash, "correct horse"); err != nil {
		t.Errorf("CheckPassword() error: %v", err)
	}
	if err := CheckPassword(hash, "wrong horse"); !errors.Is(err, domain.ErrInvalidCredential) {
		t.Errorf("wrong password err = %v", err)
	}
}

func TestHashPassword_TooShort(t *testing.T) {
	if _, err := HashPassword("short"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestCheckPassword_MalformedHash(t *testing.T) {
	if err := CheckPassword("not-a-hash", "whatever1"); !errors.Is(err, domain.ErrInvalidCredential) {
		t.Errorf("err = %v", err)
	}
}

// ─── Tokens ─────────────────────────────────────────────────────────────────

func TestTokens_IssueParse(t *testing.T) {
	tokens, err := NewTokens(testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	raw, exp, err := tokens.Issue("ana@example.com", "Ana")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Errorf("expiry %v is in the past", exp)
	}

	claims, err := tokens.Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if claims.Subject != "ana@example.com" || claims.Name != "Ana" || claims.ID == "" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestTokens_Expired(t *testing.T) {
	issued := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := issued
	tokens, _ := NewTokens(testSecret, time.Hour)
	tokens.WithClock(func() time.Time { return clock })

	raw, _, err := tokens.Issue("ana@example.com", "")
	if err != nil {
		t.Fatal(err)
	}
	clock = issued.Add(2 * time.Hour)
	if _, err := tokens.Parse(raw); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expired token err = %v", err)
	}
}

func TestTokens_WrongSecret(t *testing.T) {
	a, _ := NewTokens(testSecret, time.Hour)
	b, _ := NewTokens([]byte("ffffffffffffffffffffffffffffffff"), time.Hour)
	raw, _, _ := a.Issue("ana@example.com", "")
	if _, err := b.Parse(raw); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("foreign token err = %v", err)
	}
	if _, err := a.Parse("garbage"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("garbage token err = %v", err)
	}
}

func TestNewTokens_ShortSecret(t *testing.T) {
	if _, err := NewTokens([]byte("short"), 0); err == nil {
		t.Error("expected error for short secret")
	}
	tokens, err := NewTokens(testSecret, 0)
	if err != nil {
		t.Fatal(err)
	}
	if tokens.TTL() != 72*time.Hour {
		t.Errorf("default TTL = %v", tokens.TTL())
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def", "abc.def", true},
		{"bearer abc", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"Bearer   ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := BearerToken(tt.header)
		if got != tt.want || ok != tt.ok {
			t.Errorf("BearerToken(%q) = (%q, %v), want (%q, %v)", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}

// ─── Secret Storage ─────────────────────────────────────────────────────────

func TestLoadOrCreateSecret_Persists(t *testing.T) {
	home := t.TempDir()
	first, err := LoadOrCreateSecret(home)
	if err != nil {
		t.Fatalf("LoadOrCreateSecret() error: %v", err)
	}
	if len(first) != 32 {
		t.Errorf("secret len = %d, want 32", len(first))
	}
	second, err := LoadOrCreateSecret(home)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Error("secret changed between loads")
	}

	info, err := os.Stat(filepath.Join(home, "keys", "jwt.key"))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		t.Errorf("secret file mode = %v, want owner-only", perm)
	}
}

func TestLoadOrCreateSecret_Corrupt(t *testing.T) {
	home := t.TempDir()
	os.MkdirAll(filepath.Join(home, "keys"), 0700)
	os.WriteFile(filepath.Join(home, "keys", "jwt.key"), []byte("zz-not-hex"), 0600)
	if _, err := LoadOrCreateSecret(home); err == nil {
		t.Error("expected error for corrupt secret")
	}
}
