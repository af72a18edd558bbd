package registration

import (
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"
)

// tokenPattern はチェックインコードの期待形式。
var tokenPattern = regexp.MustCompile(`^EVT-\d+-[A-Z0-9]{9}$`)

// TestGenerateToken_Format はコードがEVT-<ミリ秒>-<英数9文字>形式であることを検証する。
func TestGenerateToken_Format(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	token, err := GenerateToken(now)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if !tokenPattern.MatchString(token) {
		t.Errorf("token %q does not match expected format", token)
	}
}

// TestGenerateToken_TimestampComponent はタイムスタンプ成分が
// 引数のミリ秒表現と一致することを検証する。
func TestGenerateToken_TimestampComponent(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	token, err := GenerateToken(now)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	parts := strings.SplitN(token, "-", 3)
	if len(parts) != 3 {
		t.Fatalf("token %q should have 3 components", token)
	}

	ms, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		t.Fatalf("timestamp component %q is not numeric: %v", parts[1], err)
	}
	if ms != now.UnixMilli() {
		t.Errorf("timestamp component = %d, want %d", ms, now.UnixMilli())
	}
}

// TestGenerateToken_Uniqueness は同時刻でも衝突しないことを検証する。
// ランダムサフィックスのみで区別されるため、少数の生成で衝突しないことを確認する。
func TestGenerateToken_Uniqueness(t *testing.T) {
	now := time.Now()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := GenerateToken(now)
		if err != nil {
			t.Fatalf("GenerateToken() error = %v", err)
		}
		if seen[token] {
			t.Fatalf("duplicate token generated: %s", token)
		}
		seen[token] = true
	}
}
