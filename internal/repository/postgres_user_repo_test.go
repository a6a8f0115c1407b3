package repository

import (
	"database/sql"
	"testing"
)

// TestNullString は空文字列とNULLの相互変換を検証する。
func TestNullString(t *testing.T) {
	ns := nullString("")
	if ns.Valid {
		t.Error("空文字列はNULLに変換されるべき")
	}

	ns = nullString("hello")
	if !ns.Valid || ns.String != "hello" {
		t.Errorf("nullString(\"hello\") = %+v, want Valid=true String=hello", ns)
	}
}

// TestNullStringValue はsql.NullStringからの値取得を検証する。
func TestNullStringValue(t *testing.T) {
	if v := nullStringValue(sql.NullString{}); v != "" {
		t.Errorf("NULLは空文字列になるべき: got %q", v)
	}
	if v := nullStringValue(sql.NullString{String: "world", Valid: true}); v != "world" {
		t.Errorf("nullStringValue = %q, want %q", v, "world")
	}
}

// TestNewPostgresUserRepo は初期化を検証する。
func TestNewPostgresUserRepo(t *testing.T) {
	repo := NewPostgresUserRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}
