package interceptors

import (
	"context"
	"testing"
)

func TestWithIdentity_SetsAllValues(t *testing.T) {
	ctx := WithIdentity(context.Background(), "principal-1", "session-1", []string{"admin", "viewer"})

	principalID, ok := GetPrincipalID(ctx)
	if !ok {
		t.Fatal("GetPrincipalID should return true")
	}
	if principalID != "principal-1" {
		t.Errorf("principal_id = %q, want %q", principalID, "principal-1")
	}

	sessionID, ok := GetSessionID(ctx)
	if !ok {
		t.Fatal("GetSessionID should return true")
	}
	if sessionID != "session-1" {
		t.Errorf("session_id = %q, want %q", sessionID, "session-1")
	}

	roles := GetRoles(ctx)
	if len(roles) != 2 || roles[0] != "admin" || roles[1] != "viewer" {
		t.Errorf("roles = %v, want [admin viewer]", roles)
	}
}

func TestGetters_ReturnFalseWhenNotSet(t *testing.T) {
	ctx := context.Background()

	if v, ok := GetPrincipalID(ctx); ok || v != "" {
		t.Errorf("GetPrincipalID = %q, %v; want empty, false", v, ok)
	}
	if v, ok := GetSessionID(ctx); ok || v != "" {
		t.Errorf("GetSessionID = %q, %v; want empty, false", v, ok)
	}
	if roles := GetRoles(ctx); roles != nil {
		t.Errorf("GetRoles = %v, want nil", roles)
	}
}

func TestContext_Isolation(t *testing.T) {
	base := context.Background()
	ctx1 := WithIdentity(base, "principal-1", "session-1", nil)
	ctx2 := WithIdentity(base, "principal-2", "session-2", nil)

	p1, _ := GetPrincipalID(ctx1)
	p2, _ := GetPrincipalID(ctx2)
	if p1 != "principal-1" || p2 != "principal-2" {
		t.Errorf("principals = %q, %q", p1, p2)
	}
	if _, ok := GetPrincipalID(base); ok {
		t.Error("base context must not be modified")
	}
}

func TestWithIdentity_Chaining(t *testing.T) {
	ctx := WithIdentity(context.Background(), "principal-1", "session-1", []string{"admin"})
	ctx = WithIdentity(ctx, "principal-2", "session-2", nil)

	principalID, _ := GetPrincipalID(ctx)
	sessionID, _ := GetSessionID(ctx)
	if principalID != "principal-2" || sessionID != "session-2" {
		t.Errorf("got %q/%q, want principal-2/session-2", principalID, sessionID)
	}
	if roles := GetRoles(ctx); roles != nil {
		t.Errorf("roles = %v, want nil", roles)
	}
}

func TestWithIdentity_EmptyValues(t *testing.T) {
	ctx := WithIdentity(context.Background(), "", "", nil)

	principalID, ok := GetPrincipalID(ctx)
	if !ok {
		t.Error("GetPrincipalID should return true even for empty string")
	}
	if principalID != "" {
		t.Errorf("principal_id = %q, want empty string", principalID)
	}
}
