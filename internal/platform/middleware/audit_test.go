package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/platform/auth"
)

func auditRequest(t *testing.T, method, target string, recorder AuditRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)

	ctx := req.Context()
	ctx = context.WithValue(ctx, auth.UserIDKey, "user-1")
	ctx = context.WithValue(ctx, auth.UserRoleKey, "Admin")
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("request_id", "req-1")

	mw := Audit(zerolog.Nop(), recorder)
	handler := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
}

func TestAudit_RecordsAdminAccess(t *testing.T) {
	recordID := uuid.New().String()

	var got AuditEntry
	auditRequest(t, http.MethodGet, "/api/v1/admin/patients/"+recordID, AuditRecorderFunc(func(e AuditEntry) error {
		got = e
		return nil
	}))

	if got.UserID != "user-1" {
		t.Errorf("expected user_id 'user-1', got %q", got.UserID)
	}
	if got.UserRole != "Admin" {
		t.Errorf("expected user_role 'Admin', got %q", got.UserRole)
	}
	if got.Resource != "patients" {
		t.Errorf("expected resource 'patients', got %q", got.Resource)
	}
	if got.RecordID != recordID {
		t.Errorf("expected record_id %q, got %q", recordID, got.RecordID)
	}
	if got.Action != "read" {
		t.Errorf("expected action 'read', got %q", got.Action)
	}
	if got.RequestID != "req-1" {
		t.Errorf("expected request_id 'req-1', got %q", got.RequestID)
	}
	if got.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", got.StatusCode)
	}
}

func TestAudit_SelfServiceResource(t *testing.T) {
	var got AuditEntry
	auditRequest(t, http.MethodPost, "/api/v1/my-patient", AuditRecorderFunc(func(e AuditEntry) error {
		got = e
		return nil
	}))

	if got.Resource != "my-patient" {
		t.Errorf("expected resource 'my-patient', got %q", got.Resource)
	}
	if got.Action != "create" {
		t.Errorf("expected action 'create', got %q", got.Action)
	}
	if got.RecordID != "" {
		t.Errorf("expected empty record_id, got %q", got.RecordID)
	}
}

func TestAudit_SkipsNonAPIPaths(t *testing.T) {
	called := false
	auditRequest(t, http.MethodGet, "/health", AuditRecorderFunc(func(e AuditEntry) error {
		called = true
		return nil
	}))
	if called {
		t.Error("expected recorder not to be called for non-API path")
	}
}

func TestHTTPMethodToAction(t *testing.T) {
	cases := map[string]string{
		http.MethodGet:    "read",
		http.MethodHead:   "read",
		http.MethodPost:   "create",
		http.MethodPut:    "update",
		http.MethodPatch:  "update",
		http.MethodDelete: "delete",
		"OPTIONS":         "read",
	}
	for method, want := range cases {
		if got := httpMethodToAction(method); got != want {
			t.Errorf("%s: expected %q, got %q", method, want, got)
		}
	}
}
