package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eguva/eguva-backend/internal/model"
)

func TestAuthMiddleware_ValidCookie(t *testing.T) {
	auth := NewAuthMiddleware("test-secret")

	rec := httptest.NewRecorder()
	if err := auth.SetAuthCookie(rec, 42, model.UserRoleCustomer); err != nil {
		t.Fatalf("SetAuthCookie error: %v", err)
	}
	cookie := rec.Result().Cookies()[0]

	var got AuthUser
	var ok bool
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = GetUserFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)

	respRec := httptest.NewRecorder()
	handler.ServeHTTP(respRec, req)

	if respRec.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", respRec.Result().StatusCode, http.StatusOK)
	}
	if !ok || got.ID != 42 || got.Role != model.UserRoleCustomer {
		t.Fatalf("user = %+v, ok = %v", got, ok)
	}
}

func TestAuthMiddleware_MissingCookie(t *testing.T) {
	auth := NewAuthMiddleware("test-secret")

	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not be called without cookie")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_ForeignSecretRejected(t *testing.T) {
	issuer := NewAuthMiddleware("issuer-secret")
	verifier := NewAuthMiddleware("other-secret")

	rec := httptest.NewRecorder()
	if err := issuer.SetAuthCookie(rec, 42, model.UserRoleCustomer); err != nil {
		t.Fatalf("SetAuthCookie error: %v", err)
	}
	cookie := rec.Result().Cookies()[0]

	handler := verifier.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not be called with foreign token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)

	respRec := httptest.NewRecorder()
	handler.ServeHTTP(respRec, req)

	if respRec.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", respRec.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestRequireAdmin(t *testing.T) {
	auth := NewAuthMiddleware("test-secret")

	tests := []struct {
		name       string
		role       model.UserRole
		wantStatus int
	}{
		{
			name:       "admin passes",
			role:       model.UserRoleAdmin,
			wantStatus: http.StatusOK,
		},
		{
			name:       "customer forbidden",
			role:       model.UserRoleCustomer,
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			if err := auth.SetAuthCookie(rec, 1, tt.role); err != nil {
				t.Fatalf("SetAuthCookie error: %v", err)
			}
			cookie := rec.Result().Cookies()[0]

			handler := auth.Middleware(auth.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(cookie)

			respRec := httptest.NewRecorder()
			handler.ServeHTTP(respRec, req)

			if respRec.Result().StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", respRec.Result().StatusCode, tt.wantStatus)
			}
		})
	}
}
