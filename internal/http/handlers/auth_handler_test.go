package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tbourn/go-helpdesk-backend/internal/domain"
	"github.com/tbourn/go-helpdesk-backend/internal/policy"
	"github.com/tbourn/go-helpdesk-backend/internal/services"
)

func TestLogin_Success(t *testing.T) {
	h := newTestHandlers(stubAuthSvc{
		login: func(_ context.Context, email, password string) (*services.LoginResult, error) {
			if email != "grace@example.com" || password != "pw-secret" {
				t.Fatalf("credentials not passed through: %q %q", email, password)
			}
			return &services.LoginResult{
				Token: "signed-token",
				User:  &domain.User{ID: 7, Name: "Grace", Email: email, Role: domain.RoleClient},
			}, nil
		},
	}, stubUserSvc{}, stubTicketSvc{}, stubCommentSvc{})

	r := testEngine(t)
	r.POST("/auth/login", h.Login)

	body := bytes.NewBufferString(`{"email":"grace@example.com","password":"pw-secret"}`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", body))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp LoginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Token != "signed-token" || resp.User == nil || resp.User.ID != 7 {
		t.Fatalf("unexpected body: %+v", resp)
	}
}

func TestLogin_InvalidCredentialsAndBinding(t *testing.T) {
	h := newTestHandlers(stubAuthSvc{
		login: func(context.Context, string, string) (*services.LoginResult, error) {
			return nil, services.ErrInvalidCredentials
		},
	}, stubUserSvc{}, stubTicketSvc{}, stubCommentSvc{})

	r := testEngine(t)
	r.POST("/auth/login", h.Login)

	// Bad credentials → 401 with the generic message.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login",
		bytes.NewBufferString(`{"email":"x@y.z","password":"wrong"}`)))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("json: %v", err)
	}
	if er.Code != ErrCodeUnauthorized {
		t.Fatalf("unexpected code: %+v", er)
	}

	// Missing password → 400 before the service is reached.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login",
		bytes.NewBufferString(`{"email":"x@y.z"}`)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestMe(t *testing.T) {
	h := newTestHandlers(stubAuthSvc{
		profile: func(_ context.Context, userID uint) (*domain.User, error) {
			if userID != 9 {
				t.Fatalf("expected actor id 9, got %d", userID)
			}
			return &domain.User{ID: 9, Name: "Ivy", Role: domain.RoleAgentL1}, nil
		},
	}, stubUserSvc{}, stubTicketSvc{}, stubCommentSvc{})

	r := testEngine(t)
	r.GET("/auth/me", withActor(policy.Actor{ID: 9, Role: domain.RoleAgentL1}), h.Me)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var u domain.User
	if err := json.Unmarshal(w.Body.Bytes(), &u); err != nil {
		t.Fatalf("json: %v", err)
	}
	if u.ID != 9 || u.Name != "Ivy" {
		t.Fatalf("unexpected profile: %+v", u)
	}
}

func TestMe_NoActor401(t *testing.T) {
	h := newTestHandlers(stubAuthSvc{}, stubUserSvc{}, stubTicketSvc{}, stubCommentSvc{})

	r := testEngine(t)
	// Route wired without the auth middleware.
	r.GET("/auth/me", h.Me)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestChangePassword_Mappings(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"ok", nil, http.StatusNoContent},
		{"weak", services.ErrWeakPassword, http.StatusBadRequest},
		{"wrong_current", services.ErrInvalidCredentials, http.StatusUnauthorized},
		{"gone", services.ErrUserNotFound, http.StatusNotFound},
		{"internal", context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandlers(stubAuthSvc{
				changePassword: func(_ context.Context, userID uint, current, next string) error {
					if userID != 4 || current != "old-pass" || next != "new-pass-123" {
						t.Fatalf("args not passed through: %d %q %q", userID, current, next)
					}
					return tc.err
				},
			}, stubUserSvc{}, stubTicketSvc{}, stubCommentSvc{})

			r := testEngine(t)
			r.POST("/auth/change-password", withActor(policy.Actor{ID: 4, Role: domain.RoleClient}), h.ChangePassword)

			body := bytes.NewBufferString(`{"current_password":"old-pass","new_password":"new-pass-123"}`)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/change-password", body))
			if w.Code != tc.wantStatus {
				t.Fatalf("status=%d, want %d. body=%s", w.Code, tc.wantStatus, w.Body.String())
			}
			// 500 bodies carry an opaque message, never the raw error.
			if tc.wantStatus == http.StatusInternalServerError {
				var er ErrorResponse
				if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
					t.Fatalf("json: %v", err)
				}
				if er.Message != "internal error" {
					t.Fatalf("internal detail leaked: %q", er.Message)
				}
			}
		})
	}
}
