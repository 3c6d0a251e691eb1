package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/angelmondragon/adspace-backend/internal/access"
	"github.com/angelmondragon/adspace-backend/internal/auth"
	"github.com/angelmondragon/adspace-backend/internal/users"
	"github.com/angelmondragon/adspace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/adspace-backend/pkg/errors"
)

type stubAuthService struct {
	login        *auth.LoginResponse
	pair         *auth.TokenPair
	err          error
	gotToken     string
	gotRefresh   string
	loggedOut    string
	profileActor access.Actor
}

func (s *stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return s.login, s.err
}

func (s *stubAuthService) Register(ctx context.Context, req auth.RegisterRequest) (*auth.LoginResponse, error) {
	return s.login, s.err
}

func (s *stubAuthService) Refresh(ctx context.Context, accessToken string, req auth.RefreshRequest) (*auth.TokenPair, error) {
	s.gotToken = accessToken
	s.gotRefresh = req.RefreshToken
	return s.pair, s.err
}

func (s *stubAuthService) Logout(ctx context.Context, accessToken string) error {
	s.loggedOut = accessToken
	return s.err
}

func (s *stubAuthService) Profile(ctx context.Context, actor access.Actor) (*auth.Profile, error) {
	s.profileActor = actor
	if s.err != nil {
		return nil, s.err
	}
	return &auth.Profile{User: &users.UserDTO{ID: actor.UserID, Role: actor.Role}}, nil
}

func TestAuthLoginSuccess(t *testing.T) {
	svc := &stubAuthService{login: &auth.LoginResponse{
		AccessToken:  "access",
		RefreshToken: "refresh",
		User:         &users.UserDTO{ID: 7, Email: "client@example.com", Role: enums.RoleClient},
	}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"client@example.com","password":"Client234"}`))
	rec := serve(AuthLogin(svc, nil), req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var body auth.LoginResponse
	decodeData(t, rec, &body)
	if body.AccessToken != "access" || body.User == nil || body.User.ID != 7 {
		t.Fatalf("unexpected payload %+v", body)
	}
}

func TestAuthLoginRejectsMissingFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"client@example.com"}`))
	rec := serve(AuthLogin(&stubAuthService{}, nil), req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
	envelope := decodeError(t, rec)
	if _, ok := envelope.Errors["password"]; !ok {
		t.Fatalf("expected password error, got %+v", envelope.Errors)
	}
}

func TestAuthLoginUnauthorized(t *testing.T) {
	svc := &stubAuthService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"client@example.com","password":"nope12345"}`))
	rec := serve(AuthLogin(svc, nil), req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
	if envelope := decodeError(t, rec); envelope.Success || envelope.Code != string(pkgerrors.CodeUnauthorized) {
		t.Fatalf("unexpected envelope %+v", envelope)
	}
}

func TestAuthRegisterCreated(t *testing.T) {
	svc := &stubAuthService{login: &auth.LoginResponse{AccessToken: "a", RefreshToken: "r"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(`{"name":"Buyer","email":"buyer@example.com","password":"Buyer1234"}`))
	rec := serve(AuthRegister(svc, nil), req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rec.Code)
	}
}

func TestAuthRefreshPassesBearerAndBody(t *testing.T) {
	svc := &stubAuthService{pair: &auth.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{"refresh_token":"old-refresh"}`))
	req.Header.Set("Authorization", "Bearer old-access")
	rec := serve(AuthRefresh(svc, nil), req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.gotToken != "old-access" || svc.gotRefresh != "old-refresh" {
		t.Fatalf("unexpected forwarded values %q %q", svc.gotToken, svc.gotRefresh)
	}
}

func TestAuthRefreshRequiresBearer(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{"refresh_token":"x"}`))
	rec := serve(AuthRefresh(&stubAuthService{}, nil), req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestAuthLogout(t *testing.T) {
	svc := &stubAuthService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "bearer tok")
	rec := serve(AuthLogout(svc, nil), req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.loggedOut != "tok" {
		t.Fatalf("expected token forwarded, got %q", svc.loggedOut)
	}
}

func TestAuthProfileUsesContextActor(t *testing.T) {
	svc := &stubAuthService{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/profile", nil)
	req = asActor(req, access.Actor{UserID: 3, Role: enums.RoleProvider})
	rec := serve(AuthProfile(svc, nil), req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.profileActor.UserID != 3 {
		t.Fatalf("expected actor 3, got %+v", svc.profileActor)
	}
}

func TestAuthNilService(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{}`))
	rec := serve(AuthLogin(nil, nil), req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
}
