package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront-backend/models"
)

func TestRegisterFirstUserIsAdmin(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	body := map[string]string{
		"email":    "first@test.com",
		"password": "password123",
		"name":     "First User",
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/auth/register", body))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	resp := parseResponse(w)
	if resp["email"] != "first@test.com" {
		t.Errorf("expected email first@test.com, got %v", resp["email"])
	}
	if resp["role"] != models.RoleAdmin {
		t.Errorf("expected role admin, got %v", resp["role"])
	}
	if _, leaked := resp["password"]; leaked {
		t.Error("password must not be returned")
	}
}

func TestRegisterSecondUserIsUser(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)
	seedTestUser(db, "owner@test.com", models.RoleAdmin)

	body := map[string]string{
		"email":    "newuser@test.com",
		"password": "password123",
		"name":     "New User",
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/auth/register", body))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if role := parseResponse(w)["role"]; role != models.RoleUser {
		t.Errorf("expected role user, got %v", role)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	// Create an existing user
	seedTestUser(db, "existing@test.com", models.RoleUser)

	body := map[string]string{
		"email":    "existing@test.com",
		"password": "password123",
		"name":     "Duplicate User",
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/auth/register", body))

	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d: %s", w.Code, w.Body.String())
	}

	resp := parseResponse(w)
	if resp["error"] != "email already registered" {
		t.Errorf("expected 'email already registered', got %v", resp["error"])
	}
}

func TestRegisterValidationMissingEmail(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	body := map[string]string{
		"password": "password123",
		"name":     "No Email",
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/auth/register", body))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}
	if msg := parseResponse(w)["error"]; msg != "email is required" {
		t.Errorf("expected 'email is required', got %v", msg)
	}
}

func TestRegisterValidationShortPassword(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	body := map[string]string{
		"email":    "short@test.com",
		"password": "short",
		"name":     "Short",
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/auth/register", body))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestLoginSuccess(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	// Create user
	seedTestUser(db, "login@test.com", models.RoleUser)

	body := map[string]string{
		"email":    "login@test.com",
		"password": "password123",
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/auth/login", body))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := parseResponse(w)
	if resp["access_token"] == nil || resp["access_token"] == "" {
		t.Error("expected access_token in response")
	}
	user := resp["user"].(map[string]interface{})
	if user["email"] != "login@test.com" {
		t.Errorf("expected email login@test.com, got %v", user["email"])
	}
}

func TestLoginWrongPassword(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	seedTestUser(db, "wrongpwd@test.com", models.RoleUser)

	body := map[string]string{
		"email":    "wrongpwd@test.com",
		"password": "wrongpassword",
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/auth/login", body))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d: %s", w.Code, w.Body.String())
	}

	resp := parseResponse(w)
	if resp["error"] != "invalid credentials" {
		t.Errorf("expected 'invalid credentials', got %v", resp["error"])
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	body := map[string]string{
		"email":    "ghost@test.com",
		"password": "password123",
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/auth/login", body))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRegisterAdminRequiresAdmin(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)
	_, userToken := seedTestUser(db, "plain@test.com", models.RoleUser)

	body := map[string]string{
		"email":    "ops@test.com",
		"password": "password123",
		"name":     "Ops",
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/auth/register-admin", body))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 without token, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/auth/register-admin", body, userToken))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 for non-admin, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRegisterAdminByAdmin(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)
	_, adminToken := seedTestUser(db, "admin@test.com", models.RoleAdmin)

	body := map[string]string{
		"email":    "ops@test.com",
		"password": "password123",
		"name":     "Ops",
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/auth/register-admin", body, adminToken))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if role := parseResponse(w)["role"]; role != models.RoleAdmin {
		t.Errorf("expected role admin, got %v", role)
	}
}

func TestGetProfile(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)
	user, token := seedTestUser(db, "me@test.com", models.RoleUser)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/auth/profile", nil, token))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	profile := resp["user"].(map[string]interface{})
	if profile["id"] != user.ID.String() {
		t.Errorf("expected id %s, got %v", user.ID, profile["id"])
	}
	if resp["is_admin"] != false {
		t.Errorf("expected is_admin false, got %v", resp["is_admin"])
	}
}
