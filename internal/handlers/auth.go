package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sparkslk/sparks-backend/internal/database"
	"github.com/sparkslk/sparks-backend/internal/models"
	"github.com/sparkslk/sparks-backend/internal/services"
	"github.com/sparkslk/sparks-backend/pkg/utils"
)

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Phone    string `json:"phone,omitempty"`
}

type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by signup and signin.
type AuthResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	User    map[string]interface{} `json:"user,omitempty"`
	Token   string                 `json:"token,omitempty"`
}

// Signup handles registration for parents and managers. Therapists register
// through the application flow and only get an account once approved.
func Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Name, email, and password are required")
		return
	}

	role := models.Role(req.Role)
	if role == "" {
		role = models.RoleParent
	}
	if role != models.RoleParent && role != models.RoleManager {
		writeError(w, http.StatusBadRequest, "Invalid role")
		return
	}

	if err := utils.ValidatePasswordStrength(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var existingEmail string
	err := database.PostgresDB.QueryRow("SELECT email FROM users WHERE email = $1", req.Email).Scan(&existingEmail)
	if err == nil {
		writeError(w, http.StatusConflict, "User with this email already exists")
		return
	} else if err != sql.ErrNoRows {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	userID := uuid.New()
	now := time.Now()

	_, err = database.PostgresDB.Exec(`
		INSERT INTO users (id, created_at, updated_at, name, email, password_hash, role, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, userID, now, now, req.Name, req.Email, hashedPassword, role, req.Phone)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	token, err := services.CreateSession(userID, role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{
		Success: true,
		Message: "Account created successfully",
		User: map[string]interface{}{
			"id":        userID.String(),
			"name":      req.Name,
			"email":     req.Email,
			"role":      role,
			"createdAt": now,
		},
		Token: token,
	})
}

// Signin handles login for every role.
func Signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	var userID uuid.UUID
	var name, email, password string
	var role models.Role
	var createdAt time.Time

	err := database.PostgresDB.QueryRow(`
		SELECT id, created_at, name, email, password_hash, role
		FROM users WHERE email = $1
	`, req.Email).Scan(&userID, &createdAt, &name, &email, &password, &role)
	if err != nil {
		if err == sql.ErrNoRows {
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
		} else {
			writeError(w, http.StatusInternalServerError, "Database error")
		}
		return
	}

	valid, err := utils.VerifyPassword(req.Password, password)
	if err != nil || !valid {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := services.CreateSession(userID, role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "Login successful",
		User: map[string]interface{}{
			"id":        userID.String(),
			"name":      name,
			"email":     email,
			"role":      role,
			"createdAt": createdAt,
		},
		Token: token,
	})
}

// Signout invalidates the caller's session.
func Signout(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if err := services.InvalidateSession(token); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to sign out")
		return
	}
	writeSuccess(w, http.StatusOK, "Signed out", nil)
}

// Me returns the authenticated user's profile. Each call slides the session
// expiry forward, so active clients stay signed in.
func Me(w http.ResponseWriter, r *http.Request) {
	session, ok := requireAuth(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	services.RefreshSession(extractBearerToken(r.Header.Get("Authorization")))

	var name, email, phone string
	var role models.Role
	var createdAt time.Time
	err := database.PostgresDB.QueryRow(`
		SELECT name, email, role, COALESCE(phone, ''), created_at
		FROM users WHERE id = $1
	`, session.UserID).Scan(&name, &email, &role, &phone, &createdAt)
	if err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	writeSuccess(w, http.StatusOK, "", map[string]interface{}{
		"id":        session.UserID.String(),
		"name":      name,
		"email":     email,
		"role":      role,
		"phone":     phone,
		"createdAt": createdAt,
	})
}
