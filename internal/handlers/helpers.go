package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sparkslk/sparks-backend/internal/models"
	"github.com/sparkslk/sparks-backend/internal/services"
)

// Response is the generic success/message envelope used by most endpoints.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// extractBearerToken pulls the token out of an "Authorization: Bearer <token>" header.
func extractBearerToken(header string) string {
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// requireAuth validates the session and returns its data. Returns ok=false
// if the request carries no valid session.
func requireAuth(r *http.Request) (services.SessionData, bool) {
	token := extractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return services.SessionData{}, false
	}
	data, ok, err := services.ValidateSession(token)
	if err != nil || !ok {
		return services.SessionData{}, false
	}
	return data, true
}

// requireRole validates the session and checks the caller's role. When the
// check fails it writes the response itself and returns ok=false.
func requireRole(w http.ResponseWriter, r *http.Request, roles ...models.Role) (services.SessionData, bool) {
	data, ok := requireAuth(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return services.SessionData{}, false
	}
	for _, role := range roles {
		if data.Role == role {
			return data, true
		}
	}
	writeError(w, http.StatusForbidden, "You do not have permission to perform this action")
	return services.SessionData{}, false
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: false, Message: message})
}

func writeSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, Response{Success: true, Message: message, Data: data})
}
