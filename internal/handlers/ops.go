package handlers

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/sparkslk/sparks-backend/internal/middleware"
	"github.com/sparkslk/sparks-backend/internal/models"
)

type UnblockIPRequest struct {
	IPAddress string `json:"ipAddress"`
}

// UnblockIP lets a manager lift a rate-limit block on an IP.
// PUT /api/manager/unblock-ip
func UnblockIP(w http.ResponseWriter, r *http.Request) {
	_, ok := requireRole(w, r, models.RoleManager)
	if !ok {
		return
	}

	var req UnblockIPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ip := strings.TrimSpace(req.IPAddress)
	if net.ParseIP(ip) == nil {
		writeError(w, http.StatusBadRequest, "A valid IP address is required")
		return
	}

	blocked, err := middleware.IsIPBlocked(ip)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check IP")
		return
	}
	if !blocked {
		writeSuccess(w, http.StatusOK, "IP was not blocked", nil)
		return
	}

	if err := middleware.UnblockIP(ip); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to unblock IP")
		return
	}

	writeSuccess(w, http.StatusOK, "IP unblocked", nil)
}
