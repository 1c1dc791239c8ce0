package handler

import (
	"log/slog"
	"net/http"

	"github.com/solspore/gaming/internal/domain"
)

// AdminHandler serves the admin user-management and stats endpoints. Route
// registration wraps every method in the admin-role middleware.
type AdminHandler struct {
	users  UserService
	logger *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(users UserService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{users: users, logger: logger}
}

// ListUsers returns users for the admin dashboard.
// GET /api/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context(), parseListOpts(r))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// UpdateUser changes a user's role.
// PUT /api/admin/users/{id}
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	var req struct {
		Role string `json:"role"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.users.UpdateRole(r.Context(), id, domain.Role(req.Role)); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "role": req.Role})
}

// DeleteUser removes a user.
// DELETE /api/admin/users/{id}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if err := h.users.DeleteUser(r.Context(), id); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// Stats returns platform-wide counters.
// GET /api/admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.users.Stats(r.Context())
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
