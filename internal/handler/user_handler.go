package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/eventman/internal/middleware"
	"github.com/hitoshi/eventman/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// SetRole は対象ユーザーのロールを変更する（管理者のみ）。
	SetRole(ctx context.Context, targetUserID string, role model.Role, callerUserID string) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// setRoleRequest はロール変更リクエストのボディ。
type setRoleRequest struct {
	Role string `json:"role"`
}

// SetRole は対象ユーザーのロール変更を処理する（管理者のみ）。
// PUT /api/users/:id/role
func (h *UserHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	targetUserID := chi.URLParam(r, "id")

	var req setRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestResponse(w)
		return
	}

	role := model.Role(req.Role)
	if role != model.RoleUser && role != model.RoleAdmin {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "無効なロールです。",
			Category: "validation",
			Action:   "roleにはuserまたはadminを指定してください。",
		})
		return
	}

	if err := h.service.SetRole(r.Context(), targetUserID, role, userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
