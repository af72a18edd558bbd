package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/eventman/internal/checkin"
	"github.com/hitoshi/eventman/internal/middleware"
	"github.com/hitoshi/eventman/internal/model"
)

// CheckinServiceInterface はチェックインハンドラーが必要とするサービスインターフェース。
type CheckinServiceInterface interface {
	// CheckInAttendee はチェックインコードで参加者をチェックインする。
	CheckInAttendee(ctx context.Context, token, callerUserID string) (*checkin.Result, error)
}

// CheckinHandler は会場チェックインのHTTPハンドラー。
type CheckinHandler struct {
	service CheckinServiceInterface
}

// NewCheckinHandler はCheckinHandlerを生成する。
func NewCheckinHandler(service CheckinServiceInterface) *CheckinHandler {
	return &CheckinHandler{
		service: service,
	}
}

// checkinRequest はチェックインリクエストのボディ。
type checkinRequest struct {
	Token string `json:"token"`
}

// checkinResponse はチェックイン結果のAPIレスポンス。
// 既にチェックイン済みの場合は200でsuccess=falseを返す。
type checkinResponse struct {
	Success      bool                 `json:"success"`
	Message      string               `json:"message"`
	Registration registrationResponse `json:"registration"`
}

// CheckIn は会場チェックインを処理する。
// POST /api/checkin
func (h *CheckinHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	var req checkinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestResponse(w)
		return
	}

	if req.Token == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "チェックインコードは必須です。",
			Category: "validation",
			Action:   "tokenを指定してください。",
		})
		return
	}

	result, err := h.service.CheckInAttendee(r.Context(), req.Token, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(checkinResponse{
		Success:      result.Success,
		Message:      result.Message,
		Registration: toRegistrationResponse(result.Registration, false),
	})
}
