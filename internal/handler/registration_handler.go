package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/eventman/internal/middleware"
	"github.com/hitoshi/eventman/internal/model"
	"github.com/hitoshi/eventman/internal/repository"
)

// RegistrationServiceInterface は登録ハンドラーが必要とするサービスインターフェース。
type RegistrationServiceInterface interface {
	// Register はイベントへの参加登録を行う。
	Register(ctx context.Context, eventID, attendeeName, attendeeEmail, callerUserID string) (*model.Registration, error)
	// Cancel は参加登録をキャンセルする。
	Cancel(ctx context.Context, registrationID, callerUserID string) error
	// ListMine は呼び出しユーザーの全登録をイベント情報付きで返す。
	ListMine(ctx context.Context, callerUserID string) ([]repository.RegistrationWithEvent, error)
	// ListForEvent はイベントの全登録を返す（主催者のみ）。
	ListForEvent(ctx context.Context, eventID, callerUserID string) ([]*model.Registration, error)
	// CheckRegistration は呼び出しユーザーの確定済み登録を返す。なければnil。
	CheckRegistration(ctx context.Context, eventID, callerUserID string) (*model.Registration, error)
}

// RegistrationHandler は参加登録のHTTPハンドラー。
type RegistrationHandler struct {
	service RegistrationServiceInterface
}

// NewRegistrationHandler はRegistrationHandlerを生成する。
func NewRegistrationHandler(service RegistrationServiceInterface) *RegistrationHandler {
	return &RegistrationHandler{
		service: service,
	}
}

// registerRequest は参加登録リクエストのボディ。
type registerRequest struct {
	AttendeeName  string `json:"attendee_name"`
	AttendeeEmail string `json:"attendee_email"`
}

// registrationResponse は登録情報のAPIレスポンス。
// チェックインコードは登録者本人向けのレスポンスにのみ含まれる。
type registrationResponse struct {
	ID            string     `json:"id"`
	EventID       string     `json:"event_id"`
	AttendeeName  string     `json:"attendee_name"`
	AttendeeEmail string     `json:"attendee_email"`
	Token         string     `json:"token,omitempty"`
	Status        string     `json:"status"`
	CheckedIn     bool       `json:"checked_in"`
	CheckedInAt   *time.Time `json:"checked_in_at,omitempty"`
	RegisteredAt  time.Time  `json:"registered_at"`
}

// registrationWithEventResponse は登録とイベント情報を結合したAPIレスポンス。
type registrationWithEventResponse struct {
	registrationResponse
	Event eventResponse `json:"event"`
}

// Register は参加登録を処理する。
// POST /api/events/:id/registrations
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	eventID := chi.URLParam(r, "id")

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestResponse(w)
		return
	}

	if req.AttendeeName == "" || req.AttendeeEmail == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "参加者名とメールアドレスは必須です。",
			Category: "validation",
			Action:   "attendee_nameとattendee_emailを指定してください。",
		})
		return
	}

	reg, err := h.service.Register(r.Context(), eventID, req.AttendeeName, req.AttendeeEmail, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toRegistrationResponse(reg, true))
}

// Cancel は参加登録のキャンセルを処理する。
// DELETE /api/registrations/:id
func (h *RegistrationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	registrationID := chi.URLParam(r, "id")

	if err := h.service.Cancel(r.Context(), registrationID, userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListMyRegistrations は自分の登録一覧をイベント情報付きで返す。
// GET /api/registrations
func (h *RegistrationHandler) ListMyRegistrations(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	results, err := h.service.ListMine(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]registrationWithEventResponse, 0, len(results))
	for i := range results {
		responses = append(responses, registrationWithEventResponse{
			registrationResponse: toRegistrationResponse(&results[i].Registration, true),
			Event:                toEventResponse(&results[i].Event),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

// ListEventRegistrations はイベントの参加登録一覧を返す（主催者のみ）。
// GET /api/events/:id/registrations
func (h *RegistrationHandler) ListEventRegistrations(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	eventID := chi.URLParam(r, "id")

	regs, err := h.service.ListForEvent(r.Context(), eventID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]registrationResponse, 0, len(regs))
	for _, reg := range regs {
		responses = append(responses, toRegistrationResponse(reg, false))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

// CheckRegistration は自分のイベントへの登録状況を返す。
// GET /api/events/:id/registration
// 確定済みの登録がない場合は {"registered": false} を返す。
func (h *RegistrationHandler) CheckRegistration(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	eventID := chi.URLParam(r, "id")

	reg, err := h.service.CheckRegistration(r.Context(), eventID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if reg == nil {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"registered": false,
		})
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"registered":   true,
		"registration": toRegistrationResponse(reg, true),
	})
}

// toRegistrationResponse はmodel.RegistrationからAPIレスポンスに変換する。
// includeTokenがfalseの場合、チェックインコードを含めない（主催者向け一覧など）。
func toRegistrationResponse(reg *model.Registration, includeToken bool) registrationResponse {
	resp := registrationResponse{
		ID:            reg.ID,
		EventID:       reg.EventID,
		AttendeeName:  reg.AttendeeName,
		AttendeeEmail: reg.AttendeeEmail,
		Status:        string(reg.Status),
		CheckedIn:     reg.CheckedIn,
		CheckedInAt:   reg.CheckedInAt,
		RegisteredAt:  reg.RegisteredAt,
	}
	if includeToken {
		resp.Token = reg.Token
	}
	return resp
}
