package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"candlestand-api/internal/service"
	"candlestand-api/pkg/apierror"
	"candlestand-api/pkg/response"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// StandHandler serves the stand firmware endpoints and the stand API.
type StandHandler struct {
	stands *service.StandService
	log    *zap.Logger
}

// NewStandHandler creates a new stand handler.
func NewStandHandler(stands *service.StandService, log *zap.Logger) *StandHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &StandHandler{
		stands: stands,
		log:    log.Named("StandHandler"),
	}
}

// startupResponse is what a known stand gets back from /startup.
type startupResponse struct {
	Message  string `json:"message"`
	Price1   int64  `json:"price1"`
	Price2   int64  `json:"price2"`
	Currency int    `json:"currency"`
}

// aliveResponse is the body of /alive. Action 1 tells the stand to dispense
// the online payments summed up in Total and TotalCandles.
type aliveResponse struct {
	Action       int    `json:"action"`
	Message      string `json:"message"`
	Total        *int64 `json:"total,omitempty"`
	TotalCandles *int   `json:"totalcandles,omitempty"`
}

// Test handles GET /test
func (h *StandHandler) Test(w http.ResponseWriter, r *http.Request) {
	response.Raw(w, http.StatusOK, map[string]string{"message": "Hello, World!"})
}

// Startup handles GET /startup?serialnumber=&candlesOn=&totalcandles=
func (h *StandHandler) Startup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	serial := q.Get("serialnumber")
	candlesOn, okOn := intParam(q.Get("candlesOn"))
	totalCandles, okTotal := intParam(q.Get("totalcandles"))
	if serial == "" || !okOn || !okTotal {
		response.RawError(w, http.StatusBadRequest, "Parameters missing (1 or more): serialnumber, candlesOn, totalcandles")
		return
	}

	stand, created, err := h.stands.Register(r.Context(), serial, candlesOn, totalCandles)
	if err != nil {
		h.deviceError(w, r, err)
		return
	}

	if created {
		response.Raw(w, http.StatusOK, stand)
		return
	}
	response.Raw(w, http.StatusOK, startupResponse{
		Message:  stand.Message,
		Price1:   stand.Price1,
		Price2:   stand.Price2,
		Currency: stand.Currency,
	})
}

// Alive handles GET /alive?serialnumber=&candlesOn=&transactiontotal=
func (h *StandHandler) Alive(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	serial := q.Get("serialnumber")
	candlesOn, okOn := intParam(q.Get("candlesOn"))
	settled, okTotal := int64Param(q.Get("transactiontotal"))
	if serial == "" || !okOn || !okTotal {
		response.RawError(w, http.StatusBadRequest, "Parameters missing")
		return
	}

	result, err := h.stands.Reconcile(r.Context(), serial, candlesOn, settled)
	if err != nil {
		h.deviceError(w, r, err)
		return
	}

	body := aliveResponse{Action: result.Action, Message: "OK"}
	if result.Action == service.ActionDisplay {
		body.Total = &result.Total
		body.TotalCandles = &result.TotalCandles
	}
	response.Raw(w, http.StatusOK, body)
}

// Confirm handles GET /confirm?serialnumber=
func (h *StandHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	serial := r.URL.Query().Get("serialnumber")
	if serial == "" {
		response.RawError(w, http.StatusBadRequest, "Parameters missing")
		return
	}

	if _, err := h.stands.Confirm(r.Context(), serial); err != nil {
		h.deviceError(w, r, err)
		return
	}
	response.Raw(w, http.StatusOK, map[string]string{"message": "Transactions confirmed"})
}

// GetStand handles GET /api/v1/stands/{serial}
func (h *StandHandler) GetStand(w http.ResponseWriter, r *http.Request) {
	view, err := h.stands.GetStand(r.Context(), chi.URLParam(r, "serial"))
	if err != nil {
		h.apiError(w, r, err)
		return
	}
	response.OK(w, view)
}

// PaymentRequest is the body of POST /api/v1/stands/{serial}/payments.
type PaymentRequest struct {
	Amount  int64  `json:"amount"`
	Candles int    `json:"candles"`
	Content string `json:"content"`
}

// CreatePayment handles POST /api/v1/stands/{serial}/payments
func (h *StandHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}

	tx, err := h.stands.RecordOnlinePayment(r.Context(), chi.URLParam(r, "serial"), req.Amount, req.Candles, req.Content)
	if err != nil {
		h.apiError(w, r, err)
		return
	}
	response.Created(w, tx)
}

// deviceError answers firmware requests in their bare {"error": ...} format.
func (h *StandHandler) deviceError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := toAPIError(err)
	message := apiErr.Message
	if apiErr.StatusCode >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		message = "Internal Server Error"
	}
	response.RawError(w, apiErr.StatusCode, message)
}

func (h *StandHandler) apiError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := toAPIError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	response.Error(w, apiErr)
}

func intParam(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil
}

func int64Param(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}
