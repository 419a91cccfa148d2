package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/subfusion/checkout/internal/checkout/app"
	"github.com/subfusion/checkout/internal/checkout/core/domain/entity"
	"github.com/subfusion/checkout/internal/checkout/core/domain/fault"
)

const maxBodyBytes = 1 << 20

type SessionCreator interface {
	Create(ctx context.Context, items []entity.LineItem, customer entity.Customer) (entity.GatewaySession, error)
}

type CallbackReconciler interface {
	Success(ctx context.Context, cb app.SuccessCallback) entity.Outcome
	Fail(ctx context.Context, cb app.Callback) entity.Outcome
	Cancel(ctx context.Context, cb app.Callback) entity.Outcome
	Notify(ctx context.Context, ipn app.IPN)
}

type OrderPlacer interface {
	Place(ctx context.Context, req app.ManualOrder) (entity.OrderSnapshot, entity.Delivery, error)
}

type HandlerConfig struct {
	Brand          string
	CurrencySymbol string
}

// Handler exposes checkout over HTTP. It owns decoding and the error to
// status mapping; every decision is made by the services behind it.
type Handler struct {
	sessions   SessionCreator
	reconciler CallbackReconciler
	orders     OrderPlacer
	cfg        HandlerConfig
}

func NewHandler(sessions SessionCreator, reconciler CallbackReconciler, orders OrderPlacer, cfg HandlerConfig) *Handler {
	if cfg.Brand == "" {
		cfg.Brand = "SubFusion"
	}
	return &Handler{
		sessions:   sessions,
		reconciler: reconciler,
		orders:     orders,
		cfg:        cfg,
	}
}

// CreateOrder accepts a manual-payment order and emails its receipt.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fault.CodeInvalidJSON, err.Error())
		return
	}

	order, d, err := h.orders.Place(r.Context(), app.ManualOrder{
		Items:     mapItems(req.Items),
		Customer:  req.Customer.toEntity(),
		PayMethod: req.PayMethod,
		TxID:      req.TxID,
	})
	if err != nil {
		slog.WarnContext(r.Context(), "order rejected", "pay", req.PayMethod, "error", err)
		writeFault(w, err)
		return
	}

	writeJSON(w, http.StatusOK, OrderResponse{
		OK:      true,
		OrderID: order.ID,
		Total:   order.Total,
		Emailed: d.Sent,
	})
}

// CreatePayment opens a hosted checkout session. Live sessions return the
// gateway's own response untouched so the storefront can follow its
// GatewayPageURL.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fault.CodeInvalidJSON, err.Error())
		return
	}

	session, err := h.sessions.Create(r.Context(), mapItems(req.Items), req.Customer.toEntity())
	if err != nil {
		writeFault(w, err)
		return
	}

	if session.Demo {
		writeJSON(w, http.StatusOK, DemoPaymentResponse{Demo: true, DemoURL: session.CheckoutURL, TranID: session.TxnID})
		return
	}
	if len(session.Raw) > 0 {
		writeRawJSON(w, http.StatusOK, session.Raw)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "SUCCESS", "GatewayPageURL": session.CheckoutURL, "tran_id": session.TxnID})
}

// PaymentSuccess reconciles the success redirect and renders the
// confirmation page only for a validated payment.
func (h *Handler) PaymentSuccess(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeText(w, http.StatusBadRequest, "Payment could not be verified.")
		return
	}

	out := h.reconciler.Success(r.Context(), app.SuccessCallback{
		Status: strings.ToUpper(strings.TrimSpace(r.Form.Get("status"))),
		ValID:  r.Form.Get("val_id"),
		TxnID:  r.Form.Get("tran_id"),
		Token:  r.Form.Get("value_a"),
	})
	if out.State != entity.StateValidated {
		writeText(w, statusFor(out.Err), "Payment could not be verified ("+out.Reason+").")
		return
	}

	page, err := renderConfirmation(h.cfg.Brand, h.cfg.CurrencySymbol, out)
	if err != nil {
		slog.ErrorContext(r.Context(), "confirmation page render failed", "txn_id", out.Order.ID, "error", err)
		writeText(w, http.StatusOK, "Payment successful. Order "+out.Order.ID+".")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

func (h *Handler) PaymentFail(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	h.reconciler.Fail(r.Context(), callbackFrom(r))
	writeText(w, http.StatusBadRequest, "Payment Failed")
}

func (h *Handler) PaymentCancel(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	h.reconciler.Cancel(r.Context(), callbackFrom(r))
	writeText(w, http.StatusBadRequest, "Payment Cancelled")
}

// PaymentIPN acknowledges every notification; it never finalizes an order.
func (h *Handler) PaymentIPN(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		slog.WarnContext(r.Context(), "unparseable ipn body", "error", err)
	}
	h.reconciler.Notify(r.Context(), app.IPN{
		TxnID:  r.Form.Get("tran_id"),
		ValID:  r.Form.Get("val_id"),
		Status: r.Form.Get("status"),
		Amount: r.Form.Get("amount"),
	})
	writeJSON(w, http.StatusOK, AckResponse{OK: true})
}

func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "ok")
}

func callbackFrom(r *http.Request) app.Callback {
	return app.Callback{
		TxnID:  r.Form.Get("tran_id"),
		Status: r.Form.Get("status"),
		Error:  r.Form.Get("error"),
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}
