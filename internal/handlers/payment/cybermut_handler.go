package payment

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"html/template"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/kevin07696/cybermut-service/internal/adapters/ports"
	"github.com/kevin07696/cybermut-service/internal/domain"
	"github.com/kevin07696/cybermut-service/internal/middleware"
	"github.com/kevin07696/cybermut-service/pkg/observability"
	"go.uber.org/zap"
)

// AutoSubmitScript submits the payment form as soon as the page loads
const AutoSubmitScript = `document.getElementById("cybermut-form").submit();`

// AutoSubmitScriptHash returns the CSP source expression allowing AutoSubmitScript
func AutoSubmitScriptHash() string {
	sum := sha256.Sum256([]byte(AutoSubmitScript))
	return "'sha256-" + base64.StdEncoding.EncodeToString(sum[:]) + "'"
}

// GatewayProvider builds the payment gateway for the current merchant configuration
type GatewayProvider interface {
	Gateway(ctx context.Context) (ports.PaymentGateway, *domain.GatewayConfig, error)
}

// CybermutHandler serves the customer redirect, the bank notification and the
// customer return pages
type CybermutHandler struct {
	provider   GatewayProvider
	orders     ports.OrderReader
	recorder   ports.OutcomeRecorder
	logger     *zap.Logger
	trustProxy bool
}

// NewCybermutHandler creates a new Cybermut handler
func NewCybermutHandler(
	provider GatewayProvider,
	orders ports.OrderReader,
	recorder ports.OutcomeRecorder,
	logger *zap.Logger,
	trustProxy bool,
) *CybermutHandler {
	return &CybermutHandler{
		provider:   provider,
		orders:     orders,
		recorder:   recorder,
		logger:     logger,
		trustProxy: trustProxy,
	}
}

// formField is one hidden input of the auto-submit form
type formField struct {
	Name  string
	Value string
}

// Redirect renders the auto-submit form handing the customer over to the bank
// Endpoint: GET /payments/cybermut/redirect?order=100000001
func (h *CybermutHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	requestID := chimiddleware.GetReqID(r.Context())
	if requestID == "" {
		requestID = uuid.New().String()
	}
	w.Header().Set("X-Request-ID", requestID)
	logger := h.logger.With(zap.String("request_id", requestID))

	reference := r.URL.Query().Get("order")
	if reference == "" {
		logger.Warn("Redirect request missing order parameter")
		http.Error(w, "order parameter is required", http.StatusBadRequest)
		return
	}

	order, err := h.orders.GetOrder(r.Context(), reference)
	if err != nil {
		if domain.IsNotFoundError(err) {
			logger.Warn("Order not found for redirect", zap.String("reference", reference))
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}
		logger.Error("Failed to load order", zap.String("reference", reference), zap.Error(err))
		h.renderPage(w, http.StatusInternalServerError, errorPageTemplate, pageData{Message: "The payment could not be started."})
		return
	}

	gateway, cfg, err := h.provider.Gateway(r.Context())
	if err != nil {
		logger.Error("Failed to load gateway configuration", zap.Error(err))
		h.renderPage(w, http.StatusServiceUnavailable, errorPageTemplate, pageData{Message: "The payment could not be started."})
		return
	}

	reqCtx := middleware.NewRequestContext(r, h.trustProxy)
	req, err := gateway.BuildRequest(r.Context(), order, reqCtx)
	if err != nil {
		observability.RecordPaymentRequest(string(cfg.BankVariant), cfg.Version(), false, "failed")

		status := http.StatusInternalServerError
		switch {
		case domain.IsConfigurationError(err):
			status = http.StatusServiceUnavailable
		case domain.IsDomainError(err, domain.ErrorCodeValidationFailed),
			domain.IsDomainError(err, domain.ErrorCodeValidationAmountInvalid):
			status = http.StatusBadRequest
		}

		logger.Error("Failed to build payment request",
			zap.String("reference", reference),
			zap.Error(err),
		)
		h.renderPage(w, status, errorPageTemplate, pageData{Message: "The payment could not be started."})
		return
	}

	observability.RecordPaymentRequest(string(cfg.BankVariant), cfg.Version(), req.TestMode, "signed")

	fields := make([]formField, 0, req.Fields.Len())
	for _, name := range req.Fields.Names() {
		fields = append(fields, formField{Name: name, Value: req.Fields.Value(name)})
	}

	w.Header().Set("Cache-Control", "no-store")
	h.renderPage(w, http.StatusOK, redirectTemplate, pageData{
		PostURL: req.PostURL,
		Fields:  fields,
		Button:  cfg.ButtonLabel,
		Script:  template.JS(AutoSubmitScript),
	})
}

// Notify receives the server-to-server payment notification. The body returned is
// the plaintext acknowledgement the bank expects; it only reflects MAC validity.
// Endpoint: POST|GET /payments/cybermut/notify
func (h *CybermutHandler) Notify(w http.ResponseWriter, r *http.Request) {
	clientIP := middleware.ClientIP(r, h.trustProxy)

	if err := r.ParseForm(); err != nil {
		h.logger.Warn("Failed to parse notification", zap.String("client_ip", clientIP), zap.Error(err))
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	gateway, cfg, err := h.provider.Gateway(r.Context())
	if err != nil {
		h.logger.Error("Failed to load gateway configuration", zap.Error(err))
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	// r.Form holds body parameters before query string ones, which keeps the
	// GET fallback some terminals still use working.
	fields := domain.FieldSetFromValues(r.Form)

	notification, err := gateway.VerifyResponse(r.Context(), fields)
	if err != nil && domain.IsConfigurationError(err) {
		h.logger.Error("Cannot verify notification without signing key", zap.Error(err))
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	if err != nil || !notification.MACValid {
		reason := "mismatch"
		if domain.IsDomainError(err, domain.ErrorCodeMACMismatch) {
			if detail, ok := domainDetail(err, "reason"); ok {
				reason = detail
			}
		} else if domain.IsMalformedFieldError(err) {
			reason = "malformed"
		}

		observability.RecordMACMismatch(string(cfg.BankVariant), reason)
		observability.RecordNotification(string(cfg.BankVariant), domain.OutcomeUnknown.String(), false)
		h.logger.Warn("Rejected notification",
			zap.String("reference", notification.Reference),
			zap.String("client_ip", clientIP),
			zap.String("reason", reason),
		)
		h.writeAcknowledgement(w, gateway.Acknowledge(false))
		return
	}

	observability.RecordNotification(string(cfg.BankVariant), notification.Outcome.String(), true)
	if refusal := notification.Refusal; refusal != nil {
		observability.RecordRefusal(string(cfg.BankVariant), string(refusal.Category), refusal.IsRetriable)
		h.logger.Info("Payment not accepted",
			zap.String("reference", notification.Reference),
			zap.String("return_code", refusal.Code),
			zap.String("motive", refusal.GatewayMessage),
			zap.String("category", string(refusal.Category)),
			zap.Bool("retriable", refusal.IsRetriable),
		)
	}

	if err := h.recorder.RecordOutcome(r.Context(), notification); err != nil {
		if !domain.IsNotFoundError(err) {
			h.logger.Error("Failed to record notification outcome",
				zap.String("reference", notification.Reference),
				zap.Error(err),
			)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		h.logger.Warn("Notification for unknown order",
			zap.String("reference", notification.Reference),
			zap.String("outcome", notification.Outcome.String()),
		)
	}

	h.writeAcknowledgement(w, gateway.Acknowledge(true))
}

// Success is the page the customer lands on after a completed payment
// Endpoint: GET /payments/cybermut/success
func (h *CybermutHandler) Success(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, http.StatusOK, successPageTemplate, pageData{
		Message: "Thank you. Your payment has been received and your order is being processed.",
	})
}

// Error is the page the customer lands on after a refused or cancelled payment
// Endpoint: GET /payments/cybermut/error
func (h *CybermutHandler) Error(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, http.StatusOK, errorPageTemplate, pageData{
		Message: "Your payment was not completed. No amount has been charged.",
	})
}

func (h *CybermutHandler) writeAcknowledgement(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		h.logger.Warn("Failed to write acknowledgement", zap.Error(err))
	}
}

// pageData feeds the HTML templates
type pageData struct {
	PostURL string
	Fields  []formField
	Button  string
	Script  template.JS
	Message string
}

func (h *CybermutHandler) renderPage(w http.ResponseWriter, status int, tmpl *template.Template, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	if err := tmpl.Execute(w, data); err != nil {
		h.logger.Error("Failed to render template",
			zap.String("template", tmpl.Name()),
			zap.Error(err),
		)
	}
}

func domainDetail(err error, key string) (string, bool) {
	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) || domainErr.Details == nil {
		return "", false
	}
	v, ok := domainErr.Details[key].(string)
	return v, ok
}

var redirectTemplate = template.Must(template.New("redirect").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Redirecting to the payment page</title>
</head>
<body>
<p>You will be redirected to the secure payment page in a few seconds.</p>
<form id="cybermut-form" method="post" action="{{.PostURL}}">
{{range .Fields}}<input type="hidden" name="{{.Name}}" value="{{.Value}}">
{{end}}<noscript><button type="submit">{{if .Button}}{{.Button}}{{else}}Continue to payment{{end}}</button></noscript>
</form>
<script>{{.Script}}</script>
</body>
</html>
`))

var successPageTemplate = template.Must(template.New("success").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Payment received</title>
</head>
<body>
<h1>Payment received</h1>
<p>{{.Message}}</p>
</body>
</html>
`))

var errorPageTemplate = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Payment not completed</title>
</head>
<body>
<h1>Payment not completed</h1>
<p>{{.Message}}</p>
</body>
</html>
`))
