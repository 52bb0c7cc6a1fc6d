package cybermut

import (
	"context"
	"time"

	"github.com/kevin07696/cybermut-service/internal/adapters/ports"
	"github.com/kevin07696/cybermut-service/internal/domain"
	"go.uber.org/zap"
)

// DateLayout is the gateway date format (dd/mm/YYYY:HH:MM:SS)
const DateLayout = "02/01/2006:15:04:05"

// Option customizes a gateway
type Option func(*gateway)

// WithClock replaces the clock used for the request date
func WithClock(now func() time.Time) Option {
	return func(g *gateway) {
		g.now = now
	}
}

// gateway implements the PaymentGateway port for one merchant configuration
type gateway struct {
	config  *domain.GatewayConfig
	profile ProtocolProfile
	logger  *zap.Logger
	now     func() time.Time
}

// NewGateway creates a Cybermut/Monetico gateway. Key material is resolved on
// every call so a key imported at runtime is picked up by the next request.
func NewGateway(config *domain.GatewayConfig, logger *zap.Logger, opts ...Option) ports.PaymentGateway {
	g := &gateway{
		config:  config,
		profile: ProfileFor(config),
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// codec resolves the signing key and returns a codec for the configured profile
func (g *gateway) codec() (*MacCodec, error) {
	material, err := ResolveKeyMaterial(g.config)
	if err != nil {
		return nil, err
	}
	key, err := SigningKey(material)
	if err != nil {
		return nil, err
	}
	return NewMacCodec(g.profile, key), nil
}

// BuildRequest assembles and signs the payment request fields for an order
func (g *gateway) BuildRequest(ctx context.Context, order *domain.Order, reqCtx ports.RequestContext) (*ports.PaymentRequest, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}

	codec, err := g.codec()
	if err != nil {
		g.logger.Error("Cannot sign payment request",
			zap.String("reference", order.PaymentReference()),
			zap.Error(err),
		)
		return nil, err
	}

	reference := order.PaymentReference()
	description := g.config.Description
	if description == "" {
		description = "Order " + reference
	}

	fields := domain.NewFieldSet()
	fields.Set(FieldTPE, g.config.MerchantID)
	fields.Set(FieldDate, g.now().Format(DateLayout))
	fields.Set(FieldAmount, order.Amount.StringFixed(2)+order.Currency)
	fields.Set(FieldReference, reference)
	fields.Set(FieldFreeText, description)
	fields.Set(FieldVersion, g.config.Version())
	fields.Set(FieldLanguage, ResolveLanguage(g.config, order.StoreLocale))
	fields.Set(FieldSiteCode, g.config.SiteCode)

	labelled := g.profile.Strategy == domain.MACStrategyLabelled
	if g.config.IsExtended() || labelled {
		fields.Set(FieldEmail, order.CustomerEmail)
	}
	if labelled {
		orderContext, err := EncodeOrderContext(order)
		if err != nil {
			return nil, domain.WrapError(domain.ErrorCodeInternalError, "failed to encode order context", err)
		}
		fields.Set(FieldOrderContext, orderContext)
	}

	fields.Set(FieldNotifyURL, g.config.NotifyURL)
	fields.Set(FieldSuccessURL, g.config.SuccessURL)
	fields.Set(FieldErrorURL, g.config.ErrorURL)
	fields.Set(FieldButton, g.config.ButtonLabel)

	signed, err := codec.SealRequest(fields)
	if err != nil {
		return nil, err
	}
	fields.Set(FieldMAC, signed.MAC)

	clientIP := ""
	if reqCtx != nil {
		clientIP = reqCtx.ClientIP()
	}
	postURL, testMode := PostURL(g.config, clientIP)

	g.logger.Info("Built Cybermut payment request",
		zap.String("reference", reference),
		zap.String("amount", fields.Value(FieldAmount)),
		zap.String("profile", g.profile.Name),
		zap.Bool("test_mode", testMode),
	)

	return &ports.PaymentRequest{
		PostURL:   postURL,
		Fields:    fields,
		Reference: reference,
		TestMode:  testMode,
	}, nil
}

// VerifyResponse authenticates a notification and classifies its return code.
// Anything short of a matching MAC leaves the outcome Unknown.
func (g *gateway) VerifyResponse(ctx context.Context, fields *domain.FieldSet) (*domain.Notification, error) {
	notification := &domain.Notification{
		Reference:  fields.Value(FieldReference),
		ReturnCode: fields.Value(FieldReturnCode),
		Outcome:    domain.OutcomeUnknown,
		Fields:     fields,
		Status3DS:  fields.Value(FieldStatus3DS),
	}

	codec, err := g.codec()
	if err != nil {
		g.logger.Error("Cannot verify notification",
			zap.String("reference", notification.Reference),
			zap.Error(err),
		)
		return notification, err
	}

	supplied, ok := fields.Get(FieldMAC)
	if !ok || supplied == "" {
		g.logger.Warn("Notification without MAC",
			zap.String("reference", notification.Reference),
		)
		return notification, domain.NewMACMismatchError(notification.Reference).WithDetail("reason", "missing")
	}

	if g.profile.Strategy == domain.MACStrategyPositional {
		for _, name := range g.profile.ResponseRequired {
			if !fields.Has(name) {
				return notification, domain.NewMalformedFieldError(name)
			}
		}
	}

	valid, err := codec.VerifyResponse(fields, supplied)
	if err != nil {
		return notification, err
	}
	if !valid {
		g.logger.Warn("Notification MAC mismatch",
			zap.String("reference", notification.Reference),
		)
		return notification, domain.NewMACMismatchError(notification.Reference)
	}

	notification.MACValid = true
	info := GetReturnCode(notification.ReturnCode)
	notification.Outcome = info.Outcome
	notification.Message = OutcomeMessage(g.config, notification.Outcome, fields)
	if !info.IsApproved {
		notification.Refusal = info.ToPaymentError(fields.Value(FieldRefusalMotive))
	}

	g.logger.Info("Verified Cybermut notification",
		zap.String("reference", notification.Reference),
		zap.String("return_code", notification.ReturnCode),
		zap.String("outcome", notification.Outcome.String()),
		zap.String("status3ds", notification.Status3DS),
	)

	return notification, nil
}

// Acknowledge renders the body returned to the bank
func (g *gateway) Acknowledge(macValid bool) string {
	return Acknowledgement(g.config, macValid)
}

// SuccessURL implements ports.PaymentGateway
func (g *gateway) SuccessURL() string {
	return g.config.SuccessURL
}

// ErrorURL implements ports.PaymentGateway
func (g *gateway) ErrorURL() string {
	return g.config.ErrorURL
}

// NotifyURL implements ports.PaymentGateway
func (g *gateway) NotifyURL() string {
	return g.config.NotifyURL
}
