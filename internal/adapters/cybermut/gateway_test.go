package cybermut

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/kevin07696/cybermut-service/internal/adapters/ports"
	"github.com/kevin07696/cybermut-service/internal/domain"
	pkgerrors "github.com/kevin07696/cybermut-service/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func fixedClock() time.Time {
	return time.Date(2020, 1, 1, 10, 0, 0, 0, time.UTC)
}

func testGatewayConfig(version string) *domain.GatewayConfig {
	return &domain.GatewayConfig{
		ProtocolVersion: version,
		MerchantID:      "123456789012345",
		SiteCode:        "company_abc",
		BankVariant:     domain.BankCIC,
		SecurityKey:     testSecurityKey,
		ButtonLabel:     "Connexion sécurisée",
		DefaultLanguage: "EN",
		Languages:       DefaultLanguages,
		NotifyURL:       "https://shop.example.com/payments/cybermut/notify",
		SuccessURL:      "https://shop.example.com/payments/cybermut/success",
		ErrorURL:        "https://shop.example.com/payments/cybermut/error",
	}
}

func testOrder() *domain.Order {
	return &domain.Order{
		Reference:     "ORDER1",
		Amount:        decimal.RequireFromString("42"),
		Currency:      "EUR",
		CustomerEmail: "client@example.com",
		StoreLocale:   "fr_FR",
		BillingAddress: domain.Address{
			FirstName:   "Jean",
			LastName:    "Dupont",
			Street:      []string{"1 rue de la Paix"},
			City:        "Paris",
			Postcode:    "75002",
			CountryISO2: "FR",
		},
	}
}

func TestGateway_BuildRequest(t *testing.T) {
	tests := []struct {
		name       string
		version    string
		wantFields []string
		wantMAC    string
	}{
		{
			name:    "legacy layout",
			version: "2",
			wantFields: []string{
				"TPE", "date", "montant", "reference", "texte-libre", "version", "lgue", "societe",
				"url_retour", "url_retour_ok", "url_retour_err", "bouton", "MAC",
			},
			wantMAC: "035067216253fb15988230fb692840ef694a05db",
		},
		{
			name:    "extended layout",
			version: "3.0",
			wantFields: []string{
				"TPE", "date", "montant", "reference", "texte-libre", "version", "lgue", "societe", "mail",
				"url_retour", "url_retour_ok", "url_retour_err", "bouton", "MAC",
			},
			wantMAC: "94adb9805ed5a5fde058a50279f8d9d703915365",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := NewGateway(testGatewayConfig(tt.version), zaptest.NewLogger(t), WithClock(fixedClock))

			req, err := gw.BuildRequest(context.Background(), testOrder(), ports.StaticRequestContext{IP: "9.9.9.9"})
			require.NoError(t, err)

			assert.Equal(t, tt.wantFields, req.Fields.Names())
			assert.Equal(t, "01/01/2020:10:00:00", req.Fields.Value(FieldDate))
			assert.Equal(t, "42.00EUR", req.Fields.Value(FieldAmount))
			assert.Equal(t, "Order ORDER1", req.Fields.Value(FieldFreeText))
			assert.Equal(t, "FR", req.Fields.Value(FieldLanguage))
			assert.Equal(t, "https://shop.example.com/payments/cybermut/notify", req.Fields.Value(FieldNotifyURL))
			assert.Equal(t, tt.wantMAC, req.Fields.Value(FieldMAC))
			assert.Equal(t, "https://ssl.paiement.cic-banques.fr/paiement.cgi", req.PostURL)
			assert.False(t, req.TestMode)
			assert.Equal(t, "ORDER1", req.Reference)
		})
	}
}

func TestGateway_BuildRequest_Options(t *testing.T) {
	t.Run("description and multi-shipping reference", func(t *testing.T) {
		cfg := testGatewayConfig("3.0")
		cfg.Description = "Boutique"
		order := testOrder()
		order.RealOrderIDs = []string{"100000002", "100000003"}
		order.Amount = decimal.RequireFromString("62.756")

		req, err := NewGateway(cfg, zaptest.NewLogger(t), WithClock(fixedClock)).
			BuildRequest(context.Background(), order, nil)
		require.NoError(t, err)

		assert.Equal(t, "100000002,100000003", req.Fields.Value(FieldReference))
		assert.Equal(t, "Boutique", req.Fields.Value(FieldFreeText))
		assert.Equal(t, "62.76EUR", req.Fields.Value(FieldAmount))
	})

	t.Run("test endpoint for allowed caller", func(t *testing.T) {
		cfg := testGatewayConfig("3.0")
		cfg.BankVariant = domain.BankMonetico
		cfg.TestMode = true
		cfg.TestModeAllowedIPs = []string{"1.2.3.4"}
		gw := NewGateway(cfg, zaptest.NewLogger(t), WithClock(fixedClock))

		req, err := gw.BuildRequest(context.Background(), testOrder(), ports.StaticRequestContext{IP: "1.2.3.4"})
		require.NoError(t, err)
		assert.True(t, req.TestMode)
		assert.Equal(t, "https://p.monetico-services.com/test/paiement.cgi", req.PostURL)

		req, err = gw.BuildRequest(context.Background(), testOrder(), ports.StaticRequestContext{IP: "9.9.9.9"})
		require.NoError(t, err)
		assert.False(t, req.TestMode)
		assert.Equal(t, "https://p.monetico-services.com/paiement.cgi", req.PostURL)
	})

	t.Run("labelled strategy carries the order context", func(t *testing.T) {
		cfg := testGatewayConfig("3.0")
		cfg.MACStrategy = domain.MACStrategyLabelled

		req, err := NewGateway(cfg, zaptest.NewLogger(t), WithClock(fixedClock)).
			BuildRequest(context.Background(), testOrder(), nil)
		require.NoError(t, err)

		assert.True(t, req.Fields.Has(FieldOrderContext))
		assert.Regexp(t, "^[0-9a-f]{40}$", req.Fields.Value(FieldMAC))
	})

	t.Run("missing key aborts before signing", func(t *testing.T) {
		cfg := testGatewayConfig("3.0")
		cfg.SecurityKey = ""

		req, err := NewGateway(cfg, zaptest.NewLogger(t)).BuildRequest(context.Background(), testOrder(), nil)
		require.Error(t, err)
		assert.Nil(t, req)
		assert.True(t, domain.IsConfigurationError(err))
	})

	t.Run("invalid order", func(t *testing.T) {
		order := testOrder()
		order.Currency = ""

		_, err := NewGateway(testGatewayConfig("3.0"), zaptest.NewLogger(t)).BuildRequest(context.Background(), order, nil)
		assert.True(t, domain.IsDomainError(err, domain.ErrorCodeValidationFailed))
	})
}

func signedNotification(t *testing.T, cfg *domain.GatewayConfig, fields *domain.FieldSet) *domain.FieldSet {
	t.Helper()
	material, err := ResolveKeyMaterial(cfg)
	require.NoError(t, err)
	key, err := SigningKey(material)
	require.NoError(t, err)

	mac, err := NewMacCodec(ProfileFor(cfg), key).SignResponse(fields)
	require.NoError(t, err)

	out := fields.Clone()
	out.Set(FieldMAC, mac)
	return out
}

func TestGateway_VerifyResponse(t *testing.T) {
	tests := []struct {
		name        string
		returnCode  string
		wantOutcome domain.TransactionOutcome
		wantMessage string
	}{
		{"accepted", "paiement", domain.OutcomeAccepted, "Payment accepted by Cybermut\nNumber of authorization: 123456"},
		{"accepted test", "payetest", domain.OutcomeAcceptedTest, "Payment accepted by Cybermut"},
		{"refused", "Annulation", domain.OutcomeRefused, "Payment refused by Cybermut"},
		{"garbage", "garbage", domain.OutcomeUnknown, "Unknown Cybermut return code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testGatewayConfig("3.0")
			fields := extendedResponseFields()
			fields.Set(FieldReturnCode, tt.returnCode)

			gw := NewGateway(cfg, zaptest.NewLogger(t))
			n, err := gw.VerifyResponse(context.Background(), signedNotification(t, cfg, fields))
			require.NoError(t, err)

			assert.True(t, n.MACValid)
			assert.Equal(t, tt.wantOutcome, n.Outcome)
			assert.Equal(t, "ORDER1", n.Reference)
			assert.True(t, strings.HasPrefix(n.Message, tt.wantMessage), n.Message)
		})
	}
}

func TestGateway_VerifyResponse_RefusalAndRisk(t *testing.T) {
	tests := []struct {
		name          string
		returnCode    string
		motive        string
		status3ds     string
		wantRefusal   bool
		wantCategory  pkgerrors.ErrorCategory
		wantRetriable bool
		wantRisky     bool
	}{
		{name: "accepted low risk", returnCode: "paiement", status3ds: "1"},
		{name: "accepted high risk", returnCode: "paiement", status3ds: "4", wantRisky: true},
		{name: "accepted without 3DS", returnCode: "paiement", status3ds: "-1"},
		{
			name:          "refused by 3DS",
			returnCode:    "Annulation",
			motive:        "3DSecure",
			status3ds:     "4",
			wantRefusal:   true,
			wantCategory:  pkgerrors.CategoryAuthentication,
			wantRetriable: true,
			wantRisky:     true,
		},
		{
			name:         "refused by scoring",
			returnCode:   "Annulation",
			motive:       "scoring",
			status3ds:    "1",
			wantRefusal:  true,
			wantCategory: pkgerrors.CategoryFraud,
		},
		{
			name:         "unknown code",
			returnCode:   "garbage",
			status3ds:    "1",
			wantRefusal:  true,
			wantCategory: pkgerrors.CategoryInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testGatewayConfig("3.0")
			fields := extendedResponseFields()
			fields.Set(FieldReturnCode, tt.returnCode)
			fields.Set(FieldStatus3DS, tt.status3ds)
			if tt.motive != "" {
				fields.Set(FieldRefusalMotive, tt.motive)
			}

			n, err := NewGateway(cfg, zaptest.NewLogger(t)).VerifyResponse(context.Background(), signedNotification(t, cfg, fields))
			require.NoError(t, err)

			assert.Equal(t, tt.status3ds, n.Status3DS)
			assert.Equal(t, tt.wantRisky, n.ThreeDSRisky())
			if !tt.wantRefusal {
				assert.Nil(t, n.Refusal)
				return
			}
			require.NotNil(t, n.Refusal)
			assert.Equal(t, tt.returnCode, n.Refusal.Code)
			assert.Equal(t, tt.motive, n.Refusal.GatewayMessage)
			assert.Equal(t, tt.wantCategory, n.Refusal.Category)
			assert.Equal(t, tt.wantRetriable, n.Refusal.IsRetriable)
		})
	}
}

func TestGateway_VerifyResponse_FailsClosed(t *testing.T) {
	cfg := testGatewayConfig("3.0")
	gw := NewGateway(cfg, zaptest.NewLogger(t))
	signed := signedNotification(t, cfg, extendedResponseFields())

	t.Run("tampered amount", func(t *testing.T) {
		fields := signed.Clone()
		fields.Set(FieldAmount, "4200.00EUR")

		n, err := gw.VerifyResponse(context.Background(), fields)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrMACMismatch)
		assert.False(t, n.MACValid)
		assert.Equal(t, domain.OutcomeUnknown, n.Outcome)
	})

	t.Run("missing mac", func(t *testing.T) {
		fields := signed.Clone()
		fields.Delete(FieldMAC)

		n, err := gw.VerifyResponse(context.Background(), fields)
		assert.ErrorIs(t, err, domain.ErrMACMismatch)
		assert.Equal(t, domain.OutcomeUnknown, n.Outcome)
	})

	t.Run("lowercase mac", func(t *testing.T) {
		fields := signed.Clone()
		fields.Set(FieldMAC, strings.ToLower(fields.Value(FieldMAC)))

		n, err := gw.VerifyResponse(context.Background(), fields)
		assert.ErrorIs(t, err, domain.ErrMACMismatch)
		assert.Equal(t, domain.OutcomeUnknown, n.Outcome)
	})

	t.Run("missing required field", func(t *testing.T) {
		fields := signed.Clone()
		fields.Delete(FieldCVX)

		n, err := gw.VerifyResponse(context.Background(), fields)
		assert.True(t, domain.IsMalformedFieldError(err))
		assert.Equal(t, domain.OutcomeUnknown, n.Outcome)
	})

	t.Run("missing key", func(t *testing.T) {
		broken := testGatewayConfig("3.0")
		broken.SecurityKey = ""

		n, err := NewGateway(broken, zaptest.NewLogger(t)).VerifyResponse(context.Background(), signed)
		assert.True(t, domain.IsConfigurationError(err))
		assert.Equal(t, domain.OutcomeUnknown, n.Outcome)
	})
}

func TestGateway_VerifyResponse_Legacy(t *testing.T) {
	cfg := testGatewayConfig("2")
	cfg.SecurityKey = ""
	cfg.SHAKey = testSHAKey
	cfg.Key = testHexKey

	fields := legacyResponseFields()
	fields.Set(FieldMAC, "ED05DC9DD6067F64C2173183FA96B393D5DD77ED")

	gw := NewGateway(cfg, zaptest.NewLogger(t))
	n, err := gw.VerifyResponse(context.Background(), fields)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAccepted, n.Outcome)
	assert.Equal(t, "Payment accepted by Cybermut", n.Message)

	assert.Equal(t, "Pragma: no-cache\nContent-type : text/plain\nVersion: 1\nOK\n", gw.Acknowledge(true))
}

func TestGateway_URLs(t *testing.T) {
	cfg := testGatewayConfig("3.0")
	gw := NewGateway(cfg, zaptest.NewLogger(t))

	assert.Equal(t, cfg.SuccessURL, gw.SuccessURL())
	assert.Equal(t, cfg.ErrorURL, gw.ErrorURL())
	assert.Equal(t, cfg.NotifyURL, gw.NotifyURL())
}
