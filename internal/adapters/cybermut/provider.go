package cybermut

import (
	"context"

	"github.com/kevin07696/cybermut-service/internal/adapters/ports"
	"github.com/kevin07696/cybermut-service/internal/domain"
	"go.uber.org/zap"
)

// Provider builds a gateway from the static configuration and the key store on demand
type Provider struct {
	base   *domain.GatewayConfig
	loader *KeyLoader
	logger *zap.Logger
	opts   []Option
}

// NewProvider creates a gateway provider. A nil loader uses the keys of base as is.
func NewProvider(base *domain.GatewayConfig, loader *KeyLoader, logger *zap.Logger, opts ...Option) *Provider {
	return &Provider{
		base:   base,
		loader: loader,
		logger: logger,
		opts:   opts,
	}
}

// Config returns the merchant configuration with stored keys filled in
func (p *Provider) Config(ctx context.Context) (*domain.GatewayConfig, error) {
	if p.loader == nil {
		cfg := *p.base
		return &cfg, nil
	}
	return p.loader.Load(ctx, p.base)
}

// Gateway returns a gateway for the current configuration
func (p *Provider) Gateway(ctx context.Context) (ports.PaymentGateway, *domain.GatewayConfig, error) {
	cfg, err := p.Config(ctx)
	if err != nil {
		return nil, nil, err
	}
	return NewGateway(cfg, p.logger, p.opts...), cfg, nil
}

// CheckSigningKey reports whether a signing key can be resolved, for readiness probes
func (p *Provider) CheckSigningKey(ctx context.Context) error {
	cfg, err := p.Config(ctx)
	if err != nil {
		return err
	}
	material, err := ResolveKeyMaterial(cfg)
	if err != nil {
		return err
	}
	_, err = SigningKey(material)
	return err
}
