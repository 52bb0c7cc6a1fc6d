// Package main provides the cybermut-admin tool for managing the merchant key
// and checking MAC computations against the configured terminal.
package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/kevin07696/cybermut-service/internal/adapters/cybermut"
	"github.com/kevin07696/cybermut-service/internal/adapters/ports"
	"github.com/kevin07696/cybermut-service/internal/adapters/secrets"
	"github.com/kevin07696/cybermut-service/internal/config"
	"github.com/kevin07696/cybermut-service/internal/domain"
	"github.com/kevin07696/cybermut-service/pkg/logging"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CLI represents the root CLI structure
type CLI struct {
	Config   string `name:"config" env:"CONFIG_FILE" help:"Path to the YAML configuration file"`
	LogLevel string `name:"log-level" env:"LOG_LEVEL" default:"warn" help:"Log level"`

	ImportKey ImportKeyCmd `cmd:"" help:"Import the merchant key from an exported key file"`
	DeleteKey DeleteKeyCmd `cmd:"" help:"Delete the stored merchant key"`
	Sign      SignCmd      `cmd:"" help:"Build and sign the payment request of an order"`
	Verify    VerifyCmd    `cmd:"" help:"Verify a notification and print its outcome"`

	out io.Writer `kong:"-"`
}

// session is the configured key store and gateway provider of one command run
type session struct {
	cfg      *config.Config
	logger   *zap.Logger
	loader   *cybermut.KeyLoader
	provider *cybermut.Provider
	close    func() error
}

func (c *CLI) open(ctx context.Context) (*session, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Environment, c.LogLevel)
	if err != nil {
		return nil, err
	}

	store, closeStore, err := secrets.NewFromConfig(ctx, cfg.KeyStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open key store: %w", err)
	}

	loader := cybermut.NewKeyLoader(store, cybermut.KeyPaths{
		SecurityKey:  cfg.KeyStore.Paths.SecurityKey,
		EncryptedKey: cfg.KeyStore.Paths.EncryptedKey,
		SHAKey:       cfg.KeyStore.Paths.SHAKey,
		Key:          cfg.KeyStore.Paths.Key,
	}, logger)

	return &session{
		cfg:      cfg,
		logger:   logger,
		loader:   loader,
		provider: cybermut.NewProvider(cfg.Gateway(cybermut.DefaultLanguages), loader, logger),
		close:    closeStore,
	}, nil
}

func (c *CLI) run(fn func(ctx context.Context, s *session) error) error {
	ctx := context.Background()
	s, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = s.close()
		_ = s.logger.Sync()
	}()
	return fn(ctx, s)
}

// ImportKeyCmd imports an exported key file
type ImportKeyCmd struct {
	CLI  *CLI   `kong:"-"`
	File string `arg:"" help:"Exported key file, '-' for stdin"`
}

// Run executes the import-key command
func (i *ImportKeyCmd) Run() error {
	return i.CLI.run(func(ctx context.Context, s *session) error {
		var r io.Reader = os.Stdin
		if i.File != "-" {
			f, err := os.Open(i.File)
			if err != nil {
				return fmt.Errorf("failed to open key file: %w", err)
			}
			defer f.Close()
			r = f
		}

		if err := s.loader.ImportKeyFile(ctx, r); err != nil {
			return err
		}
		fmt.Fprintln(i.CLI.out, "key imported")
		return nil
	})
}

// DeleteKeyCmd deletes the stored encrypted key
type DeleteKeyCmd struct {
	CLI *CLI `kong:"-"`
}

// Run executes the delete-key command
func (d *DeleteKeyCmd) Run() error {
	return d.CLI.run(func(ctx context.Context, s *session) error {
		if err := s.loader.DeleteEncryptedKey(ctx); err != nil {
			return err
		}
		fmt.Fprintln(d.CLI.out, "key deleted")
		return nil
	})
}

// SignCmd prints the signed payment request of an order
type SignCmd struct {
	CLI       *CLI   `kong:"-"`
	Reference string `name:"reference" required:"" help:"Order reference"`
	Amount    string `name:"amount" required:"" help:"Order amount, e.g. 42.00"`
	Currency  string `name:"currency" default:"EUR" help:"ISO 4217 currency"`
	Email     string `name:"email" help:"Customer email"`
	Locale    string `name:"locale" help:"Store locale, e.g. fr_FR"`
	ClientIP  string `name:"client-ip" help:"Caller IP used for test mode gating"`
}

// Run executes the sign command
func (c *SignCmd) Run() error {
	amount, err := decimal.NewFromString(c.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", c.Amount, err)
	}

	return c.CLI.run(func(ctx context.Context, s *session) error {
		gateway, _, err := s.provider.Gateway(ctx)
		if err != nil {
			return err
		}

		order := &domain.Order{
			Reference:     c.Reference,
			Amount:        amount,
			Currency:      strings.ToUpper(c.Currency),
			CustomerEmail: c.Email,
			StoreLocale:   c.Locale,
		}
		req, err := gateway.BuildRequest(ctx, order, ports.StaticRequestContext{IP: c.ClientIP})
		if err != nil {
			return err
		}

		fmt.Fprintf(c.CLI.out, "POST %s\n", req.PostURL)
		for _, name := range req.Fields.Names() {
			fmt.Fprintf(c.CLI.out, "%s=%s\n", name, req.Fields.Value(name))
		}
		return nil
	})
}

// VerifyCmd verifies notification fields
type VerifyCmd struct {
	CLI    *CLI     `kong:"-"`
	Form   string   `name:"form" help:"URL-encoded notification body"`
	Fields []string `arg:"" optional:"" help:"Notification fields as name=value"`
}

// Run executes the verify command. It fails when the MAC does not authenticate the fields.
func (v *VerifyCmd) Run() error {
	values := url.Values{}
	if v.Form != "" {
		parsed, err := url.ParseQuery(v.Form)
		if err != nil {
			return fmt.Errorf("invalid form: %w", err)
		}
		values = parsed
	}
	for _, pair := range v.Fields {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("field %q is not name=value", pair)
		}
		values.Set(name, value)
	}

	return v.CLI.run(func(ctx context.Context, s *session) error {
		gateway, _, err := s.provider.Gateway(ctx)
		if err != nil {
			return err
		}

		notification, verifyErr := gateway.VerifyResponse(ctx, domain.FieldSetFromValues(values))

		fmt.Fprintf(v.CLI.out, "mac_valid=%t\n", notification.MACValid)
		fmt.Fprintf(v.CLI.out, "outcome=%s\n", notification.Outcome)
		if notification.Message != "" {
			fmt.Fprintln(v.CLI.out, notification.Message)
		}
		fmt.Fprint(v.CLI.out, gateway.Acknowledge(notification.MACValid))

		return verifyErr
	})
}
