// Package auth guards the API with a single static bearer token. The engine
// models one logical user on one device, so there is no identity lookup,
// just a shared-secret check.
package auth

import (
	"crypto/subtle"
	"errors"

	"github.com/yourname/fastingtracker/internal"
)

type Provider interface {
	Authenticate(token string) error
}

type StaticTokenProvider struct {
	token  string
	logger internal.Logger
}

// NewStaticTokenProvider builds a provider around the configured token. An
// empty token disables the check entirely (local development).
func NewStaticTokenProvider(token string, logger internal.Logger) *StaticTokenProvider {
	if token == "" {
		logger.Warn("auth: no token configured, API is open")
	}
	return &StaticTokenProvider{token: token, logger: logger}
}

func (p *StaticTokenProvider) Authenticate(token string) error {
	if p.token == "" {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(p.token)) == 1 {
		return nil
	}
	return errors.New("invalid token")
}

var _ Provider = (*StaticTokenProvider)(nil)
