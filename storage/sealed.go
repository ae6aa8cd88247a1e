package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/ruteri/ergo-devnet-provisioning/cryptoutils"
	"github.com/ruteri/ergo-devnet-provisioning/interfaces"
)

// SealedStore encrypts secrets with a passphrase before handing them to the
// wrapped backend, so the backend only ever sees sealed blobs.
type SealedStore struct {
	backend    interfaces.SecretStore
	passphrase []byte
}

// NewSealedStore wraps backend. The passphrase must be non-empty.
func NewSealedStore(backend interfaces.SecretStore, passphrase []byte) (*SealedStore, error) {
	if len(passphrase) == 0 {
		return nil, errors.New("escrow passphrase is empty")
	}
	return &SealedStore{backend: backend, passphrase: passphrase}, nil
}

func (s *SealedStore) Put(ctx context.Context, name string, secret []byte) error {
	sealed, err := cryptoutils.SealSecret(s.passphrase, secret)
	if err != nil {
		return fmt.Errorf("failed to seal secret: %w", err)
	}
	return s.backend.Put(ctx, name, sealed)
}

func (s *SealedStore) Get(ctx context.Context, name string) ([]byte, error) {
	sealed, err := s.backend.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	secret, err := cryptoutils.OpenSecret(s.passphrase, sealed)
	if err != nil {
		return nil, fmt.Errorf("escrowed secret %s from %s: %w", name, s.backend.Name(), err)
	}
	return secret, nil
}

func (s *SealedStore) Available(ctx context.Context) bool {
	return s.backend.Available(ctx)
}

func (s *SealedStore) Name() string {
	return "sealed-" + s.backend.Name()
}

func (s *SealedStore) LocationURI() string {
	return s.backend.LocationURI()
}
