package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/ergo-devnet-provisioning/interfaces"
)

// MultiStore implements interfaces.SecretStore over several backends.
// Put writes a versioned copy to every available backend; Get returns the newest
// copy found, so a backend that missed the last write cannot roll the secret back.
type MultiStore struct {
	backends []interfaces.SecretStore
	log      *slog.Logger
	now      func() time.Time
}

// NewMultiStore creates a new multi-backend escrow.
func NewMultiStore(backends []interfaces.SecretStore, logger *slog.Logger) *MultiStore {
	if logger == nil {
		logger = slog.Default()
	}

	return &MultiStore{
		backends: backends,
		log:      logger,
		now:      time.Now,
	}
}

// Get returns the newest copy of the secret among the available backends.
func (m *MultiStore) Get(ctx context.Context, name string) ([]byte, error) {
	start := time.Now()
	var (
		errs     []error
		notFound int
		newest   []byte
		version  int64
		source   string
		found    bool
	)

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable", slog.String("backend_name", backend.Name()))
			continue
		}

		blob, err := backend.Get(ctx, name)
		if err != nil {
			if errors.Is(err, interfaces.ErrContentNotFound) {
				notFound++
			}
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			m.log.Debug("Failed to fetch from backend",
				slog.String("backend_name", backend.Name()),
				slog.String("name", name),
				"err", err)
			continue
		}

		v, data := openEnvelope(blob)
		if found && v != version {
			m.log.Warn("Backends hold different versions of secret",
				slog.String("name", name),
				slog.String("backend_name", backend.Name()),
				slog.Int64("version", v),
				slog.Int64("other_version", version))
		}
		if !found || v > version {
			newest, version, source, found = data, v, backend.Name(), true
		}
	}

	if found {
		m.log.Info("Fetched escrowed secret",
			slog.String("backend_name", source),
			slog.String("name", name),
			slog.Int64("version", version),
			slog.Duration("duration", time.Since(start)))
		return newest, nil
	}

	if len(errs) > 0 && notFound == len(errs) {
		return nil, interfaces.ErrContentNotFound
	}

	m.log.Error("All backends failed to fetch secret",
		slog.String("name", name),
		slog.Int("failed_backends", len(errs)),
		slog.Duration("duration", time.Since(start)))
	return nil, fmt.Errorf("%w: all backends failed to fetch %s: %w", interfaces.ErrBackendUnavailable, name, errors.Join(errs...))
}

// Put saves the secret to all available backends. It succeeds if at least one did.
func (m *MultiStore) Put(ctx context.Context, name string, secret []byte) error {
	start := time.Now()
	var errs []error
	stored := 0
	blob := sealEnvelope(m.now(), secret)

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable", slog.String("backend_name", backend.Name()))
			continue
		}

		if err := backend.Put(ctx, name, blob); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			m.log.Warn("Failed to store to backend",
				slog.String("backend_name", backend.Name()),
				"err", err)
			continue
		}
		stored++
	}

	if stored == 0 {
		m.log.Error("All backends failed to store secret",
			slog.Int("failed_backends", len(errs)),
			slog.Duration("duration", time.Since(start)))
		return fmt.Errorf("%w: all backends failed to store %s: %w", interfaces.ErrBackendUnavailable, name, errors.Join(errs...))
	}

	m.log.Info("Escrowed secret",
		slog.String("name", name),
		slog.Int("backends", stored),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// Available checks if any backend is available.
func (m *MultiStore) Available(ctx context.Context) bool {
	for _, backend := range m.backends {
		if backend.Available(ctx) {
			return true
		}
	}
	return false
}

// Name returns the name of this backend.
func (m *MultiStore) Name() string {
	return "multi-storage"
}

// LocationURI returns a combined URI of all backends.
func (m *MultiStore) LocationURI() string {
	var locations []string
	for _, backend := range m.backends {
		locations = append(locations, backend.LocationURI())
	}
	return "multi:[" + strings.Join(locations, ",") + "]"
}
