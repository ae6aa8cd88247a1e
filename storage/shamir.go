package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/vault/shamir"
	"github.com/ruteri/ergo-devnet-provisioning/interfaces"
	"golang.org/x/crypto/blake2b"
)

// ErrSharesUnusable is returned when fewer than threshold backends returned a share,
// or the shares do not combine into the secret that was split.
var ErrSharesUnusable = errors.New("secret shares missing or inconsistent")

// ShamirStore splits every secret into one Shamir share per backend. Any threshold
// of the backends can restore it; fewer learn nothing about it.
type ShamirStore struct {
	backends  []interfaces.SecretStore
	threshold int
	log       *slog.Logger
	now       func() time.Time
}

// NewShamirStore requires 2 <= threshold <= len(backends) <= 255.
func NewShamirStore(backends []interfaces.SecretStore, threshold int, log *slog.Logger) (*ShamirStore, error) {
	if len(backends) < 2 || len(backends) > 255 {
		return nil, fmt.Errorf("shamir escrow needs between 2 and 255 backends, got %d", len(backends))
	}
	if threshold < 2 || threshold > len(backends) {
		return nil, fmt.Errorf("threshold must be between 2 and %d, got %d", len(backends), threshold)
	}
	if log == nil {
		log = slog.Default()
	}
	return &ShamirStore{backends: backends, threshold: threshold, log: log, now: time.Now}, nil
}

// Put splits the secret and stores share i in backend i. Every backend must accept
// its share: a missing share silently lowers the margin of the threshold.
func (s *ShamirStore) Put(ctx context.Context, name string, secret []byte) error {
	start := time.Now()

	// A digest of the secret travels inside the split payload, so combining
	// unrelated or too few shares is detected instead of returning garbage.
	sum := blake2b.Sum256(secret)
	payload := append(bytes.Clone(secret), sum[:]...)

	shares, err := shamir.Split(payload, len(s.backends), s.threshold)
	if err != nil {
		return fmt.Errorf("failed to split secret: %w", err)
	}

	// Shares of one split carry the same version, so Get never mixes them with
	// shares a backend kept from an earlier write.
	written := s.now()
	var errs []error
	for i, backend := range s.backends {
		if err := backend.Put(ctx, name, sealEnvelope(written, shares[i])); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
		}
	}
	if len(errs) > 0 {
		s.log.Error("Failed to store secret shares",
			slog.String("name", name),
			slog.Int("failed_backends", len(errs)))
		return fmt.Errorf("%w: %w", interfaces.ErrBackendUnavailable, errors.Join(errs...))
	}

	s.log.Info("Escrowed secret shares",
		slog.String("name", name),
		slog.Int("shares", len(shares)),
		slog.Int("threshold", s.threshold),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// Get reads a share from every backend and restores the newest version for which
// some threshold of shares combines into a secret matching its digest.
func (s *ShamirStore) Get(ctx context.Context, name string) ([]byte, error) {
	var (
		errs     []error
		notFound int
		got      int
	)
	byVersion := make(map[int64][][]byte)
	for _, backend := range s.backends {
		blob, err := backend.Get(ctx, name)
		if err != nil {
			if errors.Is(err, interfaces.ErrContentNotFound) {
				notFound++
			}
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			continue
		}
		version, share := openEnvelope(blob)
		byVersion[version] = append(byVersion[version], share)
		got++
	}

	if got < s.threshold {
		if notFound == len(s.backends) {
			return nil, interfaces.ErrContentNotFound
		}
		return nil, fmt.Errorf("%w: got %d of %d: %w", ErrSharesUnusable, got, s.threshold, errors.Join(errs...))
	}

	versions := make([]int64, 0, len(byVersion))
	for v := range byVersion {
		versions = append(versions, v)
	}
	slices.Sort(versions)
	slices.Reverse(versions)

	for _, version := range versions {
		shares := byVersion[version]
		if len(shares) < s.threshold {
			s.log.Debug("Not enough shares of version",
				slog.String("name", name),
				slog.Int64("version", version),
				slog.Int("shares", len(shares)))
			continue
		}
		if secret, ok := s.restore(shares); ok {
			if len(versions) > 1 || got < len(s.backends) {
				s.log.Warn("Restored secret from partial shares",
					slog.String("name", name),
					slog.Int64("version", version),
					slog.Int("shares", len(shares)),
					slog.Int("backends", len(s.backends)))
			}
			return secret, nil
		}
	}
	return nil, fmt.Errorf("%w: no %d of %d shares restore the secret", ErrSharesUnusable, s.threshold, got)
}

// restore tries every threshold-sized subset of shares until one combines into a
// payload whose trailing digest matches the secret.
func (s *ShamirStore) restore(shares [][]byte) ([]byte, bool) {
	subset := make([][]byte, s.threshold)
	var try func(from, depth int) ([]byte, bool)
	try = func(from, depth int) ([]byte, bool) {
		if depth == s.threshold {
			return openPayload(subset)
		}
		for i := from; i <= len(shares)-(s.threshold-depth); i++ {
			subset[depth] = shares[i]
			if secret, ok := try(i+1, depth+1); ok {
				return secret, true
			}
		}
		return nil, false
	}
	return try(0, 0)
}

func openPayload(shares [][]byte) ([]byte, bool) {
	payload, err := shamir.Combine(shares)
	if err != nil || len(payload) < blake2b.Size256 {
		return nil, false
	}
	secret, digest := payload[:len(payload)-blake2b.Size256], payload[len(payload)-blake2b.Size256:]
	if sum := blake2b.Sum256(secret); !bytes.Equal(sum[:], digest) {
		return nil, false
	}
	return secret, true
}

// Available reports whether at least threshold backends are reachable.
func (s *ShamirStore) Available(ctx context.Context) bool {
	up := 0
	for _, backend := range s.backends {
		if backend.Available(ctx) {
			up++
		}
	}
	return up >= s.threshold
}

func (s *ShamirStore) Name() string {
	return fmt.Sprintf("shamir-%d-of-%d", s.threshold, len(s.backends))
}

func (s *ShamirStore) LocationURI() string {
	locations := make([]string, 0, len(s.backends))
	for _, backend := range s.backends {
		locations = append(locations, backend.LocationURI())
	}
	return fmt.Sprintf("shamir+%d:[%s]", s.threshold, strings.Join(locations, ","))
}
