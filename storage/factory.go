package storage

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/ruteri/ergo-devnet-provisioning/interfaces"
)

// StoreFactory creates escrow backends from location URIs.
type StoreFactory struct {
	log    *slog.Logger
	getenv func(string) string
}

// NewStoreFactory creates a new factory instance. Credentials referenced by URIs
// are looked up in the process environment.
func NewStoreFactory(logger *slog.Logger) *StoreFactory {
	return &StoreFactory{
		log:    logger,
		getenv: os.Getenv,
	}
}

// StoreFor creates an escrow backend from a location URI.
// The URI format should be [scheme]://[auth@]host[:port][/path][?params]
//
// Supported schemes:
//   - file:// - Local directory
//   - s3:// - Amazon S3 or compatible object storage
//   - vault:// - HashiCorp Vault KV v2
func (sf *StoreFactory) StoreFor(uri string) (interfaces.SecretStore, error) {
	loc, err := interfaces.NewStorageBackendLocation(uri)
	if err != nil {
		return nil, err
	}

	switch {
	case loc.IsFile():
		return sf.createFileStore(loc)
	case loc.IsS3():
		return sf.createS3Store(loc, uri)
	case loc.IsVault():
		return sf.createVaultStore(loc)
	default:
		return nil, fmt.Errorf("%w: unsupported backend scheme %s", interfaces.ErrInvalidLocationURI, loc.Scheme)
	}
}

// CreateMultiStore creates an escrow writing to every backend in uris.
// Any invalid URI is an error: an escrow silently missing a backend defeats its purpose.
func (sf *StoreFactory) CreateMultiStore(uris []string) (interfaces.SecretStore, error) {
	if len(uris) == 0 {
		return nil, fmt.Errorf("%w: no escrow locations given", interfaces.ErrInvalidLocationURI)
	}
	if len(uris) == 1 {
		return sf.StoreFor(uris[0])
	}

	backends := make([]interfaces.SecretStore, 0, len(uris))
	for _, uri := range uris {
		backend, err := sf.StoreFor(uri)
		if err != nil {
			return nil, fmt.Errorf("escrow location %q: %w", redact(uri), err)
		}
		backends = append(backends, backend)
	}
	return NewMultiStore(backends, sf.log), nil
}

// CreateShamirStore creates an escrow splitting every secret across uris so that any
// threshold of them can restore it.
func (sf *StoreFactory) CreateShamirStore(uris []string, threshold int) (interfaces.SecretStore, error) {
	backends := make([]interfaces.SecretStore, 0, len(uris))
	for _, uri := range uris {
		backend, err := sf.StoreFor(uri)
		if err != nil {
			return nil, fmt.Errorf("escrow location %q: %w", redact(uri), err)
		}
		backends = append(backends, backend)
	}
	return NewShamirStore(backends, threshold, sf.log)
}

// createFileStore handles file:///absolute/path/ and file://./relative/path/.
func (sf *StoreFactory) createFileStore(loc interfaces.StorageBackendLocation) (interfaces.SecretStore, error) {
	path := loc.Path
	if loc.Host != "" {
		path = loc.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path in file URI", interfaces.ErrInvalidLocationURI)
	}

	sf.log.Debug("Creating file escrow", slog.String("path", path))
	return NewFileStore(path, sf.log)
}

// createS3Store handles s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/path/?region=us-west-2&endpoint=custom.s3.com
func (sf *StoreFactory) createS3Store(loc interfaces.StorageBackendLocation, uri string) (interfaces.SecretStore, error) {
	if loc.Host == "" {
		return nil, fmt.Errorf("%w: missing bucket in S3 URI", interfaces.ErrInvalidLocationURI)
	}

	region := loc.GetParam("region")
	if region == "" {
		region = "us-east-1"
	}

	var accessKey, secretKey string
	if u, err := url.Parse(uri); err == nil && u.User != nil {
		accessKey = u.User.Username()
		secretKey, _ = u.User.Password()
	}

	sf.log.Debug("Creating S3 escrow", slog.String("uri", redact(uri)))
	return NewS3Store(loc.Host, strings.TrimPrefix(loc.Path, "/"), region, loc.GetParam("endpoint"), accessKey, secretKey, sf.log)
}

// createVaultStore handles vault://host:port/mount/path?tls=true&token_env=VAULT_TOKEN&cert=crt.pem&key=key.pem
func (sf *StoreFactory) createVaultStore(loc interfaces.StorageBackendLocation) (interfaces.SecretStore, error) {
	if loc.Host == "" {
		return nil, fmt.Errorf("%w: missing host in Vault URI", interfaces.ErrInvalidLocationURI)
	}

	mountPath, dataPath, _ := strings.Cut(strings.TrimPrefix(loc.Path, "/"), "/")
	if mountPath == "" {
		mountPath = "secret"
	}

	scheme := "https"
	if loc.GetParam("tls") != "" && !loc.GetParamBool("tls") {
		scheme = "http"
	}
	address := fmt.Sprintf("%s://%s", scheme, loc.Host)

	tokenEnv := loc.GetParam("token_env")
	if tokenEnv == "" {
		tokenEnv = "VAULT_TOKEN"
	}
	token := sf.getenv(tokenEnv)

	var clientCert *tls.Certificate
	if certFile, keyFile := loc.GetParam("cert"), loc.GetParam("key"); certFile != "" || keyFile != "" {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load Vault client certificate: %w", err)
		}
		clientCert = &cert
	}

	if token == "" && clientCert == nil {
		sf.log.Warn("No Vault token or client certificate configured", slog.String("token_env", tokenEnv))
	}

	sf.log.Debug("Creating Vault escrow", slog.String("address", address), slog.String("mount", mountPath))
	return NewVaultStore(address, mountPath, dataPath, token, clientCert, sf.log)
}

// redact hides the password part of a URI for logs and errors.
func redact(uri string) string {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return uri
	}
	auth, host, ok := strings.Cut(rest, "@")
	if !ok {
		return uri
	}
	user, _, _ := strings.Cut(auth, ":")
	return scheme + "://" + user + ":***@" + host
}
