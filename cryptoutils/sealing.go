package cryptoutils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	sealVersion  byte = 1
	sealSaltSize      = 16
	sealKeySize       = 32
)

// ErrSealedDataInvalid is returned when sealed data is truncated, tampered with,
// or was sealed with a different passphrase.
var ErrSealedDataInvalid = errors.New("sealed data invalid or passphrase incorrect")

// SealSecret encrypts data with a key derived from passphrase using Argon2id.
// A fresh salt and nonce are generated for every call.
//
// Format: [version (1 byte)][salt (16 bytes)][nonce (12 bytes)][AES-GCM ciphertext]
func SealSecret(passphrase, data []byte) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, errors.New("empty passphrase")
	}

	salt := make([]byte, sealSaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	aesGCM, err := sealCipher(passphrase, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	header := make([]byte, 0, 1+sealSaltSize+len(nonce))
	header = append(header, sealVersion)
	header = append(header, salt...)
	header = append(header, nonce...)

	// The header is authenticated as additional data.
	return aesGCM.Seal(header, nonce, data, header), nil
}

// OpenSecret reverses SealSecret.
func OpenSecret(passphrase, sealed []byte) ([]byte, error) {
	if len(sealed) < 1+sealSaltSize || sealed[0] != sealVersion {
		return nil, ErrSealedDataInvalid
	}
	salt := sealed[1 : 1+sealSaltSize]

	aesGCM, err := sealCipher(passphrase, salt)
	if err != nil {
		return nil, err
	}

	headerLen := 1 + sealSaltSize + aesGCM.NonceSize()
	if len(sealed) < headerLen+aesGCM.Overhead() {
		return nil, ErrSealedDataInvalid
	}
	header := sealed[:headerLen]
	nonce := sealed[1+sealSaltSize : headerLen]

	data, err := aesGCM.Open(nil, nonce, sealed[headerLen:], header)
	if err != nil {
		return nil, ErrSealedDataInvalid
	}
	return data, nil
}

func sealCipher(passphrase, salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(passphrase, salt, 1, 64*1024, 4, sealKeySize)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}
