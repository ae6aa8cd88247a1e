package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ruteri/ergo-devnet-provisioning/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockSecretStore implements interfaces.SecretStore for testing
type MockSecretStore struct {
	mock.Mock
	name string
}

func (m *MockSecretStore) Put(ctx context.Context, name string, secret []byte) error {
	args := m.Called(ctx, name, secret)
	return args.Error(0)
}

func (m *MockSecretStore) Get(ctx context.Context, name string) ([]byte, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockSecretStore) Available(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockSecretStore) Name() string {
	return m.name
}

func (m *MockSecretStore) LocationURI() string {
	return "mock:" + m.name
}

func TestMultiStore_Available(t *testing.T) {
	tests := []struct {
		name     string
		backends []bool
		expected bool
	}{
		{
			name:     "all backends available",
			backends: []bool{true, true, true},
			expected: true,
		},
		{
			name:     "some backends available",
			backends: []bool{false, true, false},
			expected: true,
		},
		{
			name:     "no backends available",
			backends: []bool{false, false, false},
			expected: false,
		},
		{
			name:     "no backends",
			backends: []bool{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var backends []interfaces.SecretStore
			for i, available := range tt.backends {
				mockStore := &MockSecretStore{name: fmt.Sprintf("mock-%d", i)}
				mockStore.On("Available", mock.Anything).Return(available).Maybe()
				backends = append(backends, mockStore)
			}

			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			multi := NewMultiStore(backends, logger)

			assert.Equal(t, tt.expected, multi.Available(context.Background()))
			for _, backend := range backends {
				backend.(*MockSecretStore).AssertExpectations(t)
			}
		})
	}
}

func TestMultiStore_Get(t *testing.T) {
	const name = "ergo-1.api.key"
	testData := []byte("hello")
	testErr := errors.New("test error")
	older := time.Unix(1_700_000_000, 0)
	newer := older.Add(time.Minute)

	tests := []struct {
		name          string
		setupMocks    func() []interfaces.SecretStore
		expectedData  []byte
		expectedError error
	}{
		{
			name: "first backend successful",
			setupMocks: func() []interfaces.SecretStore {
				mock1 := &MockSecretStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Get", mock.Anything, name).Return(testData, nil)

				mock2 := &MockSecretStore{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Get", mock.Anything, name).Return(nil, interfaces.ErrContentNotFound)

				return []interfaces.SecretStore{mock1, mock2}
			},
			expectedData: testData,
		},
		{
			name: "stale first copy loses to newer copy",
			setupMocks: func() []interfaces.SecretStore {
				mock1 := &MockSecretStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Get", mock.Anything, name).Return(sealEnvelope(older, []byte("stale")), nil)

				mock2 := &MockSecretStore{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Get", mock.Anything, name).Return(sealEnvelope(newer, testData), nil)

				return []interfaces.SecretStore{mock1, mock2}
			},
			expectedData: testData,
		},
		{
			name: "newest copy wins when listed first",
			setupMocks: func() []interfaces.SecretStore {
				mock1 := &MockSecretStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Get", mock.Anything, name).Return(sealEnvelope(newer, testData), nil)

				mock2 := &MockSecretStore{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Get", mock.Anything, name).Return(sealEnvelope(older, []byte("stale")), nil)

				mock3 := &MockSecretStore{name: "mock-C"}
				mock3.On("Available", mock.Anything).Return(true)
				mock3.On("Get", mock.Anything, name).Return([]byte("unversioned"), nil)

				return []interfaces.SecretStore{mock1, mock2, mock3}
			},
			expectedData: testData,
		},
		{
			name: "first backend fails, second succeeds",
			setupMocks: func() []interfaces.SecretStore {
				mock1 := &MockSecretStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Get", mock.Anything, name).Return(nil, testErr)

				mock2 := &MockSecretStore{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Get", mock.Anything, name).Return(testData, nil)

				return []interfaces.SecretStore{mock1, mock2}
			},
			expectedData: testData,
		},
		{
			name: "not found everywhere",
			setupMocks: func() []interfaces.SecretStore {
				mock1 := &MockSecretStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Get", mock.Anything, name).Return(nil, interfaces.ErrContentNotFound)

				mock2 := &MockSecretStore{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Get", mock.Anything, name).Return(nil, interfaces.ErrContentNotFound)

				return []interfaces.SecretStore{mock1, mock2}
			},
			expectedError: interfaces.ErrContentNotFound,
		},
		{
			name: "all backends fail",
			setupMocks: func() []interfaces.SecretStore {
				mock1 := &MockSecretStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Get", mock.Anything, name).Return(nil, interfaces.ErrContentNotFound)

				mock2 := &MockSecretStore{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Get", mock.Anything, name).Return(nil, testErr)

				return []interfaces.SecretStore{mock1, mock2}
			},
			expectedError: interfaces.ErrBackendUnavailable,
		},
		{
			name: "unavailable backends are skipped",
			setupMocks: func() []interfaces.SecretStore {
				mock1 := &MockSecretStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(false)

				mock2 := &MockSecretStore{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Get", mock.Anything, name).Return(testData, nil)

				return []interfaces.SecretStore{mock1, mock2}
			},
			expectedData: testData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backends := tt.setupMocks()
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			multi := NewMultiStore(backends, logger)

			data, err := multi.Get(context.Background(), name)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expectedData, data)

			for _, backend := range backends {
				backend.(*MockSecretStore).AssertExpectations(t)
			}
		})
	}
}

func TestMultiStore_Put(t *testing.T) {
	const name = "ergo-1.api.key"
	testData := []byte("hello")
	testErr := errors.New("test error")
	written := time.Unix(1_700_000_000, 0)
	stored := sealEnvelope(written, testData)

	tests := []struct {
		name          string
		setupMocks    func() []interfaces.SecretStore
		expectedError bool
	}{
		{
			name: "all backends successful",
			setupMocks: func() []interfaces.SecretStore {
				mock1 := &MockSecretStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Put", mock.Anything, name, stored).Return(nil)

				mock2 := &MockSecretStore{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Put", mock.Anything, name, stored).Return(nil)

				return []interfaces.SecretStore{mock1, mock2}
			},
		},
		{
			name: "some backends fail",
			setupMocks: func() []interfaces.SecretStore {
				mock1 := &MockSecretStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Put", mock.Anything, name, stored).Return(nil)

				mock2 := &MockSecretStore{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Put", mock.Anything, name, stored).Return(testErr)

				return []interfaces.SecretStore{mock1, mock2}
			},
		},
		{
			name: "all backends fail",
			setupMocks: func() []interfaces.SecretStore {
				mock1 := &MockSecretStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Put", mock.Anything, name, stored).Return(testErr)

				mock2 := &MockSecretStore{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(false)

				return []interfaces.SecretStore{mock1, mock2}
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backends := tt.setupMocks()
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			multi := NewMultiStore(backends, logger)
			multi.now = func() time.Time { return written }

			err := multi.Put(context.Background(), name, testData)
			if tt.expectedError {
				assert.ErrorIs(t, err, interfaces.ErrBackendUnavailable)
			} else {
				assert.NoError(t, err)
			}

			for _, backend := range backends {
				backend.(*MockSecretStore).AssertExpectations(t)
			}
		})
	}
}
