package signing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appraisehub/valuation-platform/internal/config"
	"github.com/appraisehub/valuation-platform/internal/infrastructure/monitoring/logging"
	"github.com/appraisehub/valuation-platform/pkg/errors"
)

func TestHMACSignerDeterministic(t *testing.T) {
	s := NewHMACSigner("test-secret")

	first, err := s.Sign(context.Background(), "abc123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first, "sig1:"))

	again, err := s.Sign(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, first, again)

	other, err := s.Sign(context.Background(), "abc124")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestHMACSignerSecretMatters(t *testing.T) {
	a, err := NewHMACSigner("secret-a").Sign(context.Background(), "abc123")
	require.NoError(t, err)
	b, err := NewHMACSigner("secret-b").Sign(context.Background(), "abc123")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHMACSignerVerify(t *testing.T) {
	s := NewHMACSigner("test-secret")
	token, err := s.Sign(context.Background(), "abc123")
	require.NoError(t, err)

	assert.True(t, s.Verify("abc123", token))
	assert.False(t, s.Verify("abc124", token))
	assert.False(t, s.Verify("abc123", "sig1:forged"))
}

func TestHMACSignerEmptyHash(t *testing.T) {
	_, err := NewHMACSigner("test-secret").Sign(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSigningFailed, errors.GetCode(err))
}

func remoteConfig(endpoint string, attempts int) config.SigningConfig {
	return config.SigningConfig{
		Endpoint:    endpoint,
		Timeout:     time.Second,
		MaxAttempts: attempts,
		BaseBackoff: time.Millisecond,
	}
}

func TestRemoteSignerSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token":"sig1:remote"}`))
	}))
	defer srv.Close()

	s := NewRemoteSigner(remoteConfig(srv.URL, 3), logging.NewNopLogger())
	token, err := s.Sign(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "sig1:remote", token)
}

func TestRemoteSignerRetriesThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"token":"sig1:late"}`))
	}))
	defer srv.Close()

	s := NewRemoteSigner(remoteConfig(srv.URL, 5), logging.NewNopLogger())
	token, err := s.Sign(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "sig1:late", token)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRemoteSignerExhaustsRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewRemoteSigner(remoteConfig(srv.URL, 3), logging.NewNopLogger())
	_, err := s.Sign(context.Background(), "abc123")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSigningFailed, errors.GetCode(err))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestNewSignerFromConfig(t *testing.T) {
	log := logging.NewNopLogger()

	local := NewSignerFromConfig(config.SigningConfig{Secret: "s"}, log)
	_, ok := local.(*HMACSigner)
	assert.True(t, ok)

	remote := NewSignerFromConfig(config.SigningConfig{Endpoint: "http://sign"}, log)
	_, ok = remote.(*RemoteSigner)
	assert.True(t, ok)
}
