// Package signing provides the document-signature implementations behind the
// compiler's Signer port: a local HMAC credential for single-tenant
// deployments and a remote signing-service client with bounded retry.
package signing

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/appraisehub/valuation-platform/internal/config"
	"github.com/appraisehub/valuation-platform/internal/domain/report"
	"github.com/appraisehub/valuation-platform/internal/infrastructure/monitoring/logging"
	"github.com/appraisehub/valuation-platform/pkg/errors"
)

// tokenPrefix versions the signature format so a future scheme change is
// detectable from the token itself.
const tokenPrefix = "sig1:"

// ─────────────────────────────────────────────────────────────────────────────
// HMACSigner
// ─────────────────────────────────────────────────────────────────────────────

// HMACSigner derives signature tokens locally with HMAC-SHA256 over the
// document hash.  The token is a pure function of hash and secret, which
// keeps compilation reproducible.
type HMACSigner struct {
	secret []byte
}

// NewHMACSigner constructs an HMACSigner.  An empty secret is rejected at
// config validation; this constructor trusts its input.
func NewHMACSigner(secret string) *HMACSigner {
	return &HMACSigner{secret: []byte(secret)}
}

// Sign implements report.Signer.
func (s *HMACSigner) Sign(_ context.Context, documentHash string) (string, error) {
	if documentHash == "" {
		return "", errors.New(errors.ErrCodeSigningFailed, "document hash is empty")
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(documentHash))
	return tokenPrefix + hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify reports whether token is a valid signature for documentHash under
// this signer's credential.
func (s *HMACSigner) Verify(documentHash, token string) bool {
	expected, err := s.Sign(context.Background(), documentHash)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(token))
}

// ─────────────────────────────────────────────────────────────────────────────
// RemoteSigner
// ─────────────────────────────────────────────────────────────────────────────

// RemoteSigner calls an external signing service.  Transient failures are
// retried with bounded exponential backoff; after exhaustion the error
// surfaces as ErrCodeSigningFailed with the last cause attached.
type RemoteSigner struct {
	endpoint    string
	client      *http.Client
	maxAttempts int
	baseBackoff time.Duration
	log         logging.Logger
}

// NewRemoteSigner constructs a RemoteSigner from config.
func NewRemoteSigner(cfg config.SigningConfig, log logging.Logger) *RemoteSigner {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	backoff := cfg.BaseBackoff
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RemoteSigner{
		endpoint:    cfg.Endpoint,
		client:      &http.Client{Timeout: timeout},
		maxAttempts: maxAttempts,
		baseBackoff: backoff,
		log:         log.Named("signing"),
	}
}

type signRequest struct {
	DocumentHash string `json:"document_hash"`
}

type signResponse struct {
	Token string `json:"token"`
}

// Sign implements report.Signer.
func (s *RemoteSigner) Sign(ctx context.Context, documentHash string) (string, error) {
	if documentHash == "" {
		return "", errors.New(errors.ErrCodeSigningFailed, "document hash is empty")
	}

	var lastErr error
	backoff := s.baseBackoff
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		token, err := s.signOnce(ctx, documentHash)
		if err == nil {
			return token, nil
		}
		lastErr = err
		s.log.Warn("signing attempt failed",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", s.maxAttempts),
			logging.Err(err))

		if attempt == s.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", errors.Wrap(ctx.Err(), errors.ErrCodeSigningFailed, "signing cancelled")
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return "", errors.Wrap(lastErr, errors.ErrCodeSigningFailed,
		fmt.Sprintf("signing service failed after %d attempts", s.maxAttempts))
}

func (s *RemoteSigner) signOnce(ctx context.Context, documentHash string) (string, error) {
	body, err := json.Marshal(signRequest{DocumentHash: documentHash})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("signing service returned %d: %s", resp.StatusCode, payload)
	}

	var out signResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("signing service returned an empty token")
	}
	return out.Token, nil
}

// NewSignerFromConfig picks the implementation: remote when an endpoint is
// configured, local HMAC otherwise.
func NewSignerFromConfig(cfg config.SigningConfig, log logging.Logger) report.Signer {
	if cfg.Endpoint != "" {
		return NewRemoteSigner(cfg, log)
	}
	return NewHMACSigner(cfg.Secret)
}
