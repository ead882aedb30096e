// Package turncred mints coturn-compatible TURN REST credentials:
//
//	username   = <unix_expiry_timestamp>:<user_id>
//	credential = base64(hmac_sha1(shared_secret, username))
//
// The signaling core never calls this service; browsers fetch credentials
// over HTTP before opening a peer connection.
package turncred

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"

	"signalrelay/internal/metrics"
)

var (
	ErrSecretNotConfigured = errors.New("TURN secret not configured")
	ErrInvalidUserID       = errors.New("user_id must be non-empty and must not contain ':'")
)

type ICredentialService interface {
	// ICEServers returns the TURN servers with fresh credentials for userID.
	ICEServers(userID string) ([]webrtc.ICEServer, error)
}

type Config struct {
	// SecretB64 is the base64 shared secret configured in coturn
	// (static-auth-secret). Empty disables issuing.
	SecretB64 string
	URIs      []string
	TTL       time.Duration
	Now       func() time.Time
}

type credentialService struct {
	secret []byte
	uris   []string
	ttl    time.Duration
	now    func() time.Time
}

var _ ICredentialService = (*credentialService)(nil)

func NewCredentialService(cfg Config) (ICredentialService, error) {
	var secret []byte
	if cfg.SecretB64 != "" {
		var err error
		secret, err = base64.StdEncoding.DecodeString(cfg.SecretB64)
		if err != nil {
			return nil, fmt.Errorf("decode TURN secret: %w", err)
		}
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &credentialService{
		secret: secret,
		uris:   append([]string(nil), cfg.URIs...),
		ttl:    cfg.TTL,
		now:    cfg.Now,
	}, nil
}

func (svc *credentialService) ICEServers(userID string) ([]webrtc.ICEServer, error) {
	if len(svc.secret) == 0 {
		return nil, ErrSecretNotConfigured
	}
	if userID == "" || strings.Contains(userID, ":") {
		return nil, ErrInvalidUserID
	}

	expiry := svc.now().UTC().Add(svc.ttl).Unix()
	username := fmt.Sprintf("%d:%s", expiry, userID)
	metrics.CredentialsIssued.Inc()

	return []webrtc.ICEServer{{
		URLs:       append([]string{}, svc.uris...),
		Username:   username,
		Credential: signUsername(svc.secret, username),
	}}, nil
}

func signUsername(secret []byte, username string) string {
	mac := hmac.New(sha1.New, secret)
	_, _ = mac.Write([]byte(username))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
