package jwt

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goAccess/identity"
	"github.com/MrEthical07/goAccess/internal"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const secretSize = 32

// Config defines token lifetimes, rotation policy and binding behavior.
//
// Config instances are intended to be configured during initialization and then
// treated as immutable.
type Config struct {
	Issuer   string
	Audience string

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// RotationInterval is the period between key rotations. Each key verifies
	// tokens for twice this interval after it was created.
	RotationInterval time.Duration
	RotationEnabled  bool

	BindingEnabled bool
	// BindingSecret seeds the device-binding HMAC key. When empty a random key
	// is generated per process.
	BindingSecret []byte

	// AllowMissingKID lets tokens without a kid header verify against the
	// current key. Off by default.
	AllowMissingKID bool
	Leeway          time.Duration

	// Now overrides the clock. Defaults to time.Now.
	Now    func() time.Time
	Logger *zap.Logger
	// OnRotate, when set, runs after every rotation with the new key and the
	// kids pruned in the same pass. It must not call back into the Manager.
	OnRotate func(key SigningKey, pruned []string)
}

// ValidationResult is the outcome of ValidateToken. Err is one of the package
// sentinels when Valid is false.
type ValidationResult struct {
	Valid  bool
	Claims *Claims
	Err    error
}

// RefreshResult is the outcome of RefreshAccessToken.
type RefreshResult struct {
	Success     bool
	AccessToken string
	ExpiresIn   time.Duration
	Claims      *Claims
	Err         error
}

// Manager issues, verifies, rotates and revokes tokens.
//
// Manager is safe for concurrent use. Rotation may run concurrently with
// issuance and verification.
type Manager struct {
	cfg        Config
	keys       *KeyStore
	revoked    *RevocationList
	bindings   *BindingRegistry
	bindingKey []byte
	parser     *jwt.Parser
	now        func() time.Time
	log        *zap.Logger

	rotateMu sync.Mutex
}

// NewManager validates cfg and creates a Manager with a freshly generated
// current signing key.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("access TTL must be > 0")
	}
	if cfg.RefreshTTL <= 0 {
		return nil, errors.New("refresh TTL must be > 0")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.RotationEnabled {
		if cfg.RotationInterval <= 0 {
			return nil, errors.New("rotation interval must be > 0 when rotation is enabled")
		}
		// A key verifies for 2x the interval, so a token outliving one interval
		// could outlive the key that signed it.
		if cfg.AccessTTL > cfg.RotationInterval || cfg.RefreshTTL > cfg.RotationInterval {
			return nil, errors.New("token TTLs must not exceed the rotation interval")
		}
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	cfg.Audience = strings.TrimSpace(cfg.Audience)
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	bindingKey, err := deriveBindingKey(cfg.BindingSecret)
	if err != nil {
		return nil, fmt.Errorf("derive binding key: %w", err)
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(cfg.Now),
		jwt.WithExpirationRequired(),
	}
	if cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		options = append(options, jwt.WithAudience(cfg.Audience))
	}

	m := &Manager{
		cfg:        cfg,
		keys:       NewKeyStore(cfg.Now),
		revoked:    NewRevocationList(),
		bindings:   NewBindingRegistry(),
		bindingKey: bindingKey,
		parser:     jwt.NewParser(options...),
		now:        cfg.Now,
		log:        cfg.Logger,
	}
	if _, err := m.RotateKeys(); err != nil {
		return nil, err
	}
	return m, nil
}

// AccessTTL returns the configured access-token lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.cfg.AccessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (m *Manager) RefreshTTL() time.Duration { return m.cfg.RefreshTTL }

// Keys exposes the manager's key store for inspection.
func (m *Manager) Keys() *KeyStore { return m.keys }

// GenerateAccessToken signs an access token for user in sessionID under the
// current key. When device is non-nil and binding is enabled the token carries a
// device binding and its hash.
func (m *Manager) GenerateAccessToken(user identity.UserProfile, sessionID string, device *identity.DeviceInfo) (string, error) {
	key, err := m.signingKey()
	if err != nil {
		return "", err
	}
	claims, err := m.newClaims(user, sessionID, device, TokenUseAccess, m.cfg.AccessTTL)
	if err != nil {
		return "", err
	}
	return m.sign(claims, key)
}

// GenerateRefreshToken signs a refresh token under the longest-lived active key.
func (m *Manager) GenerateRefreshToken(user identity.UserProfile, sessionID string, device *identity.DeviceInfo) (string, error) {
	if _, err := m.signingKey(); err != nil {
		return "", err
	}
	key, ok := m.keys.Longest()
	if !ok {
		return "", ErrNoActiveKey
	}
	claims, err := m.newClaims(user, sessionID, device, TokenUseRefresh, m.cfg.RefreshTTL)
	if err != nil {
		return "", err
	}
	return m.sign(claims, key)
}

func (m *Manager) newClaims(user identity.UserProfile, sessionID string, device *identity.DeviceInfo, use string, ttl time.Duration) (*Claims, error) {
	if strings.TrimSpace(user.ID) == "" {
		return nil, ErrMissingSubject
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrMissingSessionID
	}
	classification := user.Classification
	if classification == "" {
		classification = identity.ClassificationOpen
	}
	if !classification.Valid() {
		return nil, ErrInvalidClassification
	}

	now := m.now()
	claims := &Claims{
		SessionID:      sessionID,
		Roles:          append([]string(nil), user.Roles...),
		Permissions:    append([]string(nil), user.Permissions...),
		Classification: classification,
		TokenUse:       use,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    m.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	if m.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.cfg.Audience}
	}
	if device != nil && m.cfg.BindingEnabled {
		claims.DeviceBinding = newDeviceBinding(device, now)
		claims.BindingHash = bindingHash(m.bindingKey, device.DeviceID, device.Fingerprint, sessionID)
	}
	return claims, nil
}

func (m *Manager) sign(claims *Claims, key SigningKey) (string, error) {
	claims.KID = key.KID
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = key.KID
	signed, err := token.SignedString(key.Secret)
	if err != nil {
		return "", err
	}
	if claims.DeviceBinding != nil {
		m.bindings.Put(claims.ID, *claims.DeviceBinding, m.remaining(claims))
	}
	return signed, nil
}

// signingKey returns the current key, rotating first when it has lapsed.
func (m *Manager) signingKey() (SigningKey, error) {
	if key, ok := m.keys.Current(); ok {
		return key, nil
	}
	m.log.Warn("current signing key lapsed, rotating on demand")
	return m.RotateKeys()
}

// ValidateToken verifies token and, when binding is enabled and device is
// non-nil, its device binding. Checks run in a fixed order: revocation, format,
// signing key, signature, expiry, required claims, binding.
func (m *Manager) ValidateToken(token string, device *identity.DeviceInfo) ValidationResult {
	claims, err := m.verify(token)
	if err != nil {
		return ValidationResult{Err: err}
	}
	if device != nil && m.cfg.BindingEnabled && claims.DeviceBinding != nil {
		if err := checkBinding(m.bindingKey, claims, device); err != nil {
			return ValidationResult{Claims: claims, Err: err}
		}
	}
	return ValidationResult{Valid: true, Claims: claims}
}

func (m *Manager) verify(token string) (*Claims, error) {
	if m.revoked.Contains(token) {
		return nil, ErrTokenRevoked
	}
	if strings.Count(token, ".") != 2 {
		return nil, ErrInvalidFormat
	}
	claims := &Claims{}
	if _, err := m.parser.ParseWithClaims(token, claims, m.keyFunc); err != nil {
		return nil, classifyParseError(err)
	}
	if !claims.hasRequired() {
		return nil, ErrMissingClaims
	}
	if !claims.Classification.Valid() {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

func (m *Manager) keyFunc(t *jwt.Token) (interface{}, error) {
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		if !m.cfg.AllowMissingKID {
			return nil, ErrUnknownSigningKey
		}
		key, ok := m.keys.Current()
		if !ok {
			return nil, ErrUnknownSigningKey
		}
		return key.Secret, nil
	}
	key, ok := m.keys.Get(kid)
	if !ok {
		return nil, ErrUnknownSigningKey
	}
	return key.Secret, nil
}

// classifyParseError maps parser failures onto the package sentinels.
func classifyParseError(err error) error {
	switch {
	case errors.Is(err, ErrUnknownSigningKey):
		return ErrUnknownSigningKey
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrInvalidFormat
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return ErrMissingClaims
	default:
		return ErrInvalidClaims
	}
}

// RefreshAccessToken verifies refreshToken and issues a new access token for
// the same subject, session, grants and device binding. The new token is
// signed under the current key, which may differ from the refresh token's key.
func (m *Manager) RefreshAccessToken(refreshToken string) RefreshResult {
	rc, err := m.verify(refreshToken)
	if err != nil {
		return RefreshResult{Err: err}
	}
	if !rc.IsRefresh() {
		return RefreshResult{Err: ErrNotRefreshToken}
	}
	key, err := m.signingKey()
	if err != nil {
		return RefreshResult{Err: err}
	}

	now := m.now()
	claims := &Claims{
		SessionID:      rc.SessionID,
		Roles:          rc.Roles,
		Permissions:    rc.Permissions,
		Classification: rc.Classification,
		TokenUse:       TokenUseAccess,
		DeviceBinding:  rc.DeviceBinding,
		BindingHash:    rc.BindingHash,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   rc.Subject,
			Issuer:    m.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.AccessTTL)),
			ID:        uuid.NewString(),
		},
	}
	if m.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.cfg.Audience}
	}
	token, err := m.sign(claims, key)
	if err != nil {
		return RefreshResult{Err: err}
	}
	return RefreshResult{
		Success:     true,
		AccessToken: token,
		ExpiresIn:   m.cfg.AccessTTL,
		Claims:      claims,
	}
}

// RevokeToken adds token to the revocation list and drops the device binding
// registered under its jti. Revocation cannot be undone.
func (m *Manager) RevokeToken(token string) {
	if claims, ok := m.DecodeToken(token); ok && claims.ID != "" {
		m.bindings.Delete(claims.ID)
	}
	m.revoked.Add(token)
}

// IsRevoked reports whether token was revoked.
func (m *Manager) IsRevoked(token string) bool {
	return m.revoked.Contains(token)
}

// DeviceBinding returns the binding registered for jti, if any.
func (m *Manager) DeviceBinding(jti string) (DeviceBinding, bool) {
	return m.bindings.Get(jti)
}

// DecodeToken returns the unverified claims of token. The result must only be
// used to locate kid or jti, never to make trust decisions.
func (m *Manager) DecodeToken(token string) (*Claims, bool) {
	claims := &Claims{}
	t, _, err := jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		return nil, false
	}
	if claims.KID == "" {
		claims.KID, _ = t.Header["kid"].(string)
	}
	return claims, true
}

// remaining is how long claims stay valid, plus leeway. Zero means unbounded.
func (m *Manager) remaining(claims *Claims) time.Duration {
	if claims.ExpiresAt == nil {
		return 0
	}
	d := claims.ExpiresAt.Time.Sub(m.now()) + m.cfg.Leeway
	if d <= 0 {
		// Already expired; the binding is kept briefly for lookups.
		return time.Minute
	}
	return d
}

// RotateKeys creates a new current key and prunes expired keys. When rotation
// is enabled the key verifies for 2x RotationInterval; otherwise it never expires.
func (m *Manager) RotateKeys() (SigningKey, error) {
	m.rotateMu.Lock()
	defer m.rotateMu.Unlock()

	now := m.now()
	secret, err := internal.RandomBytes(secretSize)
	if err != nil {
		return SigningKey{}, fmt.Errorf("generate signing secret: %w", err)
	}
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return SigningKey{}, fmt.Errorf("generate kid: %w", err)
	}
	key := SigningKey{
		KID:       id.String(),
		Algorithm: AlgorithmHS256,
		Secret:    secret,
		CreatedAt: now,
	}
	if m.cfg.RotationEnabled {
		key.ExpiresAt = now.Add(2 * m.cfg.RotationInterval)
	}
	m.keys.Insert(key, true)
	pruned := m.keys.Prune()

	m.log.Info("signing key rotated",
		zap.String("kid", key.KID),
		zap.Time("expires_at", key.ExpiresAt),
		zap.Strings("pruned", pruned),
	)
	if m.cfg.OnRotate != nil {
		m.cfg.OnRotate(key, pruned)
	}
	return key, nil
}

// JWKS publishes metadata for every active key. Secret material is never included.
func (m *Manager) JWKS() JWKS {
	return buildJWKS(m.keys.Active())
}

// RunRotation rotates keys every RotationInterval until ctx is cancelled. It
// returns immediately when rotation is disabled.
func (m *Manager) RunRotation(ctx context.Context) error {
	if !m.cfg.RotationEnabled {
		return nil
	}
	ticker := time.NewTicker(m.cfg.RotationInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := m.RotateKeys(); err != nil {
				m.log.Error("scheduled key rotation failed", zap.Error(err))
			}
		}
	}
}
