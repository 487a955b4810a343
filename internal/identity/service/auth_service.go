package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ztcp-auth/internal/audit"
	"ztcp-auth/internal/lockout"
	principaldomain "ztcp-auth/internal/principal/domain"
	refreshdomain "ztcp-auth/internal/refreshtoken/domain"
	"ztcp-auth/internal/security"
	sessiondomain "ztcp-auth/internal/session/domain"
)

const tracerName = "ztcp-auth/identity"

// PrincipalRepo is the minimal principal repository needed by the auth service.
type PrincipalRepo interface {
	GetByID(ctx context.Context, id string) (*principaldomain.Principal, error)
	GetByName(ctx context.Context, name string) (*principaldomain.Principal, error)
	GetPasswordHash(ctx context.Context, id string) (string, error)
	ListRoles(ctx context.Context, principalID string) ([]principaldomain.Role, error)
	RecordLoginFailure(ctx context.Context, id string, next func(lockout.State) lockout.State) (lockout.State, lockout.State, error)
	RecordLoginSuccess(ctx context.Context, id string, at time.Time) (bool, error)
}

// SessionRepo is the minimal session repository needed by the auth service.
type SessionRepo interface {
	Create(ctx context.Context, s *sessiondomain.Session) error
	ListByPrincipal(ctx context.Context, principalID string) ([]*sessiondomain.Session, error)
	Touch(ctx context.Context, id string, at time.Time) (bool, error)
	Delete(ctx context.Context, id string) error
}

// RefreshTokenRepo is the minimal refresh token repository needed by the auth service.
type RefreshTokenRepo interface {
	Create(ctx context.Context, t *refreshdomain.RefreshToken) error
	GetByHash(ctx context.Context, tokenHash string) (*refreshdomain.RefreshToken, error)
	DeleteByHash(ctx context.Context, tokenHash string) (bool, error)
	DeleteBySession(ctx context.Context, sessionID string) (int64, error)
}

// Metrics receives auth outcomes. *observability.AuthMetrics implements it.
type Metrics interface {
	ObserveLogin(outcome string)
	ObserveRefresh(outcome string)
	ObserveLogout()
	ObserveLockout()
}

// Config holds the immutable settings of an AuthService.
type Config struct {
	RefreshTTL       time.Duration
	LockoutThreshold int
}

// RoleSummary is a role as exposed to clients.
type RoleSummary struct {
	ID   string
	Name string
}

// UserSummary is the safe view of a principal returned on login. It never carries the credential hash.
type UserSummary struct {
	ID       string
	Name     string
	FullName string
	Roles    []RoleSummary
}

// LoginResult holds the credentials minted by a successful Login.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	CSRFToken    string
	ExpiresAt    time.Time
	SessionID    string
	User         UserSummary
}

// RefreshResult holds the rotated credentials returned by Refresh.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// AuthService implements password login, refresh token rotation, and logout.
// It keeps no mutable state of its own; everything lives in the repositories.
type AuthService struct {
	principals    PrincipalRepo
	sessions      SessionRepo
	refreshTokens RefreshTokenRepo
	hasher        *security.Hasher
	tokens        *security.TokenProvider
	policy        lockout.Policy
	refreshTTL    time.Duration
	auditLogger   audit.AuditLogger
	metrics       Metrics
	tracer        trace.Tracer
	now           func() time.Time
}

// NewAuthService returns an AuthService with the given dependencies.
// auditLogger and metrics may be nil.
func NewAuthService(
	principals PrincipalRepo,
	sessions SessionRepo,
	refreshTokens RefreshTokenRepo,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	cfg Config,
	auditLogger audit.AuditLogger,
	metrics Metrics,
) *AuthService {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if auditLogger == nil {
		auditLogger = audit.NopLogger{}
	}
	return &AuthService{
		principals:    principals,
		sessions:      sessions,
		refreshTokens: refreshTokens,
		hasher:        hasher,
		tokens:        tokens,
		policy:        lockout.NewPolicy(cfg.LockoutThreshold),
		refreshTTL:    cfg.RefreshTTL,
		auditLogger:   auditLogger,
		metrics:       metrics,
		tracer:        otel.Tracer(tracerName),
		now:           time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// Login verifies name and password and starts a new session.
func (s *AuthService) Login(ctx context.Context, name, password, userAgent string) (*LoginResult, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	res, err := s.login(ctx, name, password, userAgent)
	s.metrics.ObserveLogin(Outcome(err))
	endSpan(span, err)
	if err != nil {
		logFailure(ctx, "login", err)
	}
	return res, err
}

func (s *AuthService) login(ctx context.Context, name, password, userAgent string) (*LoginResult, error) {
	if name == "" || password == "" {
		return nil, fmt.Errorf("%w: name and password are required", ErrValidation)
	}
	p, err := s.principals.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if p == nil {
		s.auditLogger.LogEvent(ctx, "", "", audit.ActionLoginFailure, "name_fp="+security.NameFingerprint(name))
		return nil, fmt.Errorf("%w: unknown principal", ErrUnauthorized)
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("principal.id", p.ID))
	if err := checkStatus(p); err != nil {
		s.auditLogger.LogEvent(ctx, p.ID, "", audit.ActionLoginFailure, "outcome="+Outcome(err))
		return nil, err
	}
	hash, err := s.principals.GetPasswordHash(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if hash == "" {
		s.auditLogger.LogEvent(ctx, p.ID, "", audit.ActionLoginFailure, "outcome=no_credential")
		return nil, fmt.Errorf("%w: no credential set", ErrUnauthorized)
	}
	ok, err := s.hasher.Verify(hash, []byte(password))
	if err != nil {
		return nil, fmt.Errorf("verify credential for principal %s: %w", p.ID, err)
	}
	now := s.now().UTC()
	if !ok {
		return nil, s.recordFailure(ctx, p.ID, now)
	}

	recorded, err := s.principals.RecordLoginSuccess(ctx, p.ID, now)
	if err != nil {
		return nil, err
	}
	if !recorded {
		err := s.statusAfterVerify(ctx, p.ID)
		s.auditLogger.LogEvent(ctx, p.ID, "", audit.ActionLoginFailure, "outcome="+Outcome(err))
		return nil, err
	}
	roles, err := s.principals.ListRoles(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	csrf, err := security.GenerateCSRFToken()
	if err != nil {
		return nil, err
	}
	sess := &sessiondomain.Session{
		ID:           uuid.New().String(),
		PrincipalID:  p.ID,
		CSRFToken:    csrf,
		LastActiveAt: now,
		CreatedAt:    now,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	access, expiresAt, refresh, err := s.issue(ctx, p.ID, sess.ID, roles, userAgent, now)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().Str("principal_id", p.ID).Str("session_id", sess.ID).Msg("login succeeded")
	s.auditLogger.LogEvent(ctx, p.ID, sess.ID, audit.ActionLoginSuccess, "")
	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		CSRFToken:    csrf,
		ExpiresAt:    expiresAt,
		SessionID:    sess.ID,
		User:         summarize(p, roles),
	}, nil
}

// recordFailure applies the lockout policy through the repository and returns the error for the caller.
func (s *AuthService) recordFailure(ctx context.Context, principalID string, now time.Time) error {
	prev, next, err := s.principals.RecordLoginFailure(ctx, principalID, func(cur lockout.State) lockout.State {
		return s.policy.Next(cur, false, now)
	})
	if err != nil {
		return err
	}
	s.auditLogger.LogEvent(ctx, principalID, "", audit.ActionLoginFailure,
		fmt.Sprintf("failed_login_count=%d", next.FailedLoginCount))
	if lockout.JustBlocked(prev, next) {
		zerolog.Ctx(ctx).Warn().
			Str("principal_id", principalID).
			Int("failed_login_count", next.FailedLoginCount).
			Msg("account locked after repeated login failures")
		s.metrics.ObserveLockout()
		s.auditLogger.LogEvent(ctx, principalID, "", audit.ActionAccountLocked,
			fmt.Sprintf("threshold=%d", s.policy.Threshold))
	}
	return fmt.Errorf("%w: wrong password", ErrUnauthorized)
}

// Refresh consumes refreshToken and returns a new access token and a new refresh token for the same session.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, userAgent string) (*RefreshResult, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Refresh")
	defer span.End()

	res, err := s.refresh(ctx, refreshToken, userAgent)
	s.metrics.ObserveRefresh(Outcome(err))
	endSpan(span, err)
	if err != nil {
		logFailure(ctx, "refresh", err)
	}
	return res, err
}

func (s *AuthService) refresh(ctx context.Context, refreshToken, userAgent string) (*RefreshResult, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: refresh token is required", ErrValidation)
	}
	tokenHash := security.HashRefreshToken(refreshToken)
	rt, err := s.refreshTokens.GetByHash(ctx, tokenHash)
	if err != nil {
		return nil, err
	}
	if rt == nil {
		s.auditLogger.LogEvent(ctx, "", "", audit.ActionRefreshRejected, "reason=unknown_token")
		return nil, fmt.Errorf("%w: unknown refresh token", ErrUnauthorized)
	}
	now := s.now().UTC()
	if rt.IsExpired(now) {
		if _, err := s.refreshTokens.DeleteByHash(ctx, tokenHash); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("session_id", rt.SessionID).Msg("delete expired refresh token")
		}
		s.auditLogger.LogEvent(ctx, rt.PrincipalID, rt.SessionID, audit.ActionRefreshRejected, "reason=expired")
		return nil, fmt.Errorf("%w: refresh token expired", ErrUnauthorized)
	}

	// Consume before minting so a concurrent call with the same secret finds nothing.
	deleted, err := s.refreshTokens.DeleteByHash(ctx, tokenHash)
	if err != nil {
		return nil, err
	}
	if !deleted {
		s.auditLogger.LogEvent(ctx, rt.PrincipalID, rt.SessionID, audit.ActionRefreshRejected, "reason=already_rotated")
		return nil, fmt.Errorf("%w: refresh token already used", ErrUnauthorized)
	}

	p, err := s.principals.GetByID(ctx, rt.PrincipalID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: principal no longer exists", ErrUnauthorized)
	}
	if err := checkStatus(p); err != nil {
		s.auditLogger.LogEvent(ctx, p.ID, rt.SessionID, audit.ActionRefreshRejected, "outcome="+Outcome(err))
		return nil, err
	}
	touched, err := s.sessions.Touch(ctx, rt.SessionID, now)
	if err != nil {
		return nil, err
	}
	if !touched {
		return nil, fmt.Errorf("%w: session ended", ErrUnauthorized)
	}
	roles, err := s.principals.ListRoles(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	access, expiresAt, refresh, err := s.issue(ctx, p.ID, rt.SessionID, roles, userAgent, now)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().Str("principal_id", p.ID).Str("session_id", rt.SessionID).Msg("refresh token rotated")
	s.auditLogger.LogEvent(ctx, p.ID, rt.SessionID, audit.ActionRefresh, "")
	return &RefreshResult{AccessToken: access, RefreshToken: refresh, ExpiresAt: expiresAt}, nil
}

// Logout ends the session that refreshToken belongs to. Unknown tokens succeed without side effects.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	ctx, span := s.tracer.Start(ctx, "AuthService.Logout")
	defer span.End()

	err := s.logout(ctx, refreshToken)
	endSpan(span, err)
	if err != nil {
		logFailure(ctx, "logout", err)
	}
	return err
}

func (s *AuthService) logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return fmt.Errorf("%w: refresh token is required", ErrValidation)
	}
	rt, err := s.refreshTokens.GetByHash(ctx, security.HashRefreshToken(refreshToken))
	if err != nil {
		return err
	}
	if rt == nil {
		return nil
	}
	// Tokens before the session, so a concurrent refresh cannot leave a token without its session.
	if _, err := s.refreshTokens.DeleteBySession(ctx, rt.SessionID); err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, rt.SessionID); err != nil {
		return err
	}
	s.metrics.ObserveLogout()
	zerolog.Ctx(ctx).Info().Str("principal_id", rt.PrincipalID).Str("session_id", rt.SessionID).Msg("logout")
	s.auditLogger.LogEvent(ctx, rt.PrincipalID, rt.SessionID, audit.ActionLogout, "")
	return nil
}

// ListSessions returns the live sessions of principalID.
func (s *AuthService) ListSessions(ctx context.Context, principalID string) ([]*sessiondomain.Session, error) {
	if principalID == "" {
		return nil, fmt.Errorf("%w: principal id is required", ErrValidation)
	}
	return s.sessions.ListByPrincipal(ctx, principalID)
}

// issue mints a bearer token and persists a fresh refresh token for sessionID.
func (s *AuthService) issue(ctx context.Context, principalID, sessionID string, roles []principaldomain.Role, userAgent string, now time.Time) (string, time.Time, string, error) {
	access, expiresAt, err := s.tokens.Encode(security.Claims{
		PrincipalID:     principalID,
		SessionID:       sessionID,
		RoleNames:       principaldomain.RoleNames(roles),
		ModuleRoleNames: []string{},
	})
	if err != nil {
		return "", time.Time{}, "", err
	}
	refresh, err := security.GenerateRefreshToken()
	if err != nil {
		return "", time.Time{}, "", err
	}
	rt := &refreshdomain.RefreshToken{
		ID:          uuid.New().String(),
		PrincipalID: principalID,
		SessionID:   sessionID,
		TokenHash:   security.HashRefreshToken(refresh),
		ExpiresAt:   now.Add(s.refreshTTL),
		CreatedAt:   now,
	}
	if userAgent != "" {
		rt.UserAgent = &userAgent
	}
	if err := s.refreshTokens.Create(ctx, rt); err != nil {
		return "", time.Time{}, "", err
	}
	return access, expiresAt, refresh, nil
}

// checkStatus rejects principals that may not hold a session, in precedence order.
// statusAfterVerify explains why a verified login could not be recorded. The row changed after
// checkStatus ran, so the login is refused even if the principal looks usable again.
func (s *AuthService) statusAfterVerify(ctx context.Context, principalID string) error {
	cur, err := s.principals.GetByID(ctx, principalID)
	if err != nil {
		return err
	}
	if cur == nil {
		return fmt.Errorf("%w: principal removed during login", ErrUnauthorized)
	}
	if err := checkStatus(cur); err != nil {
		return err
	}
	return fmt.Errorf("%w: principal status changed during login", ErrAccountLocked)
}

func checkStatus(p *principaldomain.Principal) error {
	switch {
	case p.Blocked:
		return ErrAccountLocked
	case !p.Active:
		return fmt.Errorf("%w: principal inactive", ErrUnauthorized)
	case p.IsServiceAccount:
		return fmt.Errorf("%w: service accounts cannot log in interactively", ErrForbidden)
	}
	return nil
}

func summarize(p *principaldomain.Principal, roles []principaldomain.Role) UserSummary {
	out := UserSummary{ID: p.ID, Name: p.Name, FullName: p.FullName, Roles: make([]RoleSummary, len(roles))}
	for i, r := range roles {
		out.Roles[i] = RoleSummary{ID: r.ID, Name: r.Name}
	}
	return out
}

func endSpan(span trace.Span, err error) {
	outcome := Outcome(err)
	span.SetAttributes(attribute.String("auth.outcome", outcome))
	if outcome == OutcomeError {
		span.RecordError(err)
		span.SetStatus(codes.Error, "internal error")
	}
}

func logFailure(ctx context.Context, op string, err error) {
	logger := zerolog.Ctx(ctx)
	if Outcome(err) == OutcomeError {
		logger.Error().Err(err).Str("op", op).Msg("auth operation failed")
		return
	}
	logger.Info().Str("op", op).Str("outcome", Outcome(err)).Msg(err.Error())
}

type noopMetrics struct{}

func (noopMetrics) ObserveLogin(string)   {}
func (noopMetrics) ObserveRefresh(string) {}
func (noopMetrics) ObserveLogout()        {}
func (noopMetrics) ObserveLockout()       {}
