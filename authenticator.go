package shop

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
)

// Auther is the concrete Authenticator. It holds no per-request state;
// the signing secret and TTLs are fixed at construction.
type Auther struct {
	provider      IdentityProvider
	tokenService  TokenService
	rememberStore RememberPreferenceStore
	activitySink  ActivitySink
	logger        Logger
}

// NewAuthenticator returns a new Authenticator backed by the provider
// and token service.
func NewAuthenticator(provider IdentityProvider, tokenService TokenService) *Auther {
	return &Auther{
		provider:     provider,
		tokenService: tokenService,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithRememberStore configures the store used to persist the remember-me
// preference during admin signin.
func (s *Auther) WithRememberStore(store RememberPreferenceStore) *Auther {
	s.rememberStore = store
	return s
}

// Login verifies credentials for the classified identifier and issues a
// session token. The token TTL honors rememberMe.
func (s *Auther) Login(ctx context.Context, identifier Identifier, password string, rememberMe bool) (string, Identity, error) {
	identity, err := s.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		s.logger.Info("login rejected: kind=%s error=%v", identifier.Kind, err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier_kind": string(identifier.Kind),
			"error":           err.Error(),
		})
		return "", nil, err
	}

	token, err := s.tokenService.Issue(identity, rememberMe)
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromIdentity(identity), identity.ID(), map[string]any{
			"error": err.Error(),
		})
		return "", nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, s.actorFromIdentity(identity), identity.ID(), map[string]any{
		"identifier_kind": string(identifier.Kind),
		"remember_me":     rememberMe,
	})

	return token, identity, nil
}

// LoginAdmin is Login plus an explicit admin role check, applied after the
// password and active checks so valid non-admin credentials still earn a
// Forbidden. The remember-me preference is persisted before issuance so
// the issued token reflects it.
func (s *Auther) LoginAdmin(ctx context.Context, identifier Identifier, password string, rememberMe bool) (string, Identity, error) {
	identity, err := s.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier_kind": string(identifier.Kind),
			"admin":           true,
			"error":           err.Error(),
		})
		return "", nil, err
	}

	if identity.Role() != RoleAdmin {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromIdentity(identity), identity.ID(), map[string]any{
			"admin": true,
			"error": ErrAdminRequired.Message,
		})
		return "", nil, ErrAdminRequired
	}

	if s.rememberStore != nil {
		if err := s.rememberStore.SetRememberMe(ctx, identity.ID(), rememberMe); err != nil {
			return "", nil, errors.Wrap(err, errors.CategoryInternal, "failed to persist remember-me preference")
		}
	}

	token, err := s.tokenService.Issue(identity, rememberMe)
	if err != nil {
		return "", nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, s.actorFromIdentity(identity), identity.ID(), map[string]any{
		"admin":       true,
		"remember_me": rememberMe,
	})

	return token, identity, nil
}

// ClaimsFromToken validates a raw token and returns its claims
func (s *Auther) ClaimsFromToken(raw string) (AuthClaims, error) {
	claims, err := s.tokenService.Validate(raw)
	if err != nil {
		s.logger.Debug("token validation failed: %v", err)
		return nil, err
	}
	return claims, nil
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		UserID:    userID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

func (s *Auther) actorFromIdentity(identity Identity) ActorRef {
	if identity == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   identity.ID(),
		Type: "user",
	}
}

var _ Authenticator = (*Auther)(nil)
