package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/repository"
)

// MinPasswordLength matches the hosted identity provider the front end was built against.
const MinPasswordLength = 6

type Config struct {
	SessionTTL time.Duration
	Tokens     TokenConfig
}

type UseCase struct {
	identities repository.IdentityRepository
	sessions   repository.SessionRepository
	dir        repository.Directory
	feed       repository.ChangeFeed
	tokens     *TokenIssuer
	ttl        time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

func New(
	identities repository.IdentityRepository,
	sessions repository.SessionRepository,
	dir repository.Directory,
	feed repository.ChangeFeed,
	cfg Config,
	logger *zap.Logger,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	return &UseCase{
		identities: identities,
		sessions:   sessions,
		dir:        dir,
		feed:       feed,
		tokens:     NewTokenIssuer(cfg.Tokens),
		ttl:        cfg.SessionTTL,
		logger:     logger,
		now:        time.Now,
	}
}

type SignUpInput struct {
	Email    string
	Password string
	Role     string
	Name     string
}

// Result is returned by SignUp and SignIn.
type Result struct {
	Identity domain.Identity `json:"identity"`
	Session  *domain.Session `json:"session"`
	Token    string          `json:"token"`
}

// SignUp creates the identity and its role profile: users/{id} for donors,
// pendingNgos/{id} for NGOs awaiting approval.
func (uc *UseCase) SignUp(ctx context.Context, in SignUpInput) (*Result, error) {
	in.Email = domain.NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := validateSignUp(in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "hash password", err)
	}

	cred := &domain.Credentials{
		ID:           uuid.NewString(),
		Email:        in.Email,
		DisplayName:  in.Name,
		PasswordHash: string(hash),
	}
	if err := uc.identities.Create(ctx, cred); err != nil {
		return nil, err
	}

	now := uc.now().UTC()
	switch in.Role {
	case domain.RoleNgo:
		err = uc.dir.Set(ctx, domain.PendingNgoPath(cred.ID), domain.NgoProfile{
			ID:        cred.ID,
			Name:      in.Name,
			Email:     in.Email,
			Role:      domain.RoleNgo,
			Approved:  false,
			CreatedAt: now,
		})
	default:
		err = uc.dir.Set(ctx, domain.UserPath(cred.ID), domain.UserProfile{
			ID:        cred.ID,
			Name:      in.Name,
			Email:     in.Email,
			Role:      domain.RoleUser,
			CreatedAt: now,
		})
	}
	if err != nil {
		uc.logger.Error("profile creation failed after sign-up",
			zap.String("identity_id", cred.ID),
			zap.String("role", in.Role),
			zap.Error(err))
		if delErr := uc.identities.Delete(ctx, cred.ID); delErr != nil {
			uc.logger.Error("orphaned identity left after failed sign-up",
				zap.String("identity_id", cred.ID),
				zap.Error(delErr))
		}
		return nil, err
	}

	return uc.startSession(ctx, cred.Identity())
}

// SignIn verifies the password and opens a session.
func (uc *UseCase) SignIn(ctx context.Context, email, password string) (*Result, error) {
	cred, err := uc.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return uc.startSession(ctx, cred.Identity())
}

// SignOut drops the session; tokens bound to it stop authenticating.
func (uc *UseCase) SignOut(ctx context.Context, identity domain.Identity) error {
	if identity.SessionID == "" {
		return domain.ErrUnauthorized
	}
	if err := uc.sessions.Delete(ctx, identity.SessionID); err != nil {
		return err
	}
	uc.publishIdentity(ctx, identity, domain.ChangeDelete)
	return nil
}

func (uc *UseCase) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsExpired(uc.now()) {
		_ = uc.sessions.Delete(ctx, sessionID)
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Refresh extends the session and reissues a token with the new expiry.
func (uc *UseCase) Refresh(ctx context.Context, identity domain.Identity, ttl time.Duration) (*Result, error) {
	if ttl <= 0 {
		ttl = uc.ttl
	}
	session, err := uc.GetSession(ctx, identity.SessionID)
	if err != nil {
		return nil, err
	}
	if err := uc.sessions.Extend(ctx, session.ID, int(ttl.Seconds())); err != nil {
		return nil, err
	}
	session.ExpiresAt = uc.now().Add(ttl)

	token, err := uc.tokens.Issue(identity, session.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &Result{Identity: identity, Session: session, Token: token}, nil
}

// Authenticate resolves a bearer token to the identity it was issued for.
// The session must still exist.
func (uc *UseCase) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	claims, err := uc.tokens.Parse(token)
	if err != nil {
		return domain.Identity{}, err
	}
	session, err := uc.GetSession(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.Identity{}, domain.ErrUnauthorized
		}
		return domain.Identity{}, err
	}
	if session.UserID != claims.UserID {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	identity := session.Identity()
	if identity.Email == "" {
		identity.Email = claims.Email
	}
	return identity, nil
}

func (uc *UseCase) startSession(ctx context.Context, identity domain.Identity) (*Result, error) {
	now := uc.now()
	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    identity.ID,
		Email:     identity.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(uc.ttl),
	}
	identity.SessionID = session.ID

	token, err := uc.tokens.Issue(identity, session.ExpiresAt)
	if err != nil {
		return nil, err
	}
	if err := uc.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	uc.publishIdentity(ctx, identity, domain.ChangeSet)
	return &Result{Identity: identity, Session: session, Token: token}, nil
}

func (uc *UseCase) publishIdentity(ctx context.Context, identity domain.Identity, kind domain.ChangeKind) {
	if uc.feed == nil {
		return
	}
	change := domain.NewChange(repository.IdentityChannel+"/"+identity.ID, kind, nil)
	if err := uc.feed.Publish(ctx, change); err != nil {
		uc.logger.Warn("identity event publish failed", zap.String("identity_id", identity.ID), zap.Error(err))
	}
}

func validateSignUp(in SignUpInput) error {
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return domain.Invalid("a valid email is required")
	}
	if len(in.Password) < MinPasswordLength {
		return domain.Invalid("password must be at least %d characters", MinPasswordLength)
	}
	if in.Name == "" {
		return domain.Invalid("name is required")
	}
	switch in.Role {
	case domain.RoleUser, domain.RoleNgo:
		return nil
	default:
		return domain.Invalid("cannot sign up with role %q", in.Role)
	}
}
