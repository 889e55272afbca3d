package profile

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/repository"
	"github.com/fastygo/greenbite/usecase"
)

// RoleResolver looks up the profile that defines an identity's role.
type RoleResolver interface {
	Resolve(ctx context.Context, identity domain.Identity) (domain.Profile, error)
}

type UseCase struct {
	dir      repository.Directory
	resolver RoleResolver
	buffer   usecase.OperationBuffer
	logger   *zap.Logger
}

func New(dir repository.Directory, resolver RoleResolver, buffer usecase.OperationBuffer, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		dir:      dir,
		resolver: resolver,
		buffer:   buffer,
		logger:   logger,
	}
}

// Me describes the signed-in identity and its resolved role.
type Me struct {
	Identity domain.Identity `json:"identity"`
	Role     string          `json:"role"`
	Approved bool            `json:"approved"`
	Profile  domain.Profile  `json:"profile"`
}

func (uc *UseCase) Me(ctx context.Context, identity domain.Identity) (*Me, error) {
	if identity.IsZero() {
		return nil, domain.ErrUnauthorized
	}
	profile, err := uc.resolver.Resolve(ctx, identity)
	if err != nil {
		return nil, err
	}
	me := &Me{Identity: identity, Role: profile.Role(), Profile: profile}
	if profile.Kind == domain.KindApprovedNgo && profile.Ngo != nil {
		me.Approved = profile.Ngo.Approved
	}
	return me, nil
}

func (uc *UseCase) GetProfile(ctx context.Context, identity domain.Identity) (*domain.UserProfile, error) {
	if identity.IsZero() {
		return nil, domain.ErrUnauthorized
	}
	doc, err := uc.dir.Get(ctx, domain.UserPath(identity.ID))
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	var user domain.UserProfile
	if err := doc.Decode(&user); err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "decode profile", err)
	}
	user.ID = identity.ID
	return &user, nil
}

// Update holds the account fields a user may change. Nil fields are left untouched.
type Update struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Address *string `json:"address"`
	Contact *string `json:"contact"`
}

func (u Update) fields() map[string]interface{} {
	fields := map[string]interface{}{}
	set := func(key string, v *string) {
		if v != nil {
			fields[key] = strings.TrimSpace(*v)
		}
	}
	set("name", u.Name)
	set("email", u.Email)
	set("address", u.Address)
	set("contact", u.Contact)
	return fields
}

// UpdateProfile patches users/{id}. The role field is never written here.
func (uc *UseCase) UpdateProfile(ctx context.Context, identity domain.Identity, update Update) (*domain.UserProfile, error) {
	current, err := uc.GetProfile(ctx, identity)
	if err != nil {
		return nil, err
	}
	fields := update.fields()
	if name, ok := fields["name"]; ok && name == "" {
		return nil, domain.Invalid("name cannot be empty")
	}
	if email, ok := fields["email"].(string); ok {
		if !strings.Contains(email, "@") {
			return nil, domain.Invalid("a valid email is required")
		}
		fields["email"] = domain.NormalizeEmail(email)
	}
	if len(fields) == 0 {
		return current, nil
	}
	apply(current, fields)

	if err := uc.dir.Patch(ctx, domain.UserPath(identity.ID), fields); err != nil {
		if uc.buffer != nil && domain.IsDomainError(err, domain.ErrCodeUnavailable) {
			if bufErr := uc.buffer.BufferProfile(ctx, identity.ID, fields); bufErr != nil {
				uc.logger.Error("failed to buffer profile update", zap.Error(bufErr))
				return nil, err
			}
			uc.logger.Warn("profile update buffered due to repository error", zap.Error(err))
			return current, nil
		}
		return nil, err
	}
	return current, nil
}

func apply(user *domain.UserProfile, fields map[string]interface{}) {
	for key, value := range fields {
		s, _ := value.(string)
		switch key {
		case "name":
			user.Name = s
		case "email":
			user.Email = s
		case "address":
			user.Address = s
		case "contact":
			user.Contact = s
		}
	}
}
