package role

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/repository"
)

// Resolver maps an identity to the directory record that defines its role.
type Resolver struct {
	dir    repository.Directory
	logger *zap.Logger
}

func New(dir repository.Directory, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{dir: dir, logger: logger}
}

// Resolve probes users, ngos, pendingNgos, then admins and returns the first
// record found. Store failures are returned, never reported as Unknown.
func (r *Resolver) Resolve(ctx context.Context, identity domain.Identity) (domain.Profile, error) {
	if identity.IsZero() {
		return domain.UnknownProfile(), nil
	}

	for _, probe := range probes(identity.ID) {
		doc, err := r.dir.Get(ctx, probe.path)
		if err != nil {
			if errors.Is(err, domain.ErrDocumentNotFound) {
				continue
			}
			r.logger.Warn("role probe failed", zap.String("path", probe.path), zap.Error(err))
			return domain.UnknownProfile(), err
		}
		profile, err := probe.decode(doc)
		if err != nil {
			return domain.UnknownProfile(), domain.WrapError(domain.ErrCodeInternal, "decode "+probe.path, err)
		}
		return profile, nil
	}
	return domain.UnknownProfile(), nil
}

type rolePath struct {
	path   string
	decode func(doc *domain.Document) (domain.Profile, error)
}

func probes(id string) []rolePath {
	return []rolePath{
		{domain.UserPath(id), func(doc *domain.Document) (domain.Profile, error) {
			var p domain.UserProfile
			return domain.UserProfileOf(&p), doc.Decode(&p)
		}},
		{domain.NgoPath(id), func(doc *domain.Document) (domain.Profile, error) {
			var p domain.NgoProfile
			return domain.ApprovedNgoOf(&p), doc.Decode(&p)
		}},
		{domain.PendingNgoPath(id), func(doc *domain.Document) (domain.Profile, error) {
			var p domain.NgoProfile
			return domain.PendingNgoOf(&p), doc.Decode(&p)
		}},
		{domain.AdminPath(id), func(doc *domain.Document) (domain.Profile, error) {
			var p domain.AdminProfile
			return domain.AdminProfileOf(&p), doc.Decode(&p)
		}},
	}
}
