package guard

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/greenbite/domain"
)

// RoleSelectionPath is where unauthorised visitors are sent.
const RoleSelectionPath = "/role"

type State string

const (
	Admitted   State = "admitted"
	Redirected State = "redirected"
	Loading    State = "loading"
)

// Decision is the guard's verdict for one view.
type Decision struct {
	View     string `json:"view"`
	State    State  `json:"state"`
	Redirect string `json:"redirect,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Resolution is the outcome of a role lookup. Pending is true while the
// lookup has not completed.
type Resolution struct {
	Pending bool
	Profile domain.Profile
}

// views maps each view to the role it requires; the empty string means public.
var views = map[string]string{
	"items":        domain.RoleUser,
	"dashboard":    domain.RoleUser,
	"donations":    domain.RoleUser,
	"chatbot":      domain.RoleUser,
	"account":      domain.RoleUser,
	"achievements": domain.RoleUser,
	"crowdfunding": domain.RoleUser,
	"ngo":          domain.RoleNgo,
	"admin":        domain.RoleAdmin,
	"help":         "",
	"docs":         "",
	"about":        "",
	"home":         "",
}

// RequiredRole returns the role a view needs and whether the view exists.
func RequiredRole(view string) (string, bool) {
	role, ok := views[view]
	return role, ok
}

// Decide is pure: the same identity, resolution and view always produce the same decision.
func Decide(identity *domain.Identity, res Resolution, view string) Decision {
	required, known := RequiredRole(view)
	if !known {
		return redirect(view)
	}
	if required == "" {
		return Decision{View: view, State: Admitted}
	}
	if identity.IsZero() {
		return redirect(view)
	}
	if res.Pending {
		return Decision{View: view, State: Loading}
	}
	if !Satisfies(res.Profile, required) {
		return redirect(view)
	}
	return Decision{View: view, State: Admitted, Role: res.Profile.Role()}
}

// Satisfies reports whether profile holds the required role. NGO views
// admit only approved NGOs.
func Satisfies(profile domain.Profile, required string) bool {
	if required == "" {
		return true
	}
	if profile.Kind == domain.KindPendingNgo {
		return false
	}
	return profile.Known() && profile.Role() == required
}

func redirect(view string) Decision {
	return Decision{View: view, State: Redirected, Redirect: RoleSelectionPath}
}

// RoleResolver is the lookup the guard waits on.
type RoleResolver interface {
	Resolve(ctx context.Context, identity domain.Identity) (domain.Profile, error)
}

// Guard runs role resolution with a deadline and turns the outcome into a Decision.
type Guard struct {
	resolver RoleResolver
	timeout  time.Duration
	logger   *zap.Logger
}

func New(resolver RoleResolver, timeout time.Duration, logger *zap.Logger) *Guard {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{resolver: resolver, timeout: timeout, logger: logger}
}

// Check resolves the identity's role and decides access to view. A lookup
// that does not finish before the deadline yields Loading; other store
// errors are returned.
func (g *Guard) Check(ctx context.Context, identity *domain.Identity, view string) (Decision, domain.Profile, error) {
	required, known := RequiredRole(view)
	if !known || required == "" || identity.IsZero() {
		return Decide(identity, Resolution{}, view), domain.UnknownProfile(), nil
	}

	resolveCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	profile, err := g.resolver.Resolve(resolveCtx, *identity)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(resolveCtx.Err(), context.DeadlineExceeded) {
			g.logger.Warn("role resolution timed out", zap.String("view", view), zap.Duration("timeout", g.timeout))
			return Decide(identity, Resolution{Pending: true}, view), domain.UnknownProfile(), nil
		}
		return Decision{}, domain.UnknownProfile(), err
	}
	return Decide(identity, Resolution{Profile: profile}, view), profile, nil
}
