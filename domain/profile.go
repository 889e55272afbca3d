package domain

import "time"

// Stored role values.
const (
	RoleUser  = "user"
	RoleNgo   = "ngo"
	RoleAdmin = "admin"
)

// UserProfile lives at users/{id}.
type UserProfile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Address   string    `json:"address,omitempty"`
	Contact   string    `json:"contact,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// NgoProfile lives at pendingNgos/{id} before approval and at ngos/{id} after.
// The donations sub-collection of an approved NGO is stored under its path.
type NgoProfile struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	Approved   bool       `json:"approved"`
	CreatedAt  time.Time  `json:"createdAt"`
	ApprovedAt *time.Time `json:"approvedAt,omitempty"`
}

// AdminProfile lives at admins/{id}.
type AdminProfile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProfileKind tags which directory table a profile was found in.
type ProfileKind string

const (
	KindUnknown     ProfileKind = "unknown"
	KindUser        ProfileKind = "user"
	KindApprovedNgo ProfileKind = "approved_ngo"
	KindPendingNgo  ProfileKind = "pending_ngo"
	KindAdmin       ProfileKind = "admin"
)

// Profile is the resolved role record for an identity. Exactly one of the
// pointers is set, matching Kind; all are nil for KindUnknown.
type Profile struct {
	Kind  ProfileKind   `json:"kind"`
	User  *UserProfile  `json:"user,omitempty"`
	Ngo   *NgoProfile   `json:"ngo,omitempty"`
	Admin *AdminProfile `json:"admin,omitempty"`
}

func UnknownProfile() Profile { return Profile{Kind: KindUnknown} }

func UserProfileOf(p *UserProfile) Profile { return Profile{Kind: KindUser, User: p} }

func ApprovedNgoOf(p *NgoProfile) Profile { return Profile{Kind: KindApprovedNgo, Ngo: p} }

func PendingNgoOf(p *NgoProfile) Profile { return Profile{Kind: KindPendingNgo, Ngo: p} }

func AdminProfileOf(p *AdminProfile) Profile { return Profile{Kind: KindAdmin, Admin: p} }

// Role returns the role stored on the record, verbatim.
func (p Profile) Role() string {
	switch p.Kind {
	case KindUser:
		if p.User != nil {
			return p.User.Role
		}
	case KindApprovedNgo, KindPendingNgo:
		if p.Ngo != nil {
			return p.Ngo.Role
		}
	case KindAdmin:
		if p.Admin != nil {
			return p.Admin.Role
		}
	}
	return ""
}

func (p Profile) Known() bool { return p.Kind != KindUnknown && p.Kind != "" }

// Name returns the display name of whichever record is set.
func (p Profile) Name() string {
	switch {
	case p.User != nil:
		return p.User.Name
	case p.Ngo != nil:
		return p.Ngo.Name
	case p.Admin != nil:
		return p.Admin.Name
	}
	return ""
}

// ID returns the id of whichever record is set.
func (p Profile) ID() string {
	switch {
	case p.User != nil:
		return p.User.ID
	case p.Ngo != nil:
		return p.Ngo.ID
	case p.Admin != nil:
		return p.Admin.ID
	}
	return ""
}
