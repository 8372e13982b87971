package models

// IdentityKind discriminates how a caller is tracked in the users table.
type IdentityKind string

const (
	IdentityEmail IdentityKind = "email"
	IdentityIP    IdentityKind = "ip"
)

// Identity is the key under which quota and entitlement are tracked: the
// account email when the caller holds a valid session, the client IP
// otherwise. Modelled as a tagged value so storage queries branch on the
// discriminant instead of sniffing the string for "@".
type Identity struct {
	Kind  IdentityKind
	Value string
}

// EmailIdentity builds an email-keyed identity.
func EmailIdentity(email string) Identity {
	return Identity{Kind: IdentityEmail, Value: email}
}

// IPIdentity builds an IP-keyed identity.
func IPIdentity(ip string) Identity {
	return Identity{Kind: IdentityIP, Value: ip}
}

// IsEmail reports whether the identity belongs to an authenticated account.
func (i Identity) IsEmail() bool {
	return i.Kind == IdentityEmail
}

func (i Identity) String() string {
	return string(i.Kind) + ":" + i.Value
}
