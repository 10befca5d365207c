package credentialexchange

import (
	"errors"
	"time"
)

// CredentialSource says which record type a resolved credential came from.
type CredentialSource int

const (
	SourceBase CredentialSource = iota
	SourceMFASession
	SourceRoleSession
)

func (s CredentialSource) String() string {
	switch s {
	case SourceRoleSession:
		return "role session"
	case SourceMFASession:
		return "mfa session"
	default:
		return "credential"
	}
}

// Credential is the active credential set for a logical name. The session
// token is empty when the base credential is active.
type Credential struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Source          CredentialSource
}

func (c *Credential) HasSession() bool {
	return c.SessionToken != ""
}

// Resolver walks the precedence chain for a logical name: cached role
// session, then cached MFA session, then the base credential. Expired and
// half-missing session pairs encountered on the walk are purged, which is
// the only mutation resolution performs.
type Resolver struct {
	store EntryStore
	now   func() time.Time
}

func NewResolver(store EntryStore) *Resolver {
	return &Resolver{store: store, now: time.Now}
}

func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Resolve returns the active credential set for name, or ErrNotFound when
// no session is usable and no base credential exists.
func (r *Resolver) Resolve(name string) (*Credential, error) {
	// Role sessions outrank MFA sessions: a role session is derived
	// from the MFA session it was assumed through.
	for _, kind := range []SessionKind{SessionRole, SessionMFA} {
		session, err := findSession(r.store, name, kind)
		if err != nil {
			if errors.Is(err, ErrMalformedEntry) {
				// Half a pair is no pair. Clear the orphan half.
				if err := deleteSession(r.store, name, kind); err != nil {
					return nil, err
				}
				continue
			}
			return nil, err
		}
		if session == nil {
			continue
		}
		if IsExpired(session.Expiry, r.now()) {
			if err := deleteSession(r.store, name, kind); err != nil {
				return nil, err
			}
			continue
		}
		return &Credential{
			AccessKeyID:     session.AccessKeyID,
			SecretAccessKey: session.SecretAccessKey,
			SessionToken:    session.SessionToken,
			Source:          sourceOf(kind),
		}, nil
	}

	base, err := FindBaseCredential(r.store, name)
	if err != nil {
		return nil, err
	}
	return &Credential{
		AccessKeyID:     base.AccessKeyID,
		SecretAccessKey: base.SecretAccessKey,
		Source:          SourceBase,
	}, nil
}

// Remove deletes whatever Resolve currently returns for name: the live
// session pair if one exists, otherwise the base credential entry.
func (r *Resolver) Remove(name string) error {
	cred, err := r.Resolve(name)
	if err != nil {
		return err
	}
	switch cred.Source {
	case SourceRoleSession:
		return deleteSession(r.store, name, SessionRole)
	case SourceMFASession:
		return deleteSession(r.store, name, SessionMFA)
	default:
		return r.store.Delete(baseLabel(name))
	}
}

func sourceOf(kind SessionKind) CredentialSource {
	if kind == SessionRole {
		return SourceRoleSession
	}
	return SourceMFASession
}
