package credentialexchange

import (
	"errors"
	"fmt"
	"strings"

	"github.com/maneframe/aws-keychain-util/internal/keystore"
)

var (
	ErrNotFound       = errors.New("entry not found")
	ErrMalformedEntry = errors.New("session entry is missing its pair half")
)

// EntryStore is the secret store surface consumed by the engine.
// *keystore.Store satisfies it.
type EntryStore interface {
	Find(label string) (*keystore.Entry, error)
	Create(label, account, secret, annotation string) (*keystore.Entry, error)
	Delete(label string) error
}

// SessionKind distinguishes the two cached session types.
type SessionKind int

const (
	SessionMFA SessionKind = iota
	SessionRole
)

func (k SessionKind) String() string {
	if k == SessionRole {
		return "role session"
	}
	return "mfa session"
}

// BaseCredential is the long lived access key pair for a logical name.
type BaseCredential struct {
	Name            string
	AccessKeyID     string
	SecretAccessKey string
	MFADeviceARN    string
}

// RoleDefinition names a role that can be assumed from a base credential.
type RoleDefinition struct {
	Name        string
	RoleName    string
	SessionName string
	RoleARN     string
}

// Session is a cached temporary credential assembled from its two
// physical halves: the key half carrying the expiry annotation and the
// token half carrying the session token.
type Session struct {
	Name            string
	Kind            SessionKind
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	// Expiry is the raw annotation of the key half, epoch seconds when
	// written by this tool.
	Expiry string
}

// Label conventions. These are the only place raw label strings are
// produced or interpreted.

func baseLabel(name string) string {
	return name
}

func roleLabel(name, roleName string) string {
	return fmt.Sprintf("%s role %s", name, roleName)
}

func sessionKeyLabel(name string, kind SessionKind) string {
	if kind == SessionRole {
		return fmt.Sprintf("%s role-key", name)
	}
	return fmt.Sprintf("%s mfa", name)
}

func sessionTokenLabel(name string, kind SessionKind) string {
	if kind == SessionRole {
		return fmt.Sprintf("%s role-token", name)
	}
	return fmt.Sprintf("%s token", name)
}

// EntryKind classifies a raw store entry by its label convention.
type EntryKind int

const (
	KindBaseCredential EntryKind = iota
	KindRoleDefinition
	KindSessionKey
	KindSessionToken
)

func (k EntryKind) String() string {
	switch k {
	case KindRoleDefinition:
		return "role"
	case KindSessionKey:
		return "session"
	case KindSessionToken:
		return "session-token"
	default:
		return "credential"
	}
}

// ClassifyLabel reports what record type a label denotes and the logical
// name it belongs to.
func ClassifyLabel(label string) (EntryKind, string) {
	switch {
	case strings.HasSuffix(label, " mfa"):
		return KindSessionKey, strings.TrimSuffix(label, " mfa")
	case strings.HasSuffix(label, " role-key"):
		return KindSessionKey, strings.TrimSuffix(label, " role-key")
	case strings.HasSuffix(label, " token"):
		return KindSessionToken, strings.TrimSuffix(label, " token")
	case strings.HasSuffix(label, " role-token"):
		return KindSessionToken, strings.TrimSuffix(label, " role-token")
	case strings.Contains(label, " role "):
		return KindRoleDefinition, label[:strings.Index(label, " role ")]
	default:
		return KindBaseCredential, label
	}
}

// FindBaseCredential looks up the long lived credential for name.
func FindBaseCredential(store EntryStore, name string) (*BaseCredential, error) {
	entry, err := store.Find(baseLabel(name))
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("no credential named %q, %w", name, ErrNotFound)
	}
	return &BaseCredential{
		Name:            name,
		AccessKeyID:     entry.Account,
		SecretAccessKey: entry.Secret,
		MFADeviceARN:    entry.Annotation,
	}, nil
}

// FindRoleDefinition looks up the role definition roleName under name.
func FindRoleDefinition(store EntryStore, name, roleName string) (*RoleDefinition, error) {
	entry, err := store.Find(roleLabel(name, roleName))
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("no role %q for %q, %w", roleName, name, ErrNotFound)
	}
	return &RoleDefinition{
		Name:        name,
		RoleName:    roleName,
		SessionName: entry.Account,
		RoleARN:     entry.Annotation,
	}, nil
}

// findSession assembles the cached session of the given kind from its two
// halves. Returns nil when neither half exists and ErrMalformedEntry when
// only one does.
func findSession(store EntryStore, name string, kind SessionKind) (*Session, error) {
	key, err := store.Find(sessionKeyLabel(name, kind))
	if err != nil {
		return nil, err
	}
	token, err := store.Find(sessionTokenLabel(name, kind))
	if err != nil {
		return nil, err
	}
	if key == nil && token == nil {
		return nil, nil
	}
	if key == nil || token == nil {
		return nil, fmt.Errorf("%s for %q, %w", kind, name, ErrMalformedEntry)
	}
	return &Session{
		Name:            name,
		Kind:            kind,
		AccessKeyID:     key.Account,
		SecretAccessKey: key.Secret,
		SessionToken:    token.Secret,
		Expiry:          key.Annotation,
	}, nil
}

// saveSession persists both halves of a session pair. scopeRef is the
// display annotation carried by the token half.
func saveSession(store EntryStore, s *Session, scopeRef string) error {
	if _, err := store.Create(sessionKeyLabel(s.Name, s.Kind), s.AccessKeyID, s.SecretAccessKey, s.Expiry); err != nil {
		return err
	}
	if _, err := store.Create(sessionTokenLabel(s.Name, s.Kind), fmt.Sprintf("%s_token", s.AccessKeyID), s.SessionToken, scopeRef); err != nil {
		return err
	}
	return nil
}

// deleteSession removes both halves of a session pair. Absent halves are
// no-ops, so a partial pair is cleaned up and deleting an absent session
// never fails.
func deleteSession(store EntryStore, name string, kind SessionKind) error {
	if err := store.Delete(sessionKeyLabel(name, kind)); err != nil {
		return err
	}
	return store.Delete(sessionTokenLabel(name, kind))
}
