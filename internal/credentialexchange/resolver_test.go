package credentialexchange_test

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/maneframe/aws-keychain-util/internal/credentialexchange"
	"github.com/maneframe/aws-keychain-util/internal/keystore"
)

// memStore is an in-memory EntryStore used across the engine tests. The
// seed helpers write the literal label conventions on purpose, pinning
// the on-store format.
type memStore struct {
	entries map[string]keystore.Entry
}

func newMemStore() *memStore {
	return &memStore{entries: map[string]keystore.Entry{}}
}

func (m *memStore) Find(label string) (*keystore.Entry, error) {
	if entry, ok := m.entries[label]; ok {
		cp := entry
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) Create(label, account, secret, annotation string) (*keystore.Entry, error) {
	entry := keystore.Entry{Label: label, Account: account, Secret: secret, Annotation: annotation}
	m.entries[label] = entry
	return &entry, nil
}

func (m *memStore) Delete(label string) error {
	delete(m.entries, label)
	return nil
}

func (m *memStore) List() ([]keystore.Entry, error) {
	entries := []keystore.Entry{}
	for _, entry := range m.entries {
		entries = append(entries, entry)
	}
	return entries, nil
}

func (m *memStore) has(label string) bool {
	_, ok := m.entries[label]
	return ok
}

func seedBase(s *memStore, name, accessKey, secretKey, mfaArn string) {
	s.entries[name] = keystore.Entry{Label: name, Account: accessKey, Secret: secretKey, Annotation: mfaArn}
}

func seedRoleDef(s *memStore, name, roleName, sessionName, roleArn string) {
	label := name + " role " + roleName
	s.entries[label] = keystore.Entry{Label: label, Account: sessionName, Annotation: roleArn}
}

func seedMfaPair(s *memStore, name, accessKey, secretKey, token, expiry string) {
	s.entries[name+" mfa"] = keystore.Entry{Label: name + " mfa", Account: accessKey, Secret: secretKey, Annotation: expiry}
	s.entries[name+" token"] = keystore.Entry{Label: name + " token", Account: accessKey + "_token", Secret: token, Annotation: name + " mfa"}
}

func seedRolePair(s *memStore, name, accessKey, secretKey, token, expiry string) {
	s.entries[name+" role-key"] = keystore.Entry{Label: name + " role-key", Account: accessKey, Secret: secretKey, Annotation: expiry}
	s.entries[name+" role-token"] = keystore.Entry{Label: name + " role-token", Account: accessKey + "_token", Secret: token, Annotation: name + " role deploy"}
}

var testNow = time.Unix(1700000000, 0)

func future() string {
	return strconv.FormatInt(testNow.Add(time.Hour).Unix(), 10)
}

func past() string {
	return strconv.FormatInt(testNow.Add(-time.Hour).Unix(), 10)
}

func testResolver(s *memStore) *credentialexchange.Resolver {
	return credentialexchange.NewResolver(s).WithClock(func() time.Time { return testNow })
}

func Test_Resolve_precedence_with(t *testing.T) {
	ttests := map[string]struct {
		seed          func(s *memStore)
		expectKey     string
		expectToken   string
		expectSource  credentialexchange.CredentialSource
		expectAbsent  []string
		expectPresent []string
	}{
		"live role session outranks live mfa session and base": {
			seed: func(s *memStore) {
				seedBase(s, "acct1", "AKIABASE", "basesecret", "")
				seedMfaPair(s, "acct1", "ASIAMFA", "mfasecret", "mfatoken", future())
				seedRolePair(s, "acct1", "ASIAROLE", "rolesecret", "roletoken", future())
			},
			expectKey:    "ASIAROLE",
			expectToken:  "roletoken",
			expectSource: credentialexchange.SourceRoleSession,
		},
		"expired role session is purged and live mfa session wins": {
			seed: func(s *memStore) {
				seedBase(s, "acct1", "AKIABASE", "basesecret", "")
				seedMfaPair(s, "acct1", "ASIAMFA", "mfasecret", "mfatoken", future())
				seedRolePair(s, "acct1", "ASIAROLE", "rolesecret", "roletoken", past())
			},
			expectKey:    "ASIAMFA",
			expectToken:  "mfatoken",
			expectSource: credentialexchange.SourceMFASession,
			expectAbsent: []string{"acct1 role-key", "acct1 role-token"},
		},
		"both sessions expired falls back to base and purges both": {
			seed: func(s *memStore) {
				seedBase(s, "acct1", "AKIABASE", "basesecret", "")
				seedMfaPair(s, "acct1", "ASIAMFA", "mfasecret", "mfatoken", past())
				seedRolePair(s, "acct1", "ASIAROLE", "rolesecret", "roletoken", past())
			},
			expectKey:    "AKIABASE",
			expectToken:  "",
			expectSource: credentialexchange.SourceBase,
			expectAbsent: []string{"acct1 role-key", "acct1 role-token", "acct1 mfa", "acct1 token"},
		},
		"base credential only": {
			seed: func(s *memStore) {
				seedBase(s, "acct1", "AKIABASE", "basesecret", "arn:aws:iam::111:mfa/dev")
			},
			expectKey:    "AKIABASE",
			expectToken:  "",
			expectSource: credentialexchange.SourceBase,
		},
		"orphaned token half is treated as absent and cleaned up": {
			seed: func(s *memStore) {
				seedBase(s, "acct1", "AKIABASE", "basesecret", "")
				s.entries["acct1 role-token"] = keystore.Entry{Label: "acct1 role-token", Secret: "stray"}
			},
			expectKey:    "AKIABASE",
			expectSource: credentialexchange.SourceBase,
			expectAbsent: []string{"acct1 role-token"},
		},
		"session with malformed expiry annotation is never purged": {
			seed: func(s *memStore) {
				seedBase(s, "acct1", "AKIABASE", "basesecret", "")
				seedMfaPair(s, "acct1", "ASIAMFA", "mfasecret", "mfatoken", "not-a-timestamp")
			},
			expectKey:    "ASIAMFA",
			expectToken:  "mfatoken",
			expectSource: credentialexchange.SourceMFASession,
		},
		"purge leaves unrelated scopes untouched": {
			seed: func(s *memStore) {
				seedBase(s, "acct1", "AKIABASE", "basesecret", "")
				seedRolePair(s, "acct1", "ASIAROLE", "rolesecret", "roletoken", past())
				seedBase(s, "acct2", "AKIAOTHER", "othersecret", "")
				seedRolePair(s, "acct2", "ASIAOTHER", "otherrole", "othertoken", future())
			},
			expectKey:     "AKIABASE",
			expectSource:  credentialexchange.SourceBase,
			expectAbsent:  []string{"acct1 role-key", "acct1 role-token"},
			expectPresent: []string{"acct2 role-key", "acct2 role-token", "acct2"},
		},
	}
	for name, tt := range ttests {
		t.Run(name, func(t *testing.T) {
			store := newMemStore()
			tt.seed(store)

			got, err := testResolver(store).Resolve("acct1")
			if err != nil {
				t.Fatalf("got %s, wanted <nil>", err)
			}
			if got.AccessKeyID != tt.expectKey {
				t.Errorf("access key: got %s, wanted %s", got.AccessKeyID, tt.expectKey)
			}
			if got.SessionToken != tt.expectToken {
				t.Errorf("session token: got %s, wanted %s", got.SessionToken, tt.expectToken)
			}
			if got.Source != tt.expectSource {
				t.Errorf("source: got %s, wanted %s", got.Source, tt.expectSource)
			}
			for _, label := range tt.expectAbsent {
				if store.has(label) {
					t.Errorf("expected %q to be purged", label)
				}
			}
			for _, label := range tt.expectPresent {
				if !store.has(label) {
					t.Errorf("expected %q to be untouched", label)
				}
			}
		})
	}
}

func Test_Resolve_fails_when_nothing_stored(t *testing.T) {
	store := newMemStore()

	_, err := testResolver(store).Resolve("ghost")
	if err == nil {
		t.Fatalf("got <nil>, wanted %s", credentialexchange.ErrNotFound)
	}
	if !errors.Is(err, credentialexchange.ErrNotFound) {
		t.Errorf("got %s, wanted %s", err, credentialexchange.ErrNotFound)
	}
}

func Test_Resolve_expired_session_then_base(t *testing.T) {
	// resolving twice: the first call purges, the second finds a clean store
	store := newMemStore()
	seedBase(store, "acct1", "AKIABASE", "basesecret", "")
	seedMfaPair(store, "acct1", "ASIAMFA", "mfasecret", "mfatoken", past())

	resolver := testResolver(store)
	for i := 0; i < 2; i++ {
		got, err := resolver.Resolve("acct1")
		if err != nil {
			t.Fatalf("resolve %d: got %s, wanted <nil>", i, err)
		}
		if got.Source != credentialexchange.SourceBase {
			t.Errorf("resolve %d: got %s, wanted base credential", i, got.Source)
		}
	}
	if store.has("acct1 mfa") || store.has("acct1 token") {
		t.Error("expected expired mfa pair to be purged")
	}
}

func Test_Remove_with(t *testing.T) {
	ttests := map[string]struct {
		seed          func(s *memStore)
		expectAbsent  []string
		expectPresent []string
		expectErr     bool
	}{
		"live role session pair is removed, base stays": {
			seed: func(s *memStore) {
				seedBase(s, "acct1", "AKIABASE", "basesecret", "")
				seedRolePair(s, "acct1", "ASIAROLE", "rolesecret", "roletoken", future())
			},
			expectAbsent:  []string{"acct1 role-key", "acct1 role-token"},
			expectPresent: []string{"acct1"},
		},
		"live mfa session pair is removed, base stays": {
			seed: func(s *memStore) {
				seedBase(s, "acct1", "AKIABASE", "basesecret", "")
				seedMfaPair(s, "acct1", "ASIAMFA", "mfasecret", "mfatoken", future())
			},
			expectAbsent:  []string{"acct1 mfa", "acct1 token"},
			expectPresent: []string{"acct1"},
		},
		"base credential is removed when no session is cached": {
			seed: func(s *memStore) {
				seedBase(s, "acct1", "AKIABASE", "basesecret", "")
			},
			expectAbsent: []string{"acct1"},
		},
		"nothing stored": {
			seed:      func(s *memStore) {},
			expectErr: true,
		},
	}
	for name, tt := range ttests {
		t.Run(name, func(t *testing.T) {
			store := newMemStore()
			tt.seed(store)

			err := testResolver(store).Remove("acct1")
			if tt.expectErr {
				if err == nil {
					t.Fatalf("got <nil>, wanted %s", credentialexchange.ErrNotFound)
				}
				if !errors.Is(err, credentialexchange.ErrNotFound) {
					t.Errorf("got %s, wanted %s", err, credentialexchange.ErrNotFound)
				}
				return
			}
			if err != nil {
				t.Fatalf("got %s, wanted <nil>", err)
			}
			for _, label := range tt.expectAbsent {
				if store.has(label) {
					t.Errorf("expected %q to be removed", label)
				}
			}
			for _, label := range tt.expectPresent {
				if !store.has(label) {
					t.Errorf("expected %q to remain", label)
				}
			}
		})
	}
}
