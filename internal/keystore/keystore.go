// keystore
//
// Labelled entry store over the OS secret store.
//
// Every persisted object shares one physical shape - label, account, secret,
// annotation. Entries are JSON encoded into a single keyring item per label
// and an ini index file tracks which labels currently live in the keyring,
// since the keyring itself cannot enumerate.
package keystore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/werf/lockgate"
	"github.com/werf/lockgate/pkg/file_locker"
	"github.com/zalando/go-keyring"
	ini "gopkg.in/ini.v1"
)

const (
	// ServiceName is the keyring service all entries are stored under.
	ServiceName = "aws-keychain-util"

	indexSection = "entry"
)

var (
	ErrCannotLockDir         = errors.New("unable to create lock dir")
	ErrUnableToAcquireLock   = errors.New("cannot acquire lock")
	ErrUnableToLoadDueToLock = errors.New("cannot access store due to lock error")
	ErrStoreFailure          = errors.New("secret store failure")
	ErrUnmarshallingEntry    = errors.New("cannot unmarshal entry")
)

// Entry is the single physical record shape held in the store.
type Entry struct {
	Label      string `json:"-"`
	Account    string `json:"account"`
	Secret     string `json:"secret"`
	Annotation string `json:"annotation"`
}

// Keyring is the OS keyring surface consumed by the store.
type Keyring interface {
	Set(service, user, password string) error
	Get(service, user string) (string, error)
	Delete(service, user string) error
}

// keyRingImpl is the default keyring implementation
type keyRingImpl struct{}

func (k *keyRingImpl) Set(service, user, password string) error {
	return keyring.Set(service, user, password)
}
func (k *keyRingImpl) Get(service, user string) (string, error) {
	return keyring.Get(service, user)
}
func (k *keyRingImpl) Delete(service, user string) error {
	return keyring.Delete(service, user)
}

// Store is a labelled entry store backed by the OS keyring.
type Store struct {
	keyring      Keyring
	locker       lockgate.Locker
	lockResource string
	service      string
	indexFile    string
}

// New sets up a store rooted in baseDir (the user home dir when empty),
// which holds the label index file and the lock dir.
func New(baseDir string) (*Store, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("unable to get the user home dir: %s, %w", err, ErrStoreFailure)
		}
		baseDir = home
	}

	lockDir := path.Join(baseDir, fmt.Sprintf(".%s-lock", ServiceName))
	locker, err := file_locker.NewFileLocker(lockDir)
	if err != nil {
		return nil, fmt.Errorf("cannot setup lock dir: %s, %w", lockDir, ErrCannotLockDir)
	}

	return &Store{
		keyring:      &keyRingImpl{},
		locker:       locker,
		lockResource: ServiceName,
		service:      ServiceName,
		indexFile:    path.Join(baseDir, fmt.Sprintf(".%s.ini", ServiceName)),
	}, nil
}

func (s *Store) WithKeyring(keyring Keyring) *Store {
	s.keyring = keyring
	return s
}

func (s *Store) WithLocker(locker lockgate.Locker) *Store {
	s.locker = locker
	return s
}

func (s *Store) WithService(service string) *Store {
	s.service = service
	return s
}

func (s *Store) ensureLock() (func(), error) {
	acquired, lock, err := s.locker.Acquire(s.lockResource, lockgate.AcquireOptions{Shared: false, Timeout: 1 * time.Minute})
	if err != nil {
		return nil, fmt.Errorf("%s, %w", err, ErrUnableToAcquireLock)
	}
	if !acquired {
		return nil, fmt.Errorf("%s, %w", err, ErrUnableToLoadDueToLock)
	}
	return func() {
		if err := s.locker.Release(lock); err != nil {
			fmt.Fprintf(os.Stderr, "failed to release lock: %s\n", err)
		}
	}, nil
}

// Find returns the entry stored under label, or nil when absent.
func (s *Store) Find(label string) (*Entry, error) {
	raw, err := s.keyring.Get(s.service, label)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s, %w", err, ErrStoreFailure)
	}

	entry := &Entry{Label: label}
	if err := json.Unmarshal([]byte(raw), entry); err != nil {
		return nil, fmt.Errorf("%s, %w", err, ErrUnmarshallingEntry)
	}
	return entry, nil
}

// Create writes a new entry under label, replacing any previous one,
// and records the label in the index.
func (s *Store) Create(label, account, secret, annotation string) (*Entry, error) {
	release, err := s.ensureLock()
	if err != nil {
		return nil, err
	}
	defer release()

	entry := &Entry{
		Label:      label,
		Account:    account,
		Secret:     secret,
		Annotation: annotation,
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	if err := s.keyring.Set(s.service, label, string(raw)); err != nil {
		return nil, fmt.Errorf("%s, %w", err, ErrStoreFailure)
	}
	if err := s.indexAdd(label); err != nil {
		return nil, err
	}
	return entry, nil
}

// Delete removes the entry stored under label. Deleting an absent
// entry is a no-op.
func (s *Store) Delete(label string) error {
	release, err := s.ensureLock()
	if err != nil {
		return err
	}
	defer release()

	if err := s.keyring.Delete(s.service, label); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%s, %w", err, ErrStoreFailure)
	}
	return s.indexRemove(label)
}

// List returns every entry recorded in the index. Index rows whose
// keyring item has since vanished are pruned and skipped.
func (s *Store) List() ([]Entry, error) {
	release, err := s.ensureLock()
	if err != nil {
		return nil, err
	}
	defer release()

	cfg, err := ini.LooseLoad(s.indexFile)
	if err != nil {
		return nil, fmt.Errorf("fail to read index file: %s, %w", err, ErrStoreFailure)
	}

	entries := []Entry{}
	for _, key := range cfg.Section(indexSection).Keys() {
		label := key.Name()
		entry, err := s.Find(label)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			if err := s.indexRemove(label); err != nil {
				return nil, err
			}
			continue
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

func (s *Store) indexAdd(label string) error {
	cfg, err := ini.LooseLoad(s.indexFile)
	if err != nil {
		return fmt.Errorf("fail to read index file: %s, %w", err, ErrStoreFailure)
	}
	cfg.Section(indexSection).Key(label).SetValue("1")
	return cfg.SaveTo(s.indexFile)
}

func (s *Store) indexRemove(label string) error {
	cfg, err := ini.LooseLoad(s.indexFile)
	if err != nil {
		return fmt.Errorf("fail to read index file: %s, %w", err, ErrStoreFailure)
	}
	if !cfg.Section(indexSection).HasKey(label) {
		return nil
	}
	cfg.Section(indexSection).DeleteKey(label)
	return cfg.SaveTo(s.indexFile)
}
