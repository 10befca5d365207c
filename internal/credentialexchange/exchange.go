package credentialexchange

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/aws-sdk-go-v2/service/sts/types"
	"github.com/aws/smithy-go"
)

var (
	ErrUnableAssume        = errors.New("unable to assume")
	ErrUnableSessionCreate = errors.New("unable to create a session")
	// ErrRemoteRejected marks an access-denied class refusal from STS,
	// carrying the remote message verbatim.
	ErrRemoteRejected = errors.New("token exchange rejected")
)

type AssumeRoleApi interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
}

type SessionTokenApi interface {
	GetSessionToken(ctx context.Context, params *sts.GetSessionTokenInput, optFns ...func(*sts.Options)) (*sts.GetSessionTokenOutput, error)
}

// StsApi is the full STS surface the exchange consumes.
type StsApi interface {
	AssumeRoleApi
	SessionTokenApi
}

// ClientFactory builds an STS client authenticated as the given base
// credential. Injected so the cmd layer owns SDK config loading.
type ClientFactory func(ctx context.Context, base *BaseCredential) (StsApi, error)

// RoleSelection is the three-state role argument: a concrete role name,
// or the explicit "none" sentinel meaning log out of any assumed role.
type RoleSelection struct {
	name string
	none bool
}

func RoleNamed(name string) RoleSelection {
	return RoleSelection{name: name}
}

func RoleNone() RoleSelection {
	return RoleSelection{none: true}
}

// ParseRoleArg maps the CLI argument to a RoleSelection. An absent
// argument never reaches here; argument arity is enforced by the CLI.
func ParseRoleArg(arg string) RoleSelection {
	if arg == RoleNoneArg {
		return RoleNone()
	}
	return RoleNamed(arg)
}

func (r RoleSelection) IsNone() bool {
	return r.none
}

func (r RoleSelection) Name() string {
	return r.name
}

// Exchange performs the two remote token exchange protocols. Both follow
// the same shape: invalidate any cached session for the scope, issue
// against STS, persist the result as a fresh session pair. Tear-down runs
// before issuing, so a refused exchange leaves the scope logged out
// rather than holding a conflicting cache.
type Exchange struct {
	store     EntryStore
	clientFor ClientFactory
}

func NewExchange(store EntryStore, clientFor ClientFactory) *Exchange {
	return &Exchange{store: store, clientFor: clientFor}
}

// AssumeRole exchanges the base credential of name for a role session on
// the named role definition, requesting a fixed 1 hour duration. Any
// cached role or MFA session for name is removed first, even when still
// live. A RoleNone selection stops after the tear-down, which is the
// "log out of role" path. Returns the persisted session, or nil for
// RoleNone.
func (x *Exchange) AssumeRole(ctx context.Context, name string, role RoleSelection, mfaCode string) (*Session, error) {
	base, err := FindBaseCredential(x.store, name)
	if err != nil {
		return nil, err
	}
	if err := deleteSession(x.store, name, SessionRole); err != nil {
		return nil, err
	}
	if err := deleteSession(x.store, name, SessionMFA); err != nil {
		return nil, err
	}
	if role.IsNone() {
		return nil, nil
	}

	def, err := FindRoleDefinition(x.store, name, role.Name())
	if err != nil {
		return nil, err
	}
	svc, err := x.clientFor(ctx, base)
	if err != nil {
		return nil, err
	}

	input := &sts.AssumeRoleInput{
		RoleArn:         aws.String(def.RoleARN),
		RoleSessionName: aws.String(def.SessionName),
		DurationSeconds: aws.Int32(RoleSessionDuration),
	}
	if mfaCode != "" {
		input.SerialNumber = aws.String(base.MFADeviceARN)
		input.TokenCode = aws.String(mfaCode)
	}

	out, err := svc.AssumeRole(ctx, input)
	if err != nil {
		return nil, classifyRemoteErr(err, ErrUnableAssume)
	}

	session := sessionFromCreds(name, SessionRole, out.Credentials)
	if err := saveSession(x.store, session, roleLabel(name, role.Name())); err != nil {
		return nil, err
	}
	return session, nil
}

// IssueMFASession exchanges the base credential of name plus an MFA code
// for a session token with a fixed 12 hour duration. Any cached role or
// MFA session for name is removed first.
func (x *Exchange) IssueMFASession(ctx context.Context, name, mfaCode string) (*Session, error) {
	if err := deleteSession(x.store, name, SessionRole); err != nil {
		return nil, err
	}
	if err := deleteSession(x.store, name, SessionMFA); err != nil {
		return nil, err
	}
	base, err := FindBaseCredential(x.store, name)
	if err != nil {
		return nil, err
	}
	svc, err := x.clientFor(ctx, base)
	if err != nil {
		return nil, err
	}

	out, err := svc.GetSessionToken(ctx, &sts.GetSessionTokenInput{
		SerialNumber:    aws.String(base.MFADeviceARN),
		TokenCode:       aws.String(mfaCode),
		DurationSeconds: aws.Int32(MFASessionDuration),
	})
	if err != nil {
		return nil, classifyRemoteErr(err, ErrUnableSessionCreate)
	}

	session := sessionFromCreds(name, SessionMFA, out.Credentials)
	if err := saveSession(x.store, session, sessionKeyLabel(name, SessionMFA)); err != nil {
		return nil, err
	}
	return session, nil
}

func sessionFromCreds(name string, kind SessionKind, creds *types.Credentials) *Session {
	return &Session{
		Name:            name,
		Kind:            kind,
		AccessKeyID:     aws.ToString(creds.AccessKeyId),
		SecretAccessKey: aws.ToString(creds.SecretAccessKey),
		SessionToken:    aws.ToString(creds.SessionToken),
		Expiry:          strconv.FormatInt(aws.ToTime(creds.Expiration).Unix(), 10),
	}
}

// classifyRemoteErr maps access-denied class API errors to
// ErrRemoteRejected with the remote message preserved; anything else
// wraps the fallback sentinel.
func classifyRemoteErr(err error, fallback error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "AccessDeniedException":
			return fmt.Errorf("%s, %w", apiErr.ErrorMessage(), ErrRemoteRejected)
		}
	}
	return fmt.Errorf("%s, %w", err, fallback)
}
