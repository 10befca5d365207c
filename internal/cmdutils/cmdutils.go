// cmdutils bridges the CLI verbs to the resolution and exchange engine.
package cmdutils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"time"

	"github.com/maneframe/aws-keychain-util/internal/credentialexchange"
	"github.com/maneframe/aws-keychain-util/internal/keystore"
)

var ErrNoShell = errors.New("no shell to spawn")

// SecretStorageImpl is the full store surface the command layer needs.
type SecretStorageImpl interface {
	credentialexchange.EntryStore
	List() ([]keystore.Entry, error)
}

// Format selects how a resolved credential is rendered.
type Format int

const (
	// FormatCat prints aws_access_key_id/aws_secret_access_key lines.
	FormatCat Format = iota
	// FormatEnv prints shell export lines.
	FormatEnv
	// FormatProcess prints the credential_process JSON payload.
	FormatProcess
)

// credentialProcessOutput is the payload shape the AWS CLI expects from a
// credential_process helper.
type credentialProcessOutput struct {
	Version         int    `json:"Version"`
	AccessKeyID     string `json:"AccessKeyId"`
	SecretAccessKey string `json:"SecretAccessKey"`
	SessionToken    string `json:"SessionToken,omitempty"`
}

// ShowCredentials resolves name and renders the active credential set.
func ShowCredentials(w io.Writer, store credentialexchange.EntryStore, name string, format Format) error {
	cred, err := credentialexchange.NewResolver(store).Resolve(name)
	if err != nil {
		return err
	}

	switch format {
	case FormatEnv:
		for _, kv := range credentialEnv(cred) {
			fmt.Fprintf(w, "export %s\n", kv)
		}
	case FormatProcess:
		out := credentialProcessOutput{
			Version:         1,
			AccessKeyID:     cred.AccessKeyID,
			SecretAccessKey: cred.SecretAccessKey,
			SessionToken:    cred.SessionToken,
		}
		jsonBytes, err := json.Marshal(out)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(jsonBytes))
	default:
		fmt.Fprintf(w, "aws_access_key_id: %s\n", cred.AccessKeyID)
		fmt.Fprintf(w, "aws_secret_access_key: %s\n", cred.SecretAccessKey)
		if cred.HasSession() {
			fmt.Fprintf(w, "aws_session_token: %s\n", cred.SessionToken)
		}
	}
	return nil
}

// RunShell resolves name and spawns $SHELL with the credential set
// injected into its environment.
func RunShell(store credentialexchange.EntryStore, name string) error {
	cred, err := credentialexchange.NewResolver(store).Resolve(name)
	if err != nil {
		return err
	}
	shell, exists := os.LookupEnv("SHELL")
	if !exists {
		return fmt.Errorf("SHELL is not set, %w", ErrNoShell)
	}

	cmd := exec.Command(shell)
	cmd.Env = append(os.Environ(), credentialEnv(cred)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func credentialEnv(cred *credentialexchange.Credential) []string {
	env := []string{
		fmt.Sprintf("AWS_ACCESS_KEY_ID=%s", cred.AccessKeyID),
		fmt.Sprintf("AWS_SECRET_ACCESS_KEY=%s", cred.SecretAccessKey),
	}
	if cred.HasSession() {
		env = append(env,
			fmt.Sprintf("AWS_SESSION_TOKEN=%s", cred.SessionToken),
			// older SDKs read the legacy name
			fmt.Sprintf("AWS_SECURITY_TOKEN=%s", cred.SessionToken),
		)
	}
	return env
}

// Remove deletes the currently active entity for name: the live session
// pair if one exists, otherwise the base credential.
func Remove(store credentialexchange.EntryStore, name string) error {
	return credentialexchange.NewResolver(store).Remove(name)
}

// ListEntries prints every store entry with its record type and, for
// session halves carrying an expiry, whether it has lapsed.
func ListEntries(w io.Writer, store SecretStorageImpl) error {
	entries, err := store.List()
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Label < entries[j].Label })

	now := time.Now()
	for _, entry := range entries {
		kind, _ := credentialexchange.ClassifyLabel(entry.Label)
		state := ""
		if kind == credentialexchange.KindSessionKey {
			switch {
			case credentialexchange.IsExpired(entry.Annotation, now):
				state = " (expired)"
			default:
				if epoch, err := strconv.ParseInt(entry.Annotation, 10, 64); err == nil {
					state = fmt.Sprintf(" (expires %s)", time.Unix(epoch, 0).Format(time.RFC3339))
				}
			}
		}
		fmt.Fprintf(w, "%-13s %s%s\n", kind, entry.Label, state)
	}
	return nil
}

// AssumeRole runs the role assumption exchange and reports the outcome.
// A remote rejection is printed, not returned: the tear-down has already
// logged the scope out and the invocation is considered handled.
func AssumeRole(ctx context.Context, w io.Writer, store credentialexchange.EntryStore, clientFor credentialexchange.ClientFactory, name, roleArg, mfaCode string) error {
	exchange := credentialexchange.NewExchange(store, clientFor)
	session, err := exchange.AssumeRole(ctx, name, credentialexchange.ParseRoleArg(roleArg), mfaCode)
	if err != nil {
		if errors.Is(err, credentialexchange.ErrRemoteRejected) {
			fmt.Fprintln(w, err.Error())
			return nil
		}
		return err
	}
	if session == nil {
		fmt.Fprintf(w, "logged out of role for %s\n", name)
		return nil
	}
	fmt.Fprintf(w, "assumed %s until %s\n", roleArg, formatExpiry(session.Expiry))
	return nil
}

// MFALogin runs the MFA session issuance exchange, with the same remote
// rejection handling as AssumeRole.
func MFALogin(ctx context.Context, w io.Writer, store credentialexchange.EntryStore, clientFor credentialexchange.ClientFactory, name, mfaCode string) error {
	exchange := credentialexchange.NewExchange(store, clientFor)
	session, err := exchange.IssueMFASession(ctx, name, mfaCode)
	if err != nil {
		if errors.Is(err, credentialexchange.ErrRemoteRejected) {
			fmt.Fprintln(w, err.Error())
			return nil
		}
		return err
	}
	fmt.Fprintf(w, "mfa session for %s until %s\n", name, formatExpiry(session.Expiry))
	return nil
}

func formatExpiry(annotation string) string {
	epoch, err := strconv.ParseInt(annotation, 10, 64)
	if err != nil {
		return annotation
	}
	return time.Unix(epoch, 0).Format(time.RFC3339)
}
