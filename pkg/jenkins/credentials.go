package jenkins

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// CredentialKind selects the credential implementation created remotely.
type CredentialKind string

const (
	UsernamePassword CredentialKind = "username-password"
	SecretText       CredentialKind = "secret-text"
	SSHPrivateKey    CredentialKind = "ssh-key"
)

// Remote class names per credential kind.
var credentialClasses = map[CredentialKind]string{
	UsernamePassword: "com.cloudbees.plugins.credentials.impl.UsernamePasswordCredentialsImpl",
	SecretText:       "org.jenkinsci.plugins.plaincredentials.impl.StringCredentialsImpl",
	SSHPrivateKey:    "com.cloudbees.jenkins.plugins.sshcredentials.impl.BasicSSHUserPrivateKey",
}

var credentialValidate = validator.New()

// CredentialSpec is the secret material of a credential to create. ID is
// generated when empty.
type CredentialSpec struct {
	Kind       CredentialKind `json:"kind"       validate:"oneof=username-password secret-text ssh-key"`
	ID         string         `json:"id"`
	Username   string         `json:"username"   validate:"required_if=Kind username-password,required_if=Kind ssh-key"`
	Password   string         `json:"-"          validate:"required_if=Kind username-password"`
	Secret     string         `json:"-"          validate:"required_if=Kind secret-text"`
	PrivateKey string         `json:"-"          validate:"required_if=Kind ssh-key"`
	Passphrase string         `json:"-"`
}

// Validate checks the fields required by the credential kind.
func (s CredentialSpec) Validate() error {
	err := credentialValidate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fmt.Errorf("%w: invalid %s credential: field %s (%s)", ErrContractViolation, s.Kind, verrs[0].Field(), verrs[0].Tag())
	}

	return fmt.Errorf("%w: %w", ErrContractViolation, err)
}

// Class returns the remote implementation class for the spec's kind.
func (s CredentialSpec) Class() string {
	return credentialClasses[s.Kind]
}

// Payload builds the credential document for the store's create endpoint.
func (s CredentialSpec) Payload(description string) map[string]any {
	credentials := map[string]any{
		"scope":         "GLOBAL",
		"id":            s.ID,
		"description":   description,
		"stapler-class": s.Class(),
		"$class":        s.Class(),
	}

	switch s.Kind {
	case UsernamePassword:
		credentials["username"] = s.Username
		credentials["password"] = s.Password
	case SecretText:
		credentials["secret"] = s.Secret
	case SSHPrivateKey:
		credentials["username"] = s.Username
		credentials["passphrase"] = s.Passphrase
		credentials["privateKeySource"] = map[string]any{
			"stapler-class": "com.cloudbees.jenkins.plugins.sshcredentials.impl.BasicSSHUserPrivateKey$DirectEntryPrivateKeySource",
			"privateKey":    s.PrivateKey,
		}
	}

	return map[string]any{"": "0", "credentials": credentials}
}
