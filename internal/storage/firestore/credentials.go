package firestore

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Default Google OAuth endpoints for service accounts.
const (
	DefaultAuthURI             = "https://accounts.google.com/o/oauth2/auth"
	DefaultTokenURI            = "https://oauth2.googleapis.com/token"
	DefaultAuthProviderCertURL = "https://www.googleapis.com/oauth2/v1/certs"
)

// Credentials holds the service-account fields supplied through configuration.
type Credentials struct {
	ProjectID           string
	PrivateKeyID        string
	PrivateKey          string
	ClientEmail         string
	ClientID            string
	AuthURI             string
	TokenURI            string
	AuthProviderCertURL string
	ClientCertURL       string
}

type serviceAccount struct {
	Type                string `json:"type"`
	ProjectID           string `json:"project_id"`
	PrivateKeyID        string `json:"private_key_id"`
	PrivateKey          string `json:"private_key"`
	ClientEmail         string `json:"client_email"`
	ClientID            string `json:"client_id"`
	AuthURI             string `json:"auth_uri"`
	TokenURI            string `json:"token_uri"`
	AuthProviderCertURL string `json:"auth_provider_x509_cert_url"`
	ClientCertURL       string `json:"client_x509_cert_url"`
}

// Validate enforces the fields required to authenticate.
func (c Credentials) Validate() error {
	var missing []string
	for name, val := range map[string]string{
		"project_id":           c.ProjectID,
		"private_key_id":       c.PrivateKeyID,
		"private_key":          c.PrivateKey,
		"client_email":         c.ClientEmail,
		"client_id":            c.ClientID,
		"client_x509_cert_url": c.ClientCertURL,
	} {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("missing firebase credentials: %s", strings.Join(missing, ", "))
	}
	return nil
}

// JSON renders a service-account key file. Environment variables usually carry
// the private key with literal "\n" sequences, which are expanded here.
func (c Credentials) JSON() ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	sa := serviceAccount{
		Type:                "service_account",
		ProjectID:           c.ProjectID,
		PrivateKeyID:        c.PrivateKeyID,
		PrivateKey:          strings.ReplaceAll(c.PrivateKey, `\n`, "\n"),
		ClientEmail:         c.ClientEmail,
		ClientID:            c.ClientID,
		AuthURI:             valueOr(c.AuthURI, DefaultAuthURI),
		TokenURI:            valueOr(c.TokenURI, DefaultTokenURI),
		AuthProviderCertURL: valueOr(c.AuthProviderCertURL, DefaultAuthProviderCertURL),
		ClientCertURL:       c.ClientCertURL,
	}
	data, err := json.Marshal(sa)
	if err != nil {
		return nil, fmt.Errorf("marshal service account: %w", err)
	}
	return data, nil
}

func valueOr(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
