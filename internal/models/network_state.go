package models

import "fmt"

type AuthStatus string

const (
	AuthAvailable  AuthStatus = "available"
	AuthSignedOut  AuthStatus = "signedOut"
	AuthRestricted AuthStatus = "restricted"
)

func ParseAuthStatus(s string) (AuthStatus, error) {
	switch AuthStatus(s) {
	case AuthAvailable, AuthSignedOut, AuthRestricted:
		return AuthStatus(s), nil
	case "":
		return AuthAvailable, nil
	}
	return "", fmt.Errorf("unknown auth status %q", s)
}

// NetworkAuthState drives whether sync attempts run.
type NetworkAuthState struct {
	IsNetworkAvailable bool       `json:"networkAvailable"`
	AuthStatus         AuthStatus `json:"authStatus"`
}

func (s NetworkAuthState) Favorable() bool {
	return s.IsNetworkAvailable && s.AuthStatus == AuthAvailable
}
