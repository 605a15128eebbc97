package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrBadCredentials is returned when a client id or secret does not match.
var ErrBadCredentials = errors.New("invalid client credentials")

// Client is an API caller allowed to exchange its secret for a token.
type Client struct {
	ID         string `mapstructure:"id" yaml:"id"`
	SecretHash string `mapstructure:"secret_hash" yaml:"secret_hash"`
	Role       string `mapstructure:"role" yaml:"role"`
}

// ClientDirectory verifies client credentials against bcrypt hashes.
type ClientDirectory struct {
	clients map[string]Client
}

// NewClientDirectory indexes clients by id. Clients with an unknown role are rejected.
func NewClientDirectory(clients []Client) (*ClientDirectory, error) {
	d := &ClientDirectory{clients: make(map[string]Client, len(clients))}
	for _, c := range clients {
		if c.ID == "" || c.SecretHash == "" {
			return nil, fmt.Errorf("client entries need an id and a secret hash")
		}
		if !ValidRole(c.Role) {
			return nil, fmt.Errorf("client %s has unknown role %q", c.ID, c.Role)
		}
		d.clients[c.ID] = c
	}
	return d, nil
}

// Authenticate returns the client when secret matches its stored hash.
func (d *ClientDirectory) Authenticate(id, secret string) (*Client, error) {
	c, ok := d.clients[id]
	if !ok {
		// Burn comparable time so unknown ids are not distinguishable.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(secret))
		return nil, ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.SecretHash), []byte(secret)); err != nil {
		return nil, ErrBadCredentials
	}
	return &c, nil
}

// HashSecret hashes a client secret for storage in configuration.
func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("secret must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hash), nil
}

var dummyHash = []byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z3E1gk5ZQ0P8a3Q0V9eHq6Ue")
