package auth

import (
	"context"
)

type AuthService interface {
	// Login authenticates an employee by employee code and password.
	Login(ctx context.Context, req LoginRequest) (LoginResponse, error)

	// SSEToken issues a short-lived token for EventSource connections, which
	// cannot carry an Authorization header.
	SSEToken(ctx context.Context) (SSETokenResponse, error)
}
