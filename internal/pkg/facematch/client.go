package facematch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/presensia/attendance-backend-go/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Sentinel errors for the face verification service boundary. A credential
// problem is a distinct failure class from a face mismatch: the caller must
// re-authenticate the service session instead of burning the user's retry
// budget.
var (
	ErrReauthenticate     = errors.New("face verification credential rejected, re-authentication required")
	ErrServiceUnavailable = errors.New("face verification service unavailable")
)

// Result is the verdict of one verification call.
type Result struct {
	Verified bool
	// Message is the human-readable reason surfaced by the service on a
	// mismatch, empty on success.
	Message string
}

type verifyRequest struct {
	CapturedImage string `json:"captured_image"`
	Timestamp     int64  `json:"timestamp"`
}

type verifyResponse struct {
	FaceVerified bool   `json:"face_verified"`
	Message      string `json:"message,omitempty"`
}

// Client calls the external face verification service with a bearer
// credential obtained through the OAuth2 client-credentials grant.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     oauth2.TokenSource
}

func New(cfg config.FaceVerifyConfig) *Client {
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tokens:     cc.TokenSource(context.Background()),
	}
}

// Verify issues exactly one network call with the captured image and its
// capture time. Transport failures and 5xx responses map to
// ErrServiceUnavailable; 401/403 map to ErrReauthenticate. A service-reported
// mismatch is not an error, it is a Result with Verified false.
func (c *Client) Verify(ctx context.Context, capturedImage string, capturedAt time.Time) (Result, error) {
	token, err := c.tokens.Token()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrReauthenticate, err)
	}

	body, err := json.Marshal(verifyRequest{
		CapturedImage: capturedImage,
		Timestamp:     capturedAt.UnixMilli(),
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to encode verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/verify", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("failed to build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	token.SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Result{}, ErrReauthenticate
	case resp.StatusCode >= 500:
		return Result{}, fmt.Errorf("%w: status %d", ErrServiceUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return Result{}, fmt.Errorf("face verification service returned unexpected status %d", resp.StatusCode)
	}

	var vr verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return Result{}, fmt.Errorf("%w: malformed response: %v", ErrServiceUnavailable, err)
	}

	return Result{Verified: vr.FaceVerified, Message: vr.Message}, nil
}
