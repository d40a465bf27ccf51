package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"alerts-service/internal/models"
)

// Authenticator resolves a credential token to a user. A nil user with a
// nil error means the token was rejected.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// HTTPAuthenticator verifies tokens against the platform's identity
// service. The token format itself is opaque to this service.
type HTTPAuthenticator struct {
	baseURL string
	client  *http.Client
}

func NewHTTPAuthenticator(baseURL string, timeout time.Duration) *HTTPAuthenticator {
	return &HTTPAuthenticator{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Authenticate posts the token to the identity service's verify endpoint.
func (a *HTTPAuthenticator) Authenticate(ctx context.Context, token string) (*models.User, error) {
	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/verify", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity service unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var u models.User
		if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
			return nil, fmt.Errorf("failed to decode identity response: %w", err)
		}
		return &u, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, nil
	default:
		return nil, fmt.Errorf("identity service returned status %d", resp.StatusCode)
	}
}
