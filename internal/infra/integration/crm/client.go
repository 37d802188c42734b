package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/xavierca1/crm-sync/internal/entity"
	"github.com/xavierca1/crm-sync/internal/infra/retry"
	"github.com/xavierca1/crm-sync/internal/usecase"
)

const (
	DefaultClientID     = "dummy"
	DefaultClientSecret = "dummy"

	maxErrorBody = 4 << 10
)

type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	Policy     retry.Policy

	credentials clientcredentials.Config
}

func NewClient(baseURL, clientID, clientSecret string, policy retry.Policy) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	if clientID == "" {
		clientID = DefaultClientID
	}
	if clientSecret == "" {
		clientSecret = DefaultClientSecret
	}

	return &Client{
		// per-attempt deadlines come from the retry policy
		HTTPClient: &http.Client{},
		BaseURL:    baseURL,
		Policy:     policy,
		credentials: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     baseURL + "/token",
			AuthStyle:    oauth2.AuthStyleInParams,
		},
	}
}

// AcquireToken fetches a fresh bearer token. Tokens are not cached; every
// sync run asks for its own.
func (c *Client) AcquireToken(ctx context.Context) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.HTTPClient)

	tok, err := retry.Do(ctx, c.Policy, "OAuth token retrieval", func(ctx context.Context) (*oauth2.Token, error) {
		tok, err := c.credentials.Token(ctx)
		if err != nil {
			return nil, tokenError(err)
		}
		return tok, nil
	})
	if err != nil {
		return "", &usecase.AuthError{Err: err}
	}

	slog.Debug("CRM token acquired", "expires_at", tok.Expiry)
	return tok.AccessToken, nil
}

// PushUser creates u in the CRM and returns the id the CRM assigned.
func (c *Client) PushUser(ctx context.Context, u *entity.User, token string) (string, error) {
	label := fmt.Sprintf("CRM user creation for %s", u.Email)

	crmID, err := retry.Do(ctx, c.Policy, label, func(ctx context.Context) (string, error) {
		return c.createUser(ctx, u, token)
	})
	if err != nil {
		return "", &usecase.PushError{UserID: u.ID, Err: err}
	}
	return crmID, nil
}

func (c *Client) createUser(ctx context.Context, u *entity.User, token string) (string, error) {
	const endpoint = "/users"

	body, err := json.Marshal(CreateUserRequest{Name: u.Name, Email: u.Email, Phone: u.Phone})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	c.addAuthHeaders(req, token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", &usecase.TransientRemoteError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", &usecase.TransientRemoteError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	var result CreateUserResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", &usecase.TransientRemoteError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if result.CRMID == "" {
		return "", &usecase.TransientRemoteError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: "response has no crm_id"}
	}

	return result.CRMID, nil
}

func (c *Client) addAuthHeaders(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

func tokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return &usecase.TransientRemoteError{
			Endpoint:   "/token",
			StatusCode: re.Response.StatusCode,
			Body:       strings.TrimSpace(string(re.Body)),
		}
	}
	return &usecase.TransientRemoteError{Endpoint: "/token", Err: err}
}
