package telecom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Chative-core-poc-v1/callcenter/internal/agent/identity"
	"github.com/Chative-core-poc-v1/callcenter/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/callcenter/internal/core/error"
	logx "github.com/Chative-core-poc-v1/callcenter/pkg/logger"
)

// ErrUserNotFound is returned when no account matches an identifier.
var ErrUserNotFound = errx.New(errors.New("user not found"), http.StatusNotFound, "user not found")

const maxErrBody = 512

// Client talks to the account-data REST API. Every call carries its own timeout; non-200
// responses come back as *errx.AppError with the upstream status.
type Client struct {
	baseURL      string
	http         *http.Client
	timeout      time.Duration
	probeTimeout time.Duration
}

func NewClient(cfg model.AccountAPIConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	probe := cfg.ProbeTimeout
	if probe <= 0 {
		probe = 5 * time.Second
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		http:         httpClient,
		timeout:      timeout,
		probeTimeout: probe,
	}
}

// Ping is the liveness probe: a one-row user listing within the probe timeout.
func (c *Client) Ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()
	_, err := c.do(ctx, http.MethodGet, "/api/v1/users?limit=1", nil)
	if err != nil {
		logx.Warn().Err(err).Str("base_url", c.baseURL).Msg("account api liveness probe failed")
		return false
	}
	return true
}

// FindUser lists users and matches a normalized phone number against each user's phone,
// or a customer id against customer_id.
func (c *Client) FindUser(ctx context.Context, identifier string) (*model.User, error) {
	raw, err := c.get(ctx, "/api/v1/users")
	if err != nil {
		return nil, err
	}
	users, err := decodeUsers(raw)
	if err != nil {
		return nil, err
	}
	isPhone := identity.IsPhone(identifier)
	for i := range users {
		u := users[i]
		if isPhone && u.PhoneNumber != "" && identity.NormalizePhone(u.PhoneNumber) == identifier {
			return &u, nil
		}
		if !isPhone && strings.EqualFold(u.CustomerID, identifier) {
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

// UserResource fetches /api/v1/user-info/{id}/{resource} (package, bills, tickets, ...).
func (c *Client) UserResource(ctx context.Context, userID int, resource string) (json.RawMessage, error) {
	return c.get(ctx, "/api/v1/user-info/"+strconv.Itoa(userID)+"/"+url.PathEscape(resource))
}

func (c *Client) Packages(ctx context.Context) ([]model.Package, error) {
	raw, err := c.get(ctx, "/api/v1/packages")
	if err != nil {
		return nil, err
	}
	var pkgs []model.Package
	if err := json.Unmarshal(raw, &pkgs); err != nil {
		var wrapped struct {
			Packages []model.Package `json:"packages"`
		}
		if err2 := json.Unmarshal(raw, &wrapped); err2 != nil {
			return nil, fmt.Errorf("decode packages: %w", err)
		}
		pkgs = wrapped.Packages
	}
	return pkgs, nil
}

func (c *Client) CreateTicket(ctx context.Context, req model.TicketRequest) (json.RawMessage, error) {
	return c.send(ctx, http.MethodPost, "/api/v1/tickets", req)
}

// UpdateUser sends a partial update of the user resource.
func (c *Client) UpdateUser(ctx context.Context, userID int, fields map[string]any) (json.RawMessage, error) {
	return c.send(ctx, http.MethodPut, "/api/v1/users/"+strconv.Itoa(userID), fields)
}

func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) send(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s %s: %w", method, path, err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.do(ctx, method, path, bytes.NewReader(b))
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errx.Upstream(fmt.Errorf("%s %s: %w", method, path, err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errx.Upstream(fmt.Errorf("read %s %s: %w", method, path, err))
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		snippet := string(data)
		if len(snippet) > maxErrBody {
			snippet = snippet[:maxErrBody]
		}
		return nil, errx.New(
			fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(snippet)),
			resp.StatusCode,
			"account api returned "+strconv.Itoa(resp.StatusCode),
		)
	}
	return json.RawMessage(data), nil
}

func decodeUsers(raw json.RawMessage) ([]model.User, error) {
	var wrapped struct {
		Users []model.User `json:"users"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Users != nil {
		return wrapped.Users, nil
	}
	var users []model.User
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}
