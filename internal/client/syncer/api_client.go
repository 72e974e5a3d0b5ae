package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sports_club_backend/internal/models"
	"sports_club_backend/pkg/utils"
)

// APIError is an error envelope returned by the server.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Code, e.Message)
}

// APIClient calls the action endpoint of the API server.
type APIClient struct {
	baseURL string
	token   string
	clubID  string
	http    *http.Client
}

// NewAPIClient creates a client for the exec endpoint at baseURL, e.g.
// http://localhost:8080/api/v1/exec.
func NewAPIClient(baseURL, token, clubID string, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &APIClient{baseURL: strings.TrimRight(baseURL, "/"), token: token, clubID: clubID, http: httpClient}
}

// WithClub returns a copy of the client bound to another sports club.
func (c *APIClient) WithClub(clubID string) *APIClient {
	cp := *c
	cp.clubID = clubID
	return &cp
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Call runs action with params and decodes the envelope data into out.
func (c *APIClient) Call(ctx context.Context, action string, params url.Values, out interface{}) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("parsing base url: %w", err)
	}
	q := u.Query()
	for k, v := range params {
		q[k] = v
	}
	q.Set("action", action)
	if c.clubID != "" {
		q.Set("sportsClubId", c.clubID)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("building %s request: %w", action, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", action, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decoding %s response (status %d): %w", action, resp.StatusCode, err)
	}
	if env.Status != utils.StatusSuccess {
		apiErr := &APIError{Code: resp.StatusCode, Message: "unexpected response"}
		if env.Error != nil {
			apiErr.Code, apiErr.Message = env.Error.Code, env.Error.Message
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decoding %s data: %w", action, err)
	}
	return nil
}

func sinceParams(sinceID string) url.Values {
	params := url.Values{}
	if sinceID != "" {
		params.Set("sinceId", sinceID)
	}
	return params
}

func (c *APIClient) FetchMembers(ctx context.Context, sinceID string) ([]models.Member, error) {
	var out []models.Member
	err := c.Call(ctx, "getMembers", sinceParams(sinceID), &out)
	return out, err
}

func (c *APIClient) FetchAttendance(ctx context.Context, sinceID string) ([]models.Attendance, error) {
	var out []models.Attendance
	err := c.Call(ctx, "getAttendance", sinceParams(sinceID), &out)
	return out, err
}

func (c *APIClient) FetchPayments(ctx context.Context, sinceID string) ([]models.Payment, error) {
	var out []models.Payment
	err := c.Call(ctx, "getPayments", sinceParams(sinceID), &out)
	return out, err
}

func (c *APIClient) FetchExpenses(ctx context.Context, sinceID string) ([]models.Expense, error) {
	var out []models.Expense
	err := c.Call(ctx, "getExpenses", sinceParams(sinceID), &out)
	return out, err
}

// FetchSportsClubs lists the clubs the token's identity can see.
func (c *APIClient) FetchSportsClubs(ctx context.Context) ([]models.SportsClub, error) {
	var out []models.SportsClub
	err := c.Call(ctx, "getSportsClubs", nil, &out)
	return out, err
}
