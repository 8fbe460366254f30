// Package library talks to the meal-library CMS. The content API
// serves the raw candidate entries the corpus is built from; the admin
// API accepts rendered plans for publishing.
package library

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ai-wellness-planner/internal/config"
)

// Entry represents a single meal entry from the library API.
type Entry struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	HTML      string `json:"html"`
	UpdatedAt string `json:"updated_at"`
}

// EntriesResponse is the top-level structure of the library API response.
type EntriesResponse struct {
	Posts []Entry `json:"posts"`
}

// Client is an interface for the library API (Content & Admin).
type Client interface {
	FetchEntries(ctx context.Context) ([]Entry, error)
	PublishPlan(ctx context.Context, title, html string, publish bool) (*Entry, error)
}

type libraryClient struct {
	httpClient *http.Client
	config     *config.Config
}

// NewClient creates a new library API client.
func NewClient(cfg *config.Config) Client {
	return &libraryClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		config:     cfg,
	}
}

// FetchEntries fetches all meal entries from the library Content API.
func (c *libraryClient) FetchEntries(ctx context.Context) ([]Entry, error) {
	url := fmt.Sprintf("%s/ghost/api/v3/content/posts/?key=%s&limit=all", c.config.LibraryURL, c.config.LibraryContentKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("content api error: status %d", resp.StatusCode)
	}

	var entriesResponse EntriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&entriesResponse); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return entriesResponse.Posts, nil
}

// PublishPlan creates a new post with the rendered plan using the
// library Admin API.
func (c *libraryClient) PublishPlan(ctx context.Context, title, html string, publish bool) (*Entry, error) {
	token, err := c.createAdminToken()
	if err != nil {
		return nil, fmt.Errorf("failed to create admin token: %w", err)
	}

	status := "draft"
	if publish {
		status = "published"
	}

	newPost := map[string]interface{}{
		"posts": []map[string]interface{}{
			{
				"title":  title,
				"html":   html,
				"status": status,
			},
		},
	}

	body, _ := json.Marshal(newPost)
	url := fmt.Sprintf("%s/ghost/api/v3/admin/posts/?source=html", c.config.LibraryURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Ghost "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		var errResp interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return nil, fmt.Errorf("admin api error: status %d, body: %v", resp.StatusCode, errResp)
	}

	var response EntriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, err
	}

	if len(response.Posts) == 0 {
		return nil, fmt.Errorf("no post returned from api")
	}

	return &response.Posts[0], nil
}

// createAdminToken generates a short-lived JWT for the Admin API.
func (c *libraryClient) createAdminToken() (string, error) {
	keyParts := strings.Split(c.config.LibraryAdminKey, ":")
	if len(keyParts) != 2 {
		return "", fmt.Errorf("invalid admin key format: expected id:secret")
	}

	id := keyParts[0]
	secretHex := keyParts[1]

	secret, err := hex.DecodeString(secretHex)
	if err != nil {
		return "", fmt.Errorf("failed to decode secret hex: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(5 * time.Minute).Unix(),
		"aud": "/v3/admin/",
	})
	token.Header["kid"] = id

	return token.SignedString(secret)
}
