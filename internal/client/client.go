// Package client is a small typed client for the plaza HTTP API, used by
// the command line tool.
package client

import (
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/zfogg/plaza/internal/auth"
	"github.com/zfogg/plaza/internal/models"
)

const userAgent = "plaza-cli/0.1.0"

// APIError is a non-2xx answer from the server
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
	Field      string `json:"field,omitempty"`
	Details    string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("[%d] %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("[%d] %s: %s", e.StatusCode, e.Code, e.Message)
}

// Client talks to one plaza server
type Client struct {
	http *resty.Client
}

// New builds a client for baseURL. An empty token sends unauthenticated
// requests.
func New(baseURL, token string, timeout time.Duration) *Client {
	r := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetError(&APIError{})
	if token != "" {
		r.SetAuthToken(token)
	}
	return &Client{http: r}
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsSuccess() {
		return nil
	}
	if apiErr, ok := resp.Error().(*APIError); ok && apiErr.Message != "" {
		apiErr.StatusCode = resp.StatusCode()
		return apiErr
	}
	return &APIError{StatusCode: resp.StatusCode(), Message: resp.Status()}
}

type messageResponse struct {
	Message string `json:"message"`
}

// RequestOTP asks the server to email a signup code
func (c *Client) RequestOTP(username, email, password string) (string, error) {
	var out messageResponse
	err := check(c.http.R().
		SetBody(auth.SignupRequest{Username: username, Email: email, Password: password}).
		SetResult(&out).
		Post("/api/v1/auth/otp"))
	return out.Message, err
}

// Register completes signup with the emailed code
func (c *Client) Register(req auth.RegisterRequest) (*auth.AuthResponse, error) {
	var out auth.AuthResponse
	if err := check(c.http.R().SetBody(req).SetResult(&out).Post("/api/v1/auth/register")); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(email, password string) (*auth.AuthResponse, error) {
	var out auth.AuthResponse
	err := check(c.http.R().
		SetBody(auth.LoginRequest{Email: email, Password: password}).
		SetResult(&out).
		Post("/api/v1/auth/login"))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the account the token belongs to
func (c *Client) Me() (*models.User, error) {
	var out struct {
		User models.User `json:"user"`
	}
	if err := check(c.http.R().SetResult(&out).Get("/api/v1/auth/me")); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// FeedItem mirrors one entry of a feed page
type FeedItem struct {
	Post struct {
		ID        string             `json:"id"`
		Content   string             `json:"content"`
		Title     string             `json:"title"`
		ImageURL  string             `json:"image_url"`
		HashTags  []string           `json:"hash_tags"`
		Author    models.UserSummary `json:"author"`
		CreatedAt time.Time          `json:"created_at"`
	} `json:"post"`
	TotalLikes      int `json:"total_likes"`
	TotalComments   int `json:"total_comments"`
	EngagementScore int `json:"engagement_score"`
}

// Feed fetches one page of the Recent, Friends or Popular feed
func (c *Client) Feed(heading string, offset int) ([]FeedItem, error) {
	var out struct {
		Posts []FeedItem `json:"posts"`
	}
	err := check(c.http.R().
		SetPathParam("heading", heading).
		SetQueryParam("offset", strconv.Itoa(offset)).
		SetResult(&out).
		Get("/api/v1/feed/{heading}"))
	return out.Posts, err
}

// SearchResult holds raw result objects; their shape depends on Type
type SearchResult struct {
	Type    string                   `json:"type"`
	Results []map[string]interface{} `json:"results"`
}

func (c *Client) Search(query, kind string, offset int) (*SearchResult, error) {
	var out SearchResult
	err := check(c.http.R().
		SetQueryParams(map[string]string{
			"q":      query,
			"type":   kind,
			"offset": strconv.Itoa(offset),
		}).
		SetResult(&out).
		Get("/api/v1/search"))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Follow(userID string) error {
	return check(c.http.R().SetPathParam("id", userID).Post("/api/v1/users/{id}/follow"))
}

func (c *Client) Unfollow(userID string) (string, error) {
	var out messageResponse
	err := check(c.http.R().SetPathParam("id", userID).SetResult(&out).Delete("/api/v1/users/{id}/follow"))
	return out.Message, err
}

// Suggestions lists people the caller might follow
func (c *Client) Suggestions() ([]models.UserSummary, error) {
	var out struct {
		Users []models.UserSummary `json:"users"`
	}
	err := check(c.http.R().SetResult(&out).Get("/api/v1/users/suggestions"))
	return out.Users, err
}

// StoryGroup is one author's fresh stories
type StoryGroup struct {
	User    models.UserSummary `json:"user"`
	Stories []models.Story     `json:"stories"`
}

func (c *Client) Stories() ([]StoryGroup, error) {
	var out struct {
		Stories []StoryGroup `json:"stories"`
	}
	err := check(c.http.R().SetResult(&out).Get("/api/v1/stories"))
	return out.Stories, err
}
