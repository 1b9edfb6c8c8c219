package catalog

import (
	"context"
	"fmt"
	"net/url"

	"github.com/als-computing/ingest-core/internal/httpclient"
)

// Client is the Catalog registry client. Login exchanges the configured
// credentials for a token before any other call is made.
type Client struct {
	http *httpclient.Client
}

// NewClient creates a Catalog client against baseURL.
func NewClient(baseURL string, transportOverride *httpclient.Config) *Client {
	config := transportOverride
	if config == nil {
		config = &httpclient.Config{}
	}
	config.BaseURL = baseURL
	return &Client{http: httpclient.New(config)}
}

// BaseURL returns the registry instance this client talks to.
func (c *Client) BaseURL() string {
	return c.http.BaseURL()
}

// Login authenticates with username/password and installs the returned token
// on the client.
func (c *Client) Login(ctx context.Context, username, password string) error {
	resp, err := c.http.Post(ctx, "auth/login", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return fmt.Errorf("catalog login: %w", err)
	}
	var out struct {
		ID          string `json:"id"`
		AccessToken string `json:"access_token"`
	}
	if err := resp.JSON(&out); err != nil {
		return fmt.Errorf("catalog login response: %w", err)
	}
	token := out.AccessToken
	if token == "" {
		token = out.ID
	}
	if token == "" {
		return fmt.Errorf("catalog login returned no token")
	}
	c.http.SetAuth(httpclient.BearerToken{Token: token})
	return nil
}

// CreateDataset registers a new dataset record and returns its id.
func (c *Client) CreateDataset(ctx context.Context, ds *DatasetCreate) (string, error) {
	resp, err := c.http.Post(ctx, "datasets", ds)
	if err != nil {
		return "", fmt.Errorf("catalog create dataset: %w", err)
	}
	var out struct {
		PID string `json:"pid"`
	}
	if err := resp.JSON(&out); err != nil {
		return "", fmt.Errorf("catalog create dataset response: %w", err)
	}
	if out.PID == "" {
		return "", fmt.Errorf("catalog create dataset returned no id")
	}
	return out.PID, nil
}

// CreateDatablock registers the file list of a dataset.
func (c *Client) CreateDatablock(ctx context.Context, db *DatablockCreate) error {
	if _, err := c.http.Post(ctx, "origdatablocks", db); err != nil {
		return fmt.Errorf("catalog create datablock: %w", err)
	}
	return nil
}

// CreateAttachment attaches a thumbnail (base64) with a caption to a dataset.
func (c *Client) CreateAttachment(ctx context.Context, datasetID string, att *AttachmentCreate) error {
	// Dataset ids may contain slashes; they travel as one path segment.
	path := fmt.Sprintf("datasets/%s/attachments", url.PathEscape(datasetID))
	if _, err := c.http.Post(ctx, path, att); err != nil {
		return fmt.Errorf("catalog create attachment: %w", err)
	}
	return nil
}
