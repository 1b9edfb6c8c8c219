package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/als-computing/ingest-core/internal/httpclient"
)

// Client is the REST implementation of API.
type Client struct {
	http *httpclient.Client
}

// NewClient creates a Tracker client with basic-auth credentials.
func NewClient(baseURL, username, password string, transportOverride *httpclient.Config) *Client {
	config := transportOverride
	if config == nil {
		config = &httpclient.Config{}
	}
	config.BaseURL = baseURL
	config.Auth = httpclient.BasicAuth{Username: username, Password: password}
	return &Client{http: httpclient.New(config)}
}

// BaseURL returns the registry instance this client talks to.
func (c *Client) BaseURL() string {
	return c.http.BaseURL()
}

var _ API = (*Client)(nil)

// GetShare fetches a share sublocation by slug; ErrNotFound if absent.
func (c *Client) GetShare(ctx context.Context, slug string) (*Share, error) {
	var share Share
	if err := c.getOne(ctx, "shares/"+url.PathEscape(slug), &share); err != nil {
		return nil, err
	}
	return &share, nil
}

// ListBeamlines lists beamlines filtered by exact name.
func (c *Client) ListBeamlines(ctx context.Context, name string) ([]Beamline, error) {
	var out []Beamline
	if err := c.list(ctx, "beamlines", url.Values{"name": {name}}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateBeamline creates a beamline record.
func (c *Client) CreateBeamline(ctx context.Context, in *BeamlineCreate) (*Beamline, error) {
	var out Beamline
	if err := c.create(ctx, "beamlines", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListProposals lists proposals filtered by exact name.
func (c *Client) ListProposals(ctx context.Context, name string) ([]Proposal, error) {
	var out []Proposal
	if err := c.list(ctx, "proposals", url.Values{"name": {name}}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateProposal creates a proposal record.
func (c *Client) CreateProposal(ctx context.Context, in *ProposalCreate) (*Proposal, error) {
	var out Proposal
	if err := c.create(ctx, "proposals", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetDataset fetches a Tracker dataset by slug; ErrNotFound if absent.
func (c *Client) GetDataset(ctx context.Context, slug string) (*Dataset, error) {
	var ds Dataset
	if err := c.getOne(ctx, "datasets/"+url.PathEscape(slug), &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

// CreateDataset creates a Tracker dataset record.
func (c *Client) CreateDataset(ctx context.Context, in *DatasetCreate) (*Dataset, error) {
	var out Dataset
	if err := c.create(ctx, "datasets", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateDataset updates a Tracker dataset record in place.
func (c *Client) UpdateDataset(ctx context.Context, ds *Dataset) (*Dataset, error) {
	var out Dataset
	resp, err := c.http.Put(ctx, "datasets/"+url.PathEscape(ds.Slug), ds)
	if err != nil {
		return nil, fmt.Errorf("tracker update dataset: %w", err)
	}
	if err := resp.JSON(&out); err != nil {
		return nil, fmt.Errorf("tracker update dataset response: %w", err)
	}
	return &out, nil
}

// ListInstances lists dataset instances matching the filter, newest first.
func (c *Client) ListInstances(ctx context.Context, filter InstanceFilter) ([]DatasetInstance, error) {
	query := url.Values{}
	if filter.SlugDataset != "" {
		query.Set("slug_dataset", filter.SlugDataset)
	}
	if filter.SlugShare != "" {
		query.Set("slug_share", filter.SlugShare)
	}
	if filter.Path != "" {
		query.Set("path", filter.Path)
	}
	if filter.ExcludeDeleted {
		query.Set("date_files_deleted__isnull", "true")
	}
	var out []DatasetInstance
	if err := c.list(ctx, "dataset-instances", query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateInstance creates a dataset instance record.
func (c *Client) CreateInstance(ctx context.Context, in *InstanceCreate) (*DatasetInstance, error) {
	var out DatasetInstance
	if err := c.create(ctx, "dataset-instances", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListInstanceFiles lists the per-file records of an instance.
func (c *Client) ListInstanceFiles(ctx context.Context, instanceID string) ([]DatasetInstanceFile, error) {
	var out []DatasetInstanceFile
	query := url.Values{"id_dataset_instance": {instanceID}}
	if err := c.list(ctx, "dataset-instance-files", query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateInstanceFile creates an instance file record.
func (c *Client) CreateInstanceFile(ctx context.Context, in *InstanceFileCreate) (*DatasetInstanceFile, error) {
	var out DatasetInstanceFile
	if err := c.create(ctx, "dataset-instance-files", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateInstanceFile overwrites an instance file record.
func (c *Client) UpdateInstanceFile(ctx context.Context, f *DatasetInstanceFile) (*DatasetInstanceFile, error) {
	var out DatasetInstanceFile
	resp, err := c.http.Put(ctx, "dataset-instance-files/"+url.PathEscape(f.ID), f)
	if err != nil {
		return nil, fmt.Errorf("tracker update instance file: %w", err)
	}
	if err := resp.JSON(&out); err != nil {
		return nil, fmt.Errorf("tracker update instance file response: %w", err)
	}
	return &out, nil
}

// DeleteInstanceFile removes an instance file record.
func (c *Client) DeleteInstanceFile(ctx context.Context, id string) error {
	if _, err := c.http.Delete(ctx, "dataset-instance-files/"+url.PathEscape(id)); err != nil {
		return fmt.Errorf("tracker delete instance file: %w", err)
	}
	return nil
}

func (c *Client) getOne(ctx context.Context, path string, target any) error {
	resp, err := c.http.Get(ctx, path, nil)
	if err != nil {
		var httpErr *httpclient.HTTPError
		if errors.As(err, &httpErr) && httpErr.IsNotFound() {
			return ErrNotFound
		}
		return fmt.Errorf("tracker get %s: %w", path, err)
	}
	if err := resp.JSON(target); err != nil {
		return fmt.Errorf("tracker get %s response: %w", path, err)
	}
	return nil
}

func (c *Client) list(ctx context.Context, path string, query url.Values, target any) error {
	resp, err := c.http.Get(ctx, path, query)
	if err != nil {
		return fmt.Errorf("tracker list %s: %w", path, err)
	}
	if err := resp.JSON(target); err != nil {
		return fmt.Errorf("tracker list %s response: %w", path, err)
	}
	return nil
}

func (c *Client) create(ctx context.Context, path string, body, target any) error {
	resp, err := c.http.Post(ctx, path, body)
	if err != nil {
		return fmt.Errorf("tracker create %s: %w", path, err)
	}
	if err := resp.JSON(target); err != nil {
		return fmt.Errorf("tracker create %s response: %w", path, err)
	}
	return nil
}
