package tracker

import (
	"context"
	"errors"
)

// ErrNotFound means a record the caller asked for by id does not exist.
var ErrNotFound = errors.New("tracker record not found")

// API is the Tracker surface the reconciliation engine needs. The filtered
// list calls back every upsert lookup; Get calls fetch by id.
type API interface {
	GetShare(ctx context.Context, slug string) (*Share, error)

	ListBeamlines(ctx context.Context, name string) ([]Beamline, error)
	CreateBeamline(ctx context.Context, in *BeamlineCreate) (*Beamline, error)

	ListProposals(ctx context.Context, name string) ([]Proposal, error)
	CreateProposal(ctx context.Context, in *ProposalCreate) (*Proposal, error)

	GetDataset(ctx context.Context, slug string) (*Dataset, error)
	CreateDataset(ctx context.Context, in *DatasetCreate) (*Dataset, error)
	UpdateDataset(ctx context.Context, ds *Dataset) (*Dataset, error)

	ListInstances(ctx context.Context, filter InstanceFilter) ([]DatasetInstance, error)
	CreateInstance(ctx context.Context, in *InstanceCreate) (*DatasetInstance, error)

	ListInstanceFiles(ctx context.Context, instanceID string) ([]DatasetInstanceFile, error)
	CreateInstanceFile(ctx context.Context, in *InstanceFileCreate) (*DatasetInstanceFile, error)
	UpdateInstanceFile(ctx context.Context, f *DatasetInstanceFile) (*DatasetInstanceFile, error)
	DeleteInstanceFile(ctx context.Context, id string) error
}
