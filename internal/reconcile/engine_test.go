package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/als-computing/ingest-core/internal/descriptor"
	"github.com/als-computing/ingest-core/internal/manifest"
	"github.com/als-computing/ingest-core/internal/tracker"
)

// fakeTracker is an in-memory tracker.API. failOn makes the named method
// return an error, for abort-path tests.
type fakeTracker struct {
	shares    map[string]tracker.Share
	beamlines []tracker.Beamline
	proposals []tracker.Proposal
	datasets  map[string]tracker.Dataset
	instances []tracker.DatasetInstance
	files     map[string]tracker.DatasetInstanceFile

	nextID int
	failOn string
}

var _ tracker.API = (*fakeTracker)(nil)

func newFakeTracker(shareSlugs ...string) *fakeTracker {
	f := &fakeTracker{
		shares:   map[string]tracker.Share{},
		datasets: map[string]tracker.Dataset{},
		files:    map[string]tracker.DatasetInstanceFile{},
	}
	for _, slug := range shareSlugs {
		f.shares[slug] = tracker.Share{Slug: slug, Name: slug}
	}
	return f
}

func (f *fakeTracker) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeTracker) failing(method string) error {
	if f.failOn == method {
		return fmt.Errorf("injected %s failure", method)
	}
	return nil
}

func slugify(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "-"))
}

func (f *fakeTracker) GetShare(_ context.Context, slug string) (*tracker.Share, error) {
	if err := f.failing("GetShare"); err != nil {
		return nil, err
	}
	s, ok := f.shares[slug]
	if !ok {
		return nil, tracker.ErrNotFound
	}
	return &s, nil
}

func (f *fakeTracker) ListBeamlines(_ context.Context, name string) ([]tracker.Beamline, error) {
	if err := f.failing("ListBeamlines"); err != nil {
		return nil, err
	}
	var out []tracker.Beamline
	for _, b := range f.beamlines {
		if b.Name == name {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeTracker) CreateBeamline(_ context.Context, in *tracker.BeamlineCreate) (*tracker.Beamline, error) {
	if err := f.failing("CreateBeamline"); err != nil {
		return nil, err
	}
	b := tracker.Beamline{Slug: slugify(in.Name), Name: in.Name, Description: in.Description}
	f.beamlines = append(f.beamlines, b)
	return &b, nil
}

func (f *fakeTracker) ListProposals(_ context.Context, name string) ([]tracker.Proposal, error) {
	if err := f.failing("ListProposals"); err != nil {
		return nil, err
	}
	var out []tracker.Proposal
	for _, p := range f.proposals {
		if p.Name == name {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeTracker) CreateProposal(_ context.Context, in *tracker.ProposalCreate) (*tracker.Proposal, error) {
	if err := f.failing("CreateProposal"); err != nil {
		return nil, err
	}
	p := tracker.Proposal{Slug: slugify(in.Name), Name: in.Name, Description: in.Description}
	f.proposals = append(f.proposals, p)
	return &p, nil
}

func (f *fakeTracker) GetDataset(_ context.Context, slug string) (*tracker.Dataset, error) {
	if err := f.failing("GetDataset"); err != nil {
		return nil, err
	}
	ds, ok := f.datasets[slug]
	if !ok {
		return nil, tracker.ErrNotFound
	}
	return &ds, nil
}

func (f *fakeTracker) CreateDataset(_ context.Context, in *tracker.DatasetCreate) (*tracker.Dataset, error) {
	if err := f.failing("CreateDataset"); err != nil {
		return nil, err
	}
	ds := tracker.Dataset{
		Slug:                slugify(in.Name),
		Name:                in.Name,
		Description:         in.Description,
		SlugBeamline:        in.SlugBeamline,
		SlugProposal:        in.SlugProposal,
		DateOfAcquisition:   in.DateOfAcquisition,
		CatalogDatasetID:    in.CatalogDatasetID,
		CatalogDateIngested: in.CatalogDateIngested,
		IngestionRunID:      in.IngestionRunID,
	}
	f.datasets[ds.Slug] = ds
	return &ds, nil
}

func (f *fakeTracker) UpdateDataset(_ context.Context, ds *tracker.Dataset) (*tracker.Dataset, error) {
	if err := f.failing("UpdateDataset"); err != nil {
		return nil, err
	}
	if _, ok := f.datasets[ds.Slug]; !ok {
		return nil, tracker.ErrNotFound
	}
	f.datasets[ds.Slug] = *ds
	return ds, nil
}

func (f *fakeTracker) ListInstances(_ context.Context, filter tracker.InstanceFilter) ([]tracker.DatasetInstance, error) {
	if err := f.failing("ListInstances"); err != nil {
		return nil, err
	}
	var out []tracker.DatasetInstance
	// Newest records first, matching server ordering.
	for i := len(f.instances) - 1; i >= 0; i-- {
		in := f.instances[i]
		if filter.SlugDataset != "" && in.SlugDataset != filter.SlugDataset {
			continue
		}
		if filter.SlugShare != "" && in.SlugShare != filter.SlugShare {
			continue
		}
		if filter.Path != "" && in.Path != filter.Path {
			continue
		}
		if filter.ExcludeDeleted && in.DateFilesDeleted != "" {
			continue
		}
		out = append(out, in)
	}
	return out, nil
}

func (f *fakeTracker) CreateInstance(_ context.Context, in *tracker.InstanceCreate) (*tracker.DatasetInstance, error) {
	if err := f.failing("CreateInstance"); err != nil {
		return nil, err
	}
	inst := tracker.DatasetInstance{
		ID:             f.id("inst"),
		SlugDataset:    in.SlugDataset,
		SlugShare:      in.SlugShare,
		Path:           in.Path,
		FilesSizeBytes: in.FilesSizeBytes,
		IngestionRunID: in.IngestionRunID,
	}
	f.instances = append(f.instances, inst)
	return &inst, nil
}

func (f *fakeTracker) ListInstanceFiles(_ context.Context, instanceID string) ([]tracker.DatasetInstanceFile, error) {
	if err := f.failing("ListInstanceFiles"); err != nil {
		return nil, err
	}
	var out []tracker.DatasetInstanceFile
	for _, rec := range f.files {
		if rec.InstanceID == instanceID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeTracker) CreateInstanceFile(_ context.Context, in *tracker.InstanceFileCreate) (*tracker.DatasetInstanceFile, error) {
	if err := f.failing("CreateInstanceFile"); err != nil {
		return nil, err
	}
	rec := tracker.DatasetInstanceFile{
		ID:               f.id("file"),
		InstanceID:       in.InstanceID,
		Path:             in.Path,
		SizeBytes:        in.SizeBytes,
		DateLastModified: in.DateLastModified,
		IsSupplemental:   in.IsSupplemental,
	}
	f.files[rec.ID] = rec
	return &rec, nil
}

func (f *fakeTracker) UpdateInstanceFile(_ context.Context, rec *tracker.DatasetInstanceFile) (*tracker.DatasetInstanceFile, error) {
	if err := f.failing("UpdateInstanceFile"); err != nil {
		return nil, err
	}
	if _, ok := f.files[rec.ID]; !ok {
		return nil, tracker.ErrNotFound
	}
	f.files[rec.ID] = *rec
	return rec, nil
}

func (f *fakeTracker) DeleteInstanceFile(_ context.Context, id string) error {
	if err := f.failing("DeleteInstanceFile"); err != nil {
		return err
	}
	if _, ok := f.files[id]; !ok {
		return tracker.ErrNotFound
	}
	delete(f.files, id)
	return nil
}

func ingestedDescriptor(t *testing.T) *descriptor.Descriptor {
	t.Helper()
	m, err := manifest.New([]manifest.Entry{
		{Path: "a.txt", SizeBytes: 10, DateLastModified: "2026-01-01T00:00:00Z"},
		{Path: "b.txt", SizeBytes: 20, DateLastModified: "2026-01-01T00:00:00Z"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return &descriptor.Descriptor{
		BeamlineID:        "bl832",
		ProposalID:        "BLS-00123",
		Name:              "20260214 mysample",
		DateOfAcquisition: "2026-02-14T12:00:00Z",
		FileManifest:      m,
		Catalog: descriptor.CatalogInfo{
			DatasetID:    "PID.prefix/abc-123",
			DateIngested: "2026-02-14T12:05:00Z",
		},
	}
}

const testPath = "raw/bl832/20260214_mysample"

func TestEngine_FirstRunCreatesEverything(t *testing.T) {
	fake := newFakeTracker("als-beegfs")
	engine := NewEngine(fake, "als-beegfs", "run-1", zerolog.Nop())
	d := ingestedDescriptor(t)

	summary, err := engine.Reconcile(context.Background(), d, testPath)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if !summary.BeamlineCreated || !summary.ProposalCreated || !summary.DatasetCreated || !summary.InstanceCreated {
		t.Errorf("creation flags = %+v, want all true", summary)
	}
	if summary.FilesCreated != 2 || summary.FilesDeleted != 0 || summary.FilesUpdated != 0 {
		t.Errorf("file ops = %+v, want 2 creates only", summary)
	}
	if d.Tracker.TrackerDatasetID == "" || d.Tracker.InstanceRecordID == "" {
		t.Errorf("descriptor linkage not recorded: %+v", d.Tracker)
	}

	ds, ok := fake.datasets[d.Tracker.TrackerDatasetID]
	if !ok {
		t.Fatal("dataset record missing from tracker")
	}
	if ds.CatalogDatasetID != "PID.prefix/abc-123" || ds.IngestionRunID != "run-1" {
		t.Errorf("dataset record = %+v", ds)
	}
	if len(fake.files) != 2 {
		t.Errorf("tracker holds %d file records, want 2", len(fake.files))
	}
	if fake.beamlines[0].Description != "Auto-created while ingesting dataset PID.prefix/abc-123" {
		t.Errorf("auto-create note = %q", fake.beamlines[0].Description)
	}
}

func TestEngine_SecondRunIsNoOp(t *testing.T) {
	fake := newFakeTracker("als-beegfs")
	engine := NewEngine(fake, "als-beegfs", "run-1", zerolog.Nop())
	d := ingestedDescriptor(t)

	if _, err := engine.Reconcile(context.Background(), d, testPath); err != nil {
		t.Fatalf("first Reconcile failed: %v", err)
	}

	engine2 := NewEngine(fake, "als-beegfs", "run-2", zerolog.Nop())
	summary, err := engine2.Reconcile(context.Background(), d, testPath)
	if err != nil {
		t.Fatalf("second Reconcile failed: %v", err)
	}
	if summary.BeamlineCreated || summary.ProposalCreated || summary.DatasetCreated || summary.InstanceCreated {
		t.Errorf("second run created records: %+v", summary)
	}
	if summary.FilesDeleted+summary.FilesCreated+summary.FilesUpdated != 0 {
		t.Errorf("second run performed file ops: %+v", summary)
	}
	if len(fake.datasets) != 1 || len(fake.instances) != 1 || len(fake.files) != 2 {
		t.Errorf("tracker state grew: %d datasets, %d instances, %d files",
			len(fake.datasets), len(fake.instances), len(fake.files))
	}
}

func TestEngine_SyncAppliesDiffToChangedManifest(t *testing.T) {
	fake := newFakeTracker("als-beegfs")
	engine := NewEngine(fake, "als-beegfs", "run-1", zerolog.Nop())
	d := ingestedDescriptor(t)
	if _, err := engine.Reconcile(context.Background(), d, testPath); err != nil {
		t.Fatalf("first Reconcile failed: %v", err)
	}

	// b.txt left the dataset, c.txt arrived, a.txt was re-measured larger.
	m, err := manifest.New([]manifest.Entry{
		{Path: "a.txt", SizeBytes: 15, DateLastModified: "2026-01-05T00:00:00Z"},
		{Path: "c.txt", SizeBytes: 30, DateLastModified: "2026-01-05T00:00:00Z"},
	})
	if err != nil {
		t.Fatal(err)
	}
	d.FileManifest = m

	summary, err := NewEngine(fake, "als-beegfs", "run-2", zerolog.Nop()).
		Reconcile(context.Background(), d, testPath)
	if err != nil {
		t.Fatalf("second Reconcile failed: %v", err)
	}
	if summary.FilesDeleted != 1 || summary.FilesCreated != 1 || summary.FilesUpdated != 1 {
		t.Errorf("file ops = %+v, want 1/1/1", summary)
	}

	paths := map[string]int64{}
	for _, rec := range fake.files {
		paths[rec.Path] = rec.SizeBytes
	}
	if len(paths) != 2 || paths["a.txt"] != 15 || paths["c.txt"] != 30 {
		t.Errorf("tracker file records = %v", paths)
	}
}

func TestEngine_ShareNotConfigured(t *testing.T) {
	fake := newFakeTracker() // no shares at all
	engine := NewEngine(fake, "als-beegfs", "run-1", zerolog.Nop())

	_, err := engine.ResolveShare(context.Background())
	var rerr *Error
	if !errors.As(err, &rerr) || rerr.Code != CodeShareNotConfigured {
		t.Fatalf("ResolveShare = %v, want %s", err, CodeShareNotConfigured)
	}

	_, err = engine.Reconcile(context.Background(), ingestedDescriptor(t), testPath)
	if !errors.As(err, &rerr) || rerr.Code != CodeShareNotConfigured {
		t.Fatalf("Reconcile = %v, want %s", err, CodeShareNotConfigured)
	}
}

func TestEngine_TrackerRecordMissing(t *testing.T) {
	fake := newFakeTracker("als-beegfs")
	engine := NewEngine(fake, "als-beegfs", "run-1", zerolog.Nop())
	d := ingestedDescriptor(t)
	d.Tracker.TrackerDatasetID = "a-slug-from-another-server"

	_, err := engine.Reconcile(context.Background(), d, testPath)
	var rerr *Error
	if !errors.As(err, &rerr) || rerr.Code != CodeTrackerRecordMissing {
		t.Fatalf("Reconcile = %v, want %s", err, CodeTrackerRecordMissing)
	}
}

func TestEngine_RefusesWithoutCatalogID(t *testing.T) {
	fake := newFakeTracker("als-beegfs")
	engine := NewEngine(fake, "als-beegfs", "run-1", zerolog.Nop())
	d := ingestedDescriptor(t)
	d.Catalog.DatasetID = ""

	if _, err := engine.Reconcile(context.Background(), d, testPath); err == nil {
		t.Fatal("Reconcile accepted a descriptor with no catalog dataset id")
	}
}

// A failed file sync leaves partial state; the descriptor keeps the dataset
// linkage recorded before the failure, and the next run converges.
func TestEngine_RerunConvergesAfterSyncFailure(t *testing.T) {
	fake := newFakeTracker("als-beegfs")
	fake.failOn = "CreateInstanceFile"
	engine := NewEngine(fake, "als-beegfs", "run-1", zerolog.Nop())
	d := ingestedDescriptor(t)

	_, err := engine.Reconcile(context.Background(), d, testPath)
	var rerr *Error
	if !errors.As(err, &rerr) || rerr.Code != CodeFileSyncFailed {
		t.Fatalf("Reconcile = %v, want %s", err, CodeFileSyncFailed)
	}
	if d.Tracker.TrackerDatasetID == "" {
		t.Fatal("dataset linkage lost on sync failure")
	}

	fake.failOn = ""
	summary, err := NewEngine(fake, "als-beegfs", "run-2", zerolog.Nop()).
		Reconcile(context.Background(), d, testPath)
	if err != nil {
		t.Fatalf("re-run failed: %v", err)
	}
	if summary.DatasetCreated || summary.InstanceCreated {
		t.Errorf("re-run duplicated records: %+v", summary)
	}
	if summary.FilesCreated != 2 {
		t.Errorf("re-run created %d files, want 2", summary.FilesCreated)
	}
	if len(fake.datasets) != 1 || len(fake.instances) != 1 {
		t.Errorf("tracker holds %d datasets, %d instances after re-run, want 1 each",
			len(fake.datasets), len(fake.instances))
	}
}

func TestEngine_DeletedInstanceGetsFreshRecord(t *testing.T) {
	fake := newFakeTracker("als-beegfs")
	d := ingestedDescriptor(t)
	if _, err := NewEngine(fake, "als-beegfs", "run-1", zerolog.Nop()).
		Reconcile(context.Background(), d, testPath); err != nil {
		t.Fatalf("first Reconcile failed: %v", err)
	}

	// Files purged from disk and the instance marked deleted; re-ingestion at
	// the same path must get a new instance record.
	fake.instances[0].DateFilesDeleted = "2026-03-01T00:00:00Z"

	summary, err := NewEngine(fake, "als-beegfs", "run-2", zerolog.Nop()).
		Reconcile(context.Background(), d, testPath)
	if err != nil {
		t.Fatalf("second Reconcile failed: %v", err)
	}
	if !summary.InstanceCreated {
		t.Error("deleted instance reused instead of creating a fresh record")
	}
	if len(fake.instances) != 2 {
		t.Errorf("tracker holds %d instances, want 2", len(fake.instances))
	}
	if d.Tracker.InstanceRecordID != fake.instances[1].ID {
		t.Errorf("descriptor points at %s, want the fresh instance %s",
			d.Tracker.InstanceRecordID, fake.instances[1].ID)
	}
}
