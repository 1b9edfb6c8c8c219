package reconcile

import (
	"sort"

	"github.com/als-computing/ingest-core/internal/manifest"
	"github.com/als-computing/ingest-core/internal/tracker"
)

// Plan is the computed three-way diff between the manifest (M) and the
// instance's existing file records (R):
//
//	Delete = R − M   records whose path left the dataset
//	Create = M − R   manifest entries with no record yet
//	Update = M ∩ R   records overwritten from the manifest entry, skipping
//	                 records that already match so an unchanged dataset
//	                 produces zero operations
//
// Application order is deletes, then creates, then updates, so a path removed
// and re-added in one run ends up created fresh instead of carrying a stale
// record identity.
type Plan struct {
	Delete []tracker.DatasetInstanceFile
	Create []manifest.Entry
	Update []fileUpdate
}

// fileUpdate pairs an existing record with the manifest entry overwriting it.
type fileUpdate struct {
	Record tracker.DatasetInstanceFile
	Entry  manifest.Entry
}

// Empty reports whether the plan requires no Tracker operations.
func (p *Plan) Empty() bool {
	return len(p.Delete) == 0 && len(p.Create) == 0 && len(p.Update) == 0
}

// BuildPlan computes the diff. Creates follow manifest order; deletes are
// sorted by path so the operation order is deterministic for a given input.
func BuildPlan(m *manifest.FileManifest, records []tracker.DatasetInstanceFile) *Plan {
	recordsByPath := make(map[string]tracker.DatasetInstanceFile, len(records))
	for _, r := range records {
		recordsByPath[r.Path] = r
	}

	plan := &Plan{}
	inManifest := make(map[string]struct{}, m.Len())
	for _, e := range m.Files {
		inManifest[e.Path] = struct{}{}
		if r, ok := recordsByPath[e.Path]; ok {
			if !recordMatches(r, e) {
				plan.Update = append(plan.Update, fileUpdate{Record: r, Entry: e})
			}
		} else {
			plan.Create = append(plan.Create, e)
		}
	}
	for _, r := range records {
		if _, ok := inManifest[r.Path]; !ok {
			plan.Delete = append(plan.Delete, r)
		}
	}
	sort.Slice(plan.Delete, func(i, j int) bool { return plan.Delete[i].Path < plan.Delete[j].Path })
	return plan
}

// recordMatches reports whether a record already reflects the manifest entry,
// covering re-measured files between runs.
func recordMatches(r tracker.DatasetInstanceFile, e manifest.Entry) bool {
	return r.SizeBytes == e.SizeBytes &&
		r.DateLastModified == e.DateLastModified &&
		r.IsSupplemental == e.IsSupplemental
}
