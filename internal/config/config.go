// Package config resolves run configuration: explicit values first, then
// environment, then defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/als-computing/ingest-core/internal/archive"
)

// DefaultCatalogURL is used when no Catalog URL is configured at all.
const DefaultCatalogURL = "http://localhost:3000/api/v3"

// DefaultTrackerShare is the share slug assumed when none is configured.
const DefaultTrackerShare = "als-beegfs"

// Run holds everything one ingestion run needs. Zero-valued fields are
// filled from the environment by ResolveEnv.
type Run struct {
	// DatasetPath is the dataset root, possibly relative to a base folder.
	DatasetPath string
	// Files are explicit relative paths; empty means discover recursively.
	Files []string
	// Spec names the extraction strategy.
	Spec string

	OwnerUsername string

	CatalogURL      string
	CatalogUsername string
	CatalogPassword string

	// Tracker settings. An empty TrackerURL means the Tracker is not used.
	TrackerURL      string
	TrackerUsername string
	TrackerPassword string
	TrackerShare    string

	// BaseFolder / InternalBaseFolder are prepended to DatasetPath. The
	// internal folder (a mounted volume inside a container) wins.
	BaseFolder         string
	InternalBaseFolder string

	Archive archive.Config
}

// ResolveEnv fills unset fields from the environment and applies defaults,
// logging each fallback the way an operator reading the run log expects.
func (r *Run) ResolveEnv(log zerolog.Logger) error {
	if r.Spec == "" {
		r.Spec = os.Getenv("INGEST_SPEC")
		if r.Spec == "" {
			return fmt.Errorf("cannot resolve ingester spec")
		}
	}

	if r.CatalogURL == "" {
		r.CatalogURL = os.Getenv("CATALOG_URL")
		if r.CatalogURL == "" {
			r.CatalogURL = DefaultCatalogURL
			log.Warn().Str("url", r.CatalogURL).Msg("using default catalog URL")
		}
	}
	if r.CatalogUsername == "" {
		r.CatalogUsername = os.Getenv("CATALOG_USERNAME")
		if r.CatalogUsername == "" {
			return fmt.Errorf("cannot resolve catalog username")
		}
	}
	if r.CatalogPassword == "" {
		r.CatalogPassword = os.Getenv("CATALOG_PASSWORD")
		if r.CatalogPassword == "" {
			return fmt.Errorf("cannot resolve catalog password")
		}
	}

	// Must resolve the catalog username first: it is the owner fallback.
	if r.OwnerUsername == "" {
		r.OwnerUsername = os.Getenv("CATALOG_OWNER_USERNAME")
		if r.OwnerUsername == "" {
			log.Info().Msg("using catalog username as owner username")
			r.OwnerUsername = r.CatalogUsername
		}
	}

	if r.TrackerURL == "" {
		r.TrackerURL = os.Getenv("TRACKER_URL")
		if r.TrackerURL == "" {
			log.Info().Msg("tracker URL not set, tracker will not be used")
		}
	}
	if r.TrackerURL != "" {
		if r.TrackerUsername == "" {
			r.TrackerUsername = os.Getenv("TRACKER_USERNAME")
			if r.TrackerUsername == "" {
				log.Warn().Msg("cannot resolve tracker username")
			}
		}
		if r.TrackerPassword == "" {
			r.TrackerPassword = os.Getenv("TRACKER_PASSWORD")
			if r.TrackerPassword == "" {
				log.Warn().Msg("cannot resolve tracker password")
			}
		}
		if r.TrackerShare == "" {
			r.TrackerShare = getEnv("TRACKER_SHARE", DefaultTrackerShare)
		}
	}

	if r.BaseFolder == "" {
		r.BaseFolder = os.Getenv("INGEST_BASE_FOLDER")
	}
	if r.InternalBaseFolder == "" {
		r.InternalBaseFolder = os.Getenv("INGEST_INTERNAL_BASE_FOLDER")
	}

	if r.Archive.Endpoint == "" {
		r.Archive = archive.Config{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
			Bucket:    os.Getenv("ARCHIVE_BUCKET"),
			Prefix:    getEnv("ARCHIVE_PREFIX", "ingest-runs"),
		}
	}

	return nil
}

// TrackerEnabled reports whether Tracker reconciliation should run.
func (r *Run) TrackerEnabled() bool {
	return r.TrackerURL != "" && r.TrackerUsername != "" && r.TrackerPassword != ""
}

// FullDatasetPath expands DatasetPath with the configured base folder.
func (r *Run) FullDatasetPath(log zerolog.Logger) string {
	switch {
	case r.InternalBaseFolder != "":
		log.Info().Str("folder", r.InternalBaseFolder).Msg("using internal base folder")
		return filepath.Join(r.InternalBaseFolder, r.DatasetPath)
	case r.BaseFolder != "":
		log.Info().Str("folder", r.BaseFolder).Msg("using base folder")
		return filepath.Join(r.BaseFolder, r.DatasetPath)
	default:
		log.Info().Msg("no base folder set")
		return r.DatasetPath
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
