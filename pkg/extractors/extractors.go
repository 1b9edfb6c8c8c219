// Package extractors registers all built-in extraction strategies.
package extractors

import (
	// Import all strategies to register them
	_ "github.com/als-computing/ingest-core/internal/extractor/bltest"
)

// All imports trigger init() functions that register strategies.
