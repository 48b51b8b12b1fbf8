package indexer

import (
	"github.com/dshills/fileindex-mcp/internal/config"
	"github.com/dshills/fileindex-mcp/internal/ignore"
)

// NewOptions builds run options from configuration. Exclude patterns and
// .gitignore are resolved against the canonical root.
func NewOptions(cfg *config.Config, root string, wipe bool) (*Options, error) {
	canonical, err := CanonicalRoot(root)
	if err != nil {
		return nil, err
	}

	matcher, err := ignore.NewMatcher(ignore.Options{
		RootDir:      canonical,
		Patterns:     cfg.Exclude,
		UseGitignore: cfg.Gitignore,
	})
	if err != nil {
		return nil, err
	}

	return &Options{
		Wipe:           wipe,
		Workers:        cfg.Workers,
		BatchSize:      cfg.BatchSize,
		FollowExternal: cfg.FollowExternal,
		Matcher:        matcher,
	}, nil
}
