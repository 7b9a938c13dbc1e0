package plans

import (
	"context"
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// fileSource loads the catalog from a YAML file maintained by admin tooling.
//
// File format:
//
//	plans:
//	  free:
//	    id: free
//	    name: Free
//	    interval: none
//	    limits:
//	      job_posting: 1
//	      direct_application: 10
//	    active: true
type fileSource struct {
	path string
}

// NewFileSource returns a Source that reads the plan catalog from a YAML file.
// The file is re-read on every Load, so a catalog reload picks up edits.
func NewFileSource(path string) Source {
	return &fileSource{path: path}
}

type catalogFile struct {
	Plans map[string]Plan `yaml:"plans"`
}

func (s *fileSource) Load(ctx context.Context) (map[string]Plan, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadCatalog, err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, errors.Join(ErrFailedToLoadCatalog, err)
	}

	// Fill IDs from map keys when the file omits them.
	for id, plan := range file.Plans {
		if plan.ID == "" {
			plan.ID = id
			file.Plans[id] = plan
		}
	}

	return file.Plans, nil
}
