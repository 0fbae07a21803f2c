package connections

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	dbdriver "dbstudio"
)

type importFile struct {
	Connections []importEntry `yaml:"connections"`
}

type importEntry struct {
	Name                      string `yaml:"name"`
	dbdriver.ConnectionConfig `yaml:",inline"`
}

// ImportResult reports which named connections were created and which were
// skipped because the name was already taken.
type ImportResult struct {
	Created []string
	Skipped []string
}

// ImportFile loads a YAML list of connections and stores the ones whose name
// is not yet present:
//
//	connections:
//	  - name: analytics
//	    driver: turso
//	    url: libsql://analytics.turso.io
//	    token: ...
func ImportFile(ctx context.Context, store *SQLStore, path string) (*ImportResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	var file importFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse import file: %w", err)
	}
	result := &ImportResult{}
	for i, entry := range file.Connections {
		if entry.Name == "" {
			return result, fmt.Errorf("connection #%d has no name: %w", i+1, ErrInvalidInput)
		}
		_, err := store.Create(ctx, entry.Name, entry.ConnectionConfig)
		switch {
		case errors.Is(err, ErrConflict):
			result.Skipped = append(result.Skipped, entry.Name)
		case err != nil:
			return result, fmt.Errorf("import %q: %w", entry.Name, err)
		default:
			result.Created = append(result.Created, entry.Name)
		}
	}
	return result, nil
}
