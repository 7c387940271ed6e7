package bigquery

import (
	"fmt"
	"strings"
)

// TableRef identifies a BigQuery table.
type TableRef struct {
	ProjectID string
	DatasetID string
	TableID   string
}

// String renders the reference as project.dataset.table.
func (r TableRef) String() string {
	return r.ProjectID + "." + r.DatasetID + "." + r.TableID
}

// ParseTableRef reads "project.dataset.table" or "dataset.table"; the latter
// uses defaultProject.
func ParseTableRef(s, defaultProject string) (TableRef, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	for _, p := range parts {
		if p == "" {
			return TableRef{}, fmt.Errorf("invalid table reference %q", s)
		}
	}

	switch len(parts) {
	case 3:
		return TableRef{ProjectID: parts[0], DatasetID: parts[1], TableID: parts[2]}, nil
	case 2:
		if defaultProject == "" {
			return TableRef{}, fmt.Errorf("table reference %q has no project and none is configured", s)
		}
		return TableRef{ProjectID: defaultProject, DatasetID: parts[0], TableID: parts[1]}, nil
	default:
		return TableRef{}, fmt.Errorf("invalid table reference %q (want project.dataset.table)", s)
	}
}
