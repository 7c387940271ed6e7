// Package tableio loads transaction tables and stores feature tables at the
// edges of a feature build. Locations are "-" (stdin/stdout), a local path,
// a gs:// object holding CSV, or a bq://project.dataset.table reference.
package tableio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dvloznov/txn-features/internal/domain"
	"github.com/dvloznov/txn-features/internal/features"
	"github.com/dvloznov/txn-features/internal/gcs"
	bq "github.com/dvloznov/txn-features/internal/infra/bigquery"
	"github.com/dvloznov/txn-features/internal/logger"
)

// Kind is the storage behind a location.
type Kind int

const (
	KindStdio Kind = iota
	KindFile
	KindGCS
	KindBigQuery
)

const bigQueryScheme = "bq://"

// KindOf classifies a location string.
func KindOf(location string) Kind {
	switch {
	case location == "-":
		return KindStdio
	case gcs.IsURI(location):
		return KindGCS
	case strings.HasPrefix(location, bigQueryScheme):
		return KindBigQuery
	default:
		return KindFile
	}
}

// Options control parsing of transaction sources.
type Options struct {
	TimeLayout     string              // layout of created_date in CSV sources
	BadRows        domain.BadRowPolicy // what to do with unparsable rows
	DefaultProject string              // project for bq:// refs without one
}

// Warehouse is the BigQuery side of table I/O.
type Warehouse interface {
	LoadTransactions(ctx context.Context, ref bq.TableRef, policy domain.BadRowPolicy) ([]domain.Transaction, error)
	SaveFeatures(ctx context.Context, ref bq.TableRef, ft *features.FeatureTable) (string, error)
}

// Endpoints bundles the backends a location may need. Objects and Warehouse
// may be nil when no location of that kind is used.
type Endpoints struct {
	Options   Options
	Stdin     io.Reader
	Stdout    io.Writer
	Objects   gcs.ObjectStore
	Warehouse Warehouse
}

// Load reads the transaction table at location.
func (e *Endpoints) Load(ctx context.Context, location string) ([]domain.Transaction, error) {
	log := logger.FromContext(ctx)

	switch KindOf(location) {
	case KindStdio:
		return ReadCSV(ctx, e.Stdin, e.Options)

	case KindFile:
		f, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("Load: open %q: %w", location, err)
		}
		defer f.Close()
		return ReadCSV(ctx, f, e.Options)

	case KindGCS:
		if e.Objects == nil {
			return nil, fmt.Errorf("Load: %s: no object store configured", location)
		}
		data, err := e.Objects.Fetch(ctx, location)
		if err != nil {
			return nil, fmt.Errorf("Load: %w", err)
		}
		log.Debug().Str("object", gcs.ExtractFilename(location)).Int("bytes", len(data)).Msg("Fetched transactions object")
		return ReadCSV(ctx, bytes.NewReader(data), e.Options)

	case KindBigQuery:
		if e.Warehouse == nil {
			return nil, fmt.Errorf("Load: %s: no BigQuery client configured", location)
		}
		ref, err := bq.ParseTableRef(strings.TrimPrefix(location, bigQueryScheme), e.Options.DefaultProject)
		if err != nil {
			return nil, fmt.Errorf("Load: %w", err)
		}
		return e.Warehouse.LoadTransactions(ctx, ref, e.Options.BadRows)
	}
	return nil, fmt.Errorf("Load: unsupported location %q", location)
}

// Save writes the feature table to location.
func (e *Endpoints) Save(ctx context.Context, location string, ft *features.FeatureTable) error {
	log := logger.FromContext(ctx)

	switch KindOf(location) {
	case KindStdio:
		return WriteCSV(e.Stdout, ft)

	case KindFile:
		f, err := os.Create(location)
		if err != nil {
			return fmt.Errorf("Save: create %q: %w", location, err)
		}
		if err := WriteCSV(f, ft); err != nil {
			_ = f.Close()
			return fmt.Errorf("Save: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("Save: close %q: %w", location, err)
		}
		return nil

	case KindGCS:
		if e.Objects == nil {
			return fmt.Errorf("Save: %s: no object store configured", location)
		}
		var buf bytes.Buffer
		if err := WriteCSV(&buf, ft); err != nil {
			return fmt.Errorf("Save: %w", err)
		}
		if err := e.Objects.Upload(ctx, location, buf.Bytes(), "text/csv"); err != nil {
			return fmt.Errorf("Save: %w", err)
		}
		return nil

	case KindBigQuery:
		if e.Warehouse == nil {
			return fmt.Errorf("Save: %s: no BigQuery client configured", location)
		}
		ref, err := bq.ParseTableRef(strings.TrimPrefix(location, bigQueryScheme), e.Options.DefaultProject)
		if err != nil {
			return fmt.Errorf("Save: %w", err)
		}
		runID, err := e.Warehouse.SaveFeatures(ctx, ref, ft)
		if err != nil {
			return fmt.Errorf("Save: %w", err)
		}
		log.Info().Str("table", ref.String()).Str("run_id", runID).Int("rows", ft.Len()).Msg("Features written to BigQuery")
		return nil
	}
	return fmt.Errorf("Save: unsupported location %q", location)
}

var _ Warehouse = (*bq.Repository)(nil)
