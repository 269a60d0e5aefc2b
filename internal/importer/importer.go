// Package importer implements the certificate import pipeline: decoding an
// uploaded spreadsheet/CSV, resolving its columns against an import profile,
// normalizing and validating each row, and persisting the accepted rows
// through the store. File-level guard violations fail the whole request;
// row-level failures become diagnostics in the summary and never stop the
// batch.
package importer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/pista1997/CertReg/internal/certificate"
)

// File-level failures. These short-circuit the import before any row is
// processed or persisted.
var (
	ErrFileTooLarge      = errors.New("file exceeds the size limit")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyFile         = errors.New("file contains no data rows")
	ErrTooManyRows       = errors.New("file exceeds the row limit")
	ErrDecodeTimeout     = errors.New("decoding exceeded the time budget")
	ErrParseFailure      = errors.New("file could not be parsed")
)

// ClearPolicy controls which prior certificates a fresh import removes
// before inserting the new batch.
type ClearPolicy int

const (
	// ClearNone keeps all existing rows.
	ClearNone ClearPolicy = iota
	// ClearImported removes only rows carrying a thumbprint, i.e. rows a
	// previous automated import created. Manually entered rows survive.
	ClearImported
	// ClearAll wipes the whole table before inserting.
	ClearAll
)

// ParseClearPolicy converts a configured policy name.
func ParseClearPolicy(s string) (ClearPolicy, error) {
	switch s {
	case "none":
		return ClearNone, nil
	case "imported":
		return ClearImported, nil
	case "all":
		return ClearAll, nil
	default:
		return ClearNone, fmt.Errorf("unknown clear policy %q", s)
	}
}

// InsertFailure reports a row the store could not persist. Index points into
// the slice passed to ImportCertificates.
type InsertFailure struct {
	Index int
	Err   error
}

// StoreResult is what the store reports back from one import transaction.
type StoreResult struct {
	Inserted int
	Failed   []InsertFailure
}

// Store persists one accepted batch. The clear step and the inserts must run
// in a single transaction so readers never observe the table between the
// delete and the re-insert. Individual insert failures are isolated (the
// store uses savepoints) and reported per index, not as an error.
type Store interface {
	ImportCertificates(ctx context.Context, clear ClearPolicy, certs []certificate.Certificate) (StoreResult, error)
}

// Summary is the import response. An import never partially fails at the
// file level, and never wholly fails at the row level: even a batch where
// every row was rejected returns a complete summary with Imported: 0.
type Summary struct {
	Message      string     `json:"message"`
	Imported     int        `json:"imported"`
	Errors       int        `json:"errors"`
	ErrorDetails []RowError `json:"errorDetails"`
}

// Options bound a single import run.
type Options struct {
	MaxFileSize   int64
	MaxRows       int
	DecodeTimeout time.Duration
	Clear         ClearPolicy
}

// Importer orchestrates the import pipeline against a Store.
type Importer struct {
	store Store
	opts  Options
}

// New creates an Importer. Zero option fields fall back to the reference
// limits: 5 MiB, 1000 rows, 30s decode budget.
func New(store Store, opts Options) *Importer {
	if opts.MaxFileSize == 0 {
		opts.MaxFileSize = 5 << 20
	}
	if opts.MaxRows == 0 {
		opts.MaxRows = 1000
	}
	if opts.DecodeTimeout == 0 {
		opts.DecodeTimeout = 30 * time.Second
	}
	return &Importer{store: store, opts: opts}
}

// Import runs the whole pipeline for one uploaded file.
func (im *Importer) Import(ctx context.Context, data []byte, mimeType, fileName string, profile Profile) (*Summary, error) {
	if int64(len(data)) > im.opts.MaxFileSize {
		return nil, ErrFileTooLarge
	}
	supported, isCSV := supportedFormat(mimeType, fileName)
	if !supported {
		return nil, ErrUnsupportedFormat
	}

	decodeCtx, cancel := context.WithTimeout(ctx, im.opts.DecodeTimeout)
	defer cancel()
	records, err := decode(decodeCtx, data, isCSV)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrDecodeTimeout
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}
	if len(records) > im.opts.MaxRows {
		return nil, ErrTooManyRows
	}

	var (
		accepted []certificate.Certificate
		rowNums  []int
	)
	rowErrors := []RowError{} // serialized as [], not null, when empty
	for _, rec := range records {
		cert, rowErr := NormalizeRow(rec, profile)
		if rowErr != nil {
			rowErrors = append(rowErrors, *rowErr)
			continue
		}
		accepted = append(accepted, cert)
		rowNums = append(rowNums, rec.Row)
	}

	// The clear policy runs exactly once even when nothing was accepted:
	// a full re-import supersedes the prior snapshot regardless of how many
	// of its rows survived validation.
	result, err := im.store.ImportCertificates(ctx, im.opts.Clear, accepted)
	if err != nil {
		return nil, fmt.Errorf("persist batch: %w", err)
	}
	for _, f := range result.Failed {
		rowErrors = append(rowErrors, RowError{Row: rowNums[f.Index], Error: msgInsertFailed})
	}
	sort.Slice(rowErrors, func(i, j int) bool { return rowErrors[i].Row < rowErrors[j].Row })

	return &Summary{
		Message:      fmt.Sprintf("Import dokončený. Úspešne importovaných: %d, Chyby: %d", result.Inserted, len(rowErrors)),
		Imported:     result.Inserted,
		Errors:       len(rowErrors),
		ErrorDetails: rowErrors,
	}, nil
}
