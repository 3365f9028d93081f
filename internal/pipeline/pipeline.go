// Package pipeline runs the daily feed: fetch, format, encode, deliver.
//
// Collaborators are injected so a run can be exercised without a database or
// an SFTP server. A run performs each step once; nothing is retried.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/salesfeed/internal/logging"
	"github.com/JonMunkholm/salesfeed/internal/report"
	"github.com/JonMunkholm/salesfeed/internal/transfer"
)

// Error kinds. Run wraps every failure in exactly one of them.
var (
	ErrDataSource = errors.New("data source error")
	ErrTransfer   = errors.New("transfer error")
)

// Fetcher loads the day's sales table.
type Fetcher interface {
	Fetch(ctx context.Context, saleDate time.Time) (*report.Table, error)
}

// Uploader delivers the encoded file.
type Uploader interface {
	Upload(ctx context.Context, remotePath string, data []byte) transfer.Result
}

// Pipeline holds the collaborators and settings for one run.
type Pipeline struct {
	Fetcher  Fetcher
	Uploader Uploader

	// Now returns the run time; defaults to time.Now.
	Now func() time.Time

	// Location is where "yesterday" is computed; nil means time.Local.
	Location *time.Location

	Encoding  report.Encoding
	RemoteDir string

	// Output, when set, receives the CSV instead of the Uploader (dry run).
	Output io.Writer
}

// Summary describes a finished run.
type Summary struct {
	RunID        string
	SaleDate     time.Time
	FileName     string
	RemotePath   string
	Rows         int
	Bytes        int
	NullsCoerced map[string]int
	DryRun       bool
	Transfer     transfer.Result
}

// Run executes the feed once. The CSV is fully built before any transfer
// starts, so a failed run never leaves a partial file behind.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	sum := Summary{RunID: uuid.NewString(), DryRun: p.Output != nil}
	ctx = logging.WithRun(ctx, sum.RunID)
	log := logging.FromContext(ctx)

	sum.SaleDate = report.Yesterday(now(), p.Location)
	sum.FileName = report.FileName(sum.SaleDate)
	log.Info("starting sales feed", "sale_date", report.FormatDate(sum.SaleDate), "file", sum.FileName)

	data, err := p.build(ctx, &sum)
	if err != nil {
		log.Error("sales feed aborted", "error", err)
		return sum, err
	}

	if p.Output != nil {
		if _, err := p.Output.Write(data); err != nil {
			return sum, fmt.Errorf("%w: write dry-run output: %w", ErrDataSource, err)
		}
		log.Info("dry run: csv written locally, transfer skipped", "file", sum.FileName, "bytes", sum.Bytes)
		return sum, nil
	}

	sum.RemotePath = transfer.RemotePath(p.RemoteDir, sum.FileName)
	sum.Transfer = p.Uploader.Upload(ctx, sum.RemotePath, data)
	if !sum.Transfer.OK() {
		diag := transfer.Classify(sum.Transfer.Reason)
		log.Error("failed to deliver sales file",
			"file", sum.FileName,
			"code", diag.Code,
			"hint", diag.Action,
			"error", sum.Transfer.Reason,
		)
		return sum, fmt.Errorf("%w: %w", ErrTransfer, sum.Transfer.Reason)
	}

	log.Info("sales file delivered", "file", sum.FileName, "remote_path", sum.RemotePath, "rows", sum.Rows)
	return sum, nil
}

// build fetches, formats and encodes the table.
func (p *Pipeline) build(ctx context.Context, sum *Summary) ([]byte, error) {
	log := logging.FromContext(ctx)

	table, err := p.Fetcher.Fetch(ctx, sum.SaleDate)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch: %w", ErrDataSource, err)
	}
	sum.Rows = table.Len()
	log.Info("sales fetched", "rows", sum.Rows)

	stats, err := report.Format(table)
	if err != nil {
		return nil, fmt.Errorf("%w: format: %w", ErrDataSource, err)
	}
	sum.NullsCoerced = stats.NullsCoerced
	if n := stats.TotalNulls(); n > 0 {
		log.Warn("null integer values replaced with 0", "total", n, "by_column", stats.NullsCoerced)
	}

	enc := p.Encoding
	if enc.Name == "" {
		enc = report.UTF8
	}
	data, err := report.EncodeCSV(table, enc)
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %w", ErrDataSource, err)
	}
	sum.Bytes = len(data)
	log.Debug("csv built", "bytes", sum.Bytes, "encoding", enc.Name)

	return data, nil
}
