package classindex

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	cerrors "github.com/Aman-CERP/classcache/internal/errors"
)

// InitStats summarizes a BulkInitialize run.
type InitStats struct {
	FilesListed   int           `json:"files_listed"`
	FilesScanned  int           `json:"files_scanned"`
	ReadFailures  int           `json:"read_failures"`
	OpenDocuments int           `json:"open_documents"`
	Duration      time.Duration `json:"duration"`
	Canceled      bool          `json:"canceled"`
	// ListError is set when listing stopped early; the index then holds
	// only the files listed before the failure.
	ListError string `json:"list_error,omitempty"`
}

// Progress receives BulkInitialize updates. Implementations must be safe
// for concurrent use; FileDone is called from the read workers.
type Progress interface {
	Listed(total int)
	FileDone(ok bool)
	OpenDocumentsApplied(n int)
}

type nopProgress struct{}

func (nopProgress) Listed(int)               {}
func (nopProgress) FileDone(bool)            {}
func (nopProgress) OpenDocumentsApplied(int) {}

// BulkInitialize populates the index from disk, then from open documents.
//
// Files are read concurrently. A file that cannot be read is logged and its
// entry removed. Open documents are applied only after every disk read has
// finished, so unsaved editor text wins over the file on disk. Either source
// may be nil. If ctx is canceled, remaining reads are skipped and open
// documents are not applied.
func (i *Index) BulkInitialize(ctx context.Context, files FileSource, open OpenDocumentSource) InitStats {
	start := time.Now()
	var stats InitStats

	if files != nil {
		ids, err := files.ListMarkupFiles(ctx)
		if err != nil {
			i.logger.Warn("failed to list markup files", slog.String("error", err.Error()))
			if ctx.Err() == nil {
				stats.ListError = err.Error()
			}
		}
		stats.FilesListed = len(ids)
		i.progress.Listed(len(ids))

		var scanned, failed atomic.Int64
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(i.workers)
		for _, id := range ids {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if gctx.Err() != nil {
					return nil
				}
				if err := i.ScanFile(gctx, files, id); err != nil {
					failed.Add(1)
					i.progress.FileDone(false)
					return nil
				}
				scanned.Add(1)
				i.progress.FileDone(true)
				return nil
			})
		}
		_ = g.Wait()

		stats.FilesScanned = int(scanned.Load())
		stats.ReadFailures = int(failed.Load())
	}

	if ctx.Err() != nil {
		stats.Canceled = true
		stats.Duration = time.Since(start)
		return stats
	}

	if open != nil {
		for _, doc := range open.OpenDocuments(ctx) {
			i.ScanAndStore(doc.ID, doc.Text)
			stats.OpenDocuments++
		}
		i.progress.OpenDocumentsApplied(stats.OpenDocuments)
	}

	stats.Duration = time.Since(start)
	return stats
}

// ScanFile reads id from files and stores its tokens. If the read or decode
// fails, the failure is logged, any entry for id is removed and the
// classified error is returned. The index is consistent either way.
func (i *Index) ScanFile(ctx context.Context, files FileSource, id Identity) error {
	data, err := files.ReadFile(ctx, id)
	if err == nil {
		var text string
		text, err = decodeText(data)
		if err == nil {
			i.ScanAndStore(id, text)
			return nil
		}
	}

	path, ok := id.Path()
	if !ok {
		path = id.String()
	}
	ce := cerrors.ClassifyReadError(path, err)
	attrs := append([]slog.Attr{slog.String("uri", id.String())}, cerrors.LogAttrs(ce)...)
	i.logger.LogAttrs(ctx, slog.LevelWarn, "failed to read markup file", attrs...)
	i.Remove(id)
	return ce
}
