package scan

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	"sparkscan/internal/logging"
	"sparkscan/internal/ocr"
)

// FolderFunc processes one folder with a worker's reader.
type FolderFunc func(ctx context.Context, folder string, reader ocr.Reader) Outcome

// ReaderFactory creates one OCR reader per worker. Readers that implement
// io.Closer are closed when their worker exits.
type ReaderFactory func() (ocr.Reader, error)

// Run processes folders on a fixed pool of workers, each owning its own
// reader. Every folder yields exactly one outcome in the report, unless ctx
// is cancelled first; a folder already in progress always finishes. A panic
// while processing a folder becomes a failed outcome for that folder.
func Run(ctx context.Context, folders []string, workers int, newReader ReaderFactory, process FolderFunc, log *logging.Logger) (*Report, error) {
	log = logging.OrNop(log)
	report := NewReport()
	if len(folders) == 0 {
		report.Finish()
		return report, nil
	}
	workers = max(1, min(workers, len(folders)))

	jobs := make(chan string)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for _, f := range folders {
			select {
			case jobs <- f:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < workers; i++ {
		worker := i
		g.Go(func() error {
			reader, err := newReader()
			if err != nil {
				return fmt.Errorf("worker %d: create ocr reader: %w", worker, err)
			}
			if c, ok := reader.(io.Closer); ok {
				defer c.Close()
			}
			for folder := range jobs {
				out := safeProcess(context.WithoutCancel(gctx), folder, reader, process)
				if out.Status == Failed {
					log.Error("folder failed", "folder", folder, "reason", out.Reason, "worker", worker)
				}
				report.Add(out)
			}
			return nil
		})
	}

	err := g.Wait()
	report.Finish()
	log.Info("scan finished", "run", report.RunID, "folders", len(report.Outcomes), "workers", workers)
	return report, err
}

func safeProcess(ctx context.Context, folder string, reader ocr.Reader, process FolderFunc) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{
				Folder: folder,
				Status: Failed,
				Reason: fmt.Sprintf("panic: %v\n%s", r, debug.Stack()),
			}
		}
	}()
	return process(ctx, folder, reader)
}

// Run processes folders with this processor.
func (p *Processor) Run(ctx context.Context, folders []string, workers int, newReader ReaderFactory) (*Report, error) {
	return Run(ctx, folders, workers, newReader, p.ProcessFolder, p.log)
}
