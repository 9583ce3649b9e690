package parser

import (
	"context"
	"fmt"
	"os"

	"github.com/noclense/noclense/pkg/logs/model"
	"go.uber.org/zap"
)

// ParseRequest is the worker input message: raw text plus its source name.
type ParseRequest struct {
	Text     string
	FileName string
}

// ParseResult is the worker output message: a completed entry batch or an
// error. Delivery is all-or-nothing; there is no partial progress.
type ParseResult struct {
	FileName string
	Entries  []model.LogEntry
	Err      error
}

const requestQueueSize = 4

// Worker runs parsing off the caller's goroutine so large files never block
// interactive use. Input and output travel over channels only; the worker
// shares no mutable state with the query side.
type Worker struct {
	parser   *Parser
	requests chan ParseRequest
	results  chan ParseResult
	logger   *zap.Logger
}

func NewWorker(p *Parser, logger *zap.Logger) *Worker {
	return &Worker{
		parser:   p,
		requests: make(chan ParseRequest, requestQueueSize),
		results:  make(chan ParseResult, requestQueueSize),
		logger:   logger,
	}
}

// Start launches the worker loop. It runs until the context is cancelled,
// then closes the results channel.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		defer close(w.results)
		for {
			select {
			case <-ctx.Done():
				return
			case req := <-w.requests:
				entries := w.parser.Parse(req.Text, req.FileName)
				w.logger.Info("Parsed file",
					zap.String("file_name", req.FileName),
					zap.Int("entry_count", len(entries)),
				)
				select {
				case <-ctx.Done():
					return
				case w.results <- ParseResult{FileName: req.FileName, Entries: entries}:
				}
			}
		}
	}()
}

// Submit queues raw text for parsing.
func (w *Worker) Submit(req ParseRequest) {
	w.requests <- req
}

// SubmitFile reads the file and queues its content. Read failures surface as
// an error result; parse-level malformations never do.
func (w *Worker) SubmitFile(path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		w.results <- ParseResult{
			FileName: path,
			Err:      fmt.Errorf("failed to read log file %s: %w", path, err),
		}
		return
	}
	w.requests <- ParseRequest{Text: string(content), FileName: path}
}

// Results is the worker's output channel.
func (w *Worker) Results() <-chan ParseResult {
	return w.results
}
