package convert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"olc/common"
	"olc/doc"
)

// State tracks a conversion operation through its lifecycle.
type State int

const (
	StateIdle State = iota
	StateConverting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConverting:
		return "converting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Operation is one tracked conversion of a document to an output file. It
// runs at most once: Run snapshots the document, performs the export and
// records the outcome for later inspection.
type Operation struct {
	ID     string
	Path   string
	Format common.Format
	Opts   Options

	mu       sync.Mutex
	state    State
	warnings []common.FidelityWarning
	err      error

	d   *doc.Document
	log *zap.Logger
}

func NewOperation(d *doc.Document, path string, format common.Format, opts Options, log *zap.Logger) *Operation {
	return &Operation{
		ID:     uuid.NewString(),
		Path:   path,
		Format: format,
		Opts:   opts,
		d:      d,
		log:    log.Named("convert"),
	}
}

// State returns the current lifecycle state.
func (o *Operation) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Result returns the warnings and error recorded by Run. Meaningful once
// the operation reached Done or Failed.
func (o *Operation) Result() ([]common.FidelityWarning, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.warnings, o.err
}

// Run performs the conversion. Calling Run on an operation that already
// started is an error and does not disturb the recorded outcome.
func (o *Operation) Run(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return fmt.Errorf("operation %s already started", o.ID)
	}
	o.state = StateConverting
	o.mu.Unlock()

	start := time.Now()
	o.log.Info("Conversion starting",
		zap.String("id", o.ID), zap.String("to", o.Path), zap.Stringer("format", o.Format))

	warnings, err := ExportFile(ctx, o.d, o.Path, o.Format, o.Opts, o.log)

	o.mu.Lock()
	o.warnings, o.err = warnings, err
	if err != nil {
		o.state = StateFailed
	} else {
		o.state = StateDone
	}
	o.mu.Unlock()

	if err != nil {
		o.log.Error("Conversion failed",
			zap.String("id", o.ID), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return err
	}
	o.log.Info("Conversion completed",
		zap.String("id", o.ID),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("to", o.Path),
		zap.Int("warnings", len(warnings)))
	return nil
}
