package pipeline

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/tordrt/schemagraph/internal/schema"
)

// Automation configures how Get obtains a schema when none is current
type Automation struct {
	AutoRead    bool
	AutoDraft   bool
	AutoArchive bool
	// Silent makes Get record ErrNoSchemaAvailable instead of returning it
	Silent bool
}

// Config configures an Orchestrator
type Config struct {
	Logger     logger.Logger
	Drafters   []Drafter
	Archivers  []Archiver
	Reader     Reader
	Automation Automation
}

// Orchestrator holds the current schema and the errors aggregated from
// handlers. It is not safe for concurrent use.
type Orchestrator struct {
	logger     logger.Logger
	drafters   []Drafter
	archivers  []Archiver
	reader     Reader
	automation Automation

	current schema.TableContainer
	errors  []error
}

// New creates an orchestrator with default handlers
func New(config Config) *Orchestrator {
	return &Orchestrator{
		logger:     config.Logger.WithPrefix("[pipeline]"),
		drafters:   config.Drafters,
		archivers:  config.Archivers,
		reader:     config.Reader,
		automation: config.Automation,
	}
}

// Draft runs the drafters in order, or the defaults when none are given,
// and folds each result onto the current schema. Later drafters win per
// key. A failing drafter is recorded and the rest still run.
func (o *Orchestrator) Draft(ctx context.Context, handlers ...Drafter) *Orchestrator {
	if len(handlers) == 0 {
		handlers = o.drafters
	}
	if len(handlers) == 0 {
		o.errors = append(o.errors, errors.New("no draft handlers configured"))
		return o
	}

	for _, h := range handlers {
		result, err := h.Draft(ctx)
		o.errors = append(o.errors, h.Errors()...)
		if err != nil {
			o.logger.Warn("draft handler %T failed: %s", h, err)
			o.errors = append(o.errors, errors.Wrapf(err, "draft handler %T", h))
			continue
		}
		if result == nil {
			continue
		}
		if o.current == nil {
			o.current = result
		} else {
			o.current = schema.Merge(o.current, result)
		}
		o.logger.Debug("drafted %d tables with %T", result.Len(), h)
	}
	return o
}

// Archive persists the current schema with every handler, or the defaults
// when none are given. It reports whether all handlers succeeded. Archiving
// without a current schema is a contract violation.
func (o *Orchestrator) Archive(ctx context.Context, handlers ...Archiver) (bool, error) {
	if o.current == nil {
		return false, errors.AssertionFailedf("archive called without a current schema")
	}
	if len(handlers) == 0 {
		handlers = o.archivers
	}
	if len(handlers) == 0 {
		o.errors = append(o.errors, errors.New("no archive handlers configured"))
		return false, nil
	}

	ok := true
	for _, h := range handlers {
		err := h.Archive(ctx, o.current)
		o.errors = append(o.errors, h.Errors()...)
		if err != nil {
			o.logger.Warn("archive handler %T failed: %s", h, err)
			o.errors = append(o.errors, errors.Wrapf(err, "archive handler %T", h))
			ok = false
			continue
		}
		o.logger.Debug("archived with %T", h)
	}
	return ok, nil
}

// Read replaces the current schema with the one the reader returns, or the
// default reader when handler is nil. On failure the current schema is kept.
// Nothing being archived yet is not recorded as an error.
func (o *Orchestrator) Read(ctx context.Context, handler Reader) *Orchestrator {
	if handler == nil {
		handler = o.reader
	}
	if handler == nil {
		o.errors = append(o.errors, errors.New("no read handler configured"))
		return o
	}

	result, err := handler.Read(ctx)
	o.errors = append(o.errors, handler.Errors()...)
	if err != nil {
		if errors.Is(err, ErrNotArchived) {
			o.logger.Debug("nothing archived for %T", handler)
			return o
		}
		o.logger.Warn("read handler %T failed: %s", handler, err)
		o.errors = append(o.errors, errors.Wrapf(err, "read handler %T", handler))
		return o
	}
	o.current = result
	return o
}

// Get returns the current schema, obtaining one through the automation
// chain when none is set: read, then draft and optionally archive.
func (o *Orchestrator) Get(ctx context.Context) (schema.TableContainer, error) {
	if o.current != nil {
		return o.current, nil
	}

	if o.automation.AutoRead {
		o.Read(ctx, nil)
		if o.current != nil {
			return o.current, nil
		}
	}

	if o.automation.AutoDraft {
		o.Draft(ctx)
		if o.current != nil {
			if o.automation.AutoArchive {
				if _, err := o.Archive(ctx); err != nil {
					return nil, err
				}
			}
			return o.current, nil
		}
	}

	if o.automation.Silent {
		o.errors = append(o.errors, ErrNoSchemaAvailable)
		return nil, nil
	}
	return nil, ErrNoSchemaAvailable
}

// Current returns the current schema without running automation
func (o *Orchestrator) Current() schema.TableContainer {
	return o.current
}

// Reset clears the current schema and the aggregated errors
func (o *Orchestrator) Reset() {
	o.current = nil
	o.errors = nil
}

// Errors returns and clears the aggregated errors
func (o *Orchestrator) Errors() []error {
	errs := o.errors
	o.errors = nil
	return errs
}
