// Package extract copies the installed source files of a package into the
// save directory, either as a single archive or as a bundle container.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/glorpus-work/apkstash/internal/logger"
	"github.com/glorpus-work/apkstash/pkg/archive"
	"github.com/glorpus-work/apkstash/pkg/errutils"
	"github.com/glorpus-work/apkstash/pkg/metrics"
	"github.com/glorpus-work/apkstash/pkg/storage"
)

// Shape is the kind of artifact a save produced.
type Shape int

const (
	ShapeSingle Shape = iota + 1
	ShapeBundle
)

func (s Shape) String() string {
	switch s {
	case ShapeSingle:
		return "single"
	case ShapeBundle:
		return "bundle"
	default:
		return "unknown"
	}
}

// Request describes one save. DestinationDir is a directory URI.
type Request struct {
	SourcePaths     []string
	DestinationDir  string
	DestinationName string
	MimeType        string
	Suffix          string
	// OnProgress is called with the base name of each source once it has
	// been written, in SourcePaths order.
	OnProgress func(name string)
}

// Result is a successful save. Count is the number of bundle entries and is
// 1 for single saves.
type Result struct {
	Shape    Shape
	URI      string
	Count    int
	MimeType string
	Bytes    int64
}

// Cause classifies a failed save.
type Cause int

const (
	CauseInvalid Cause = iota + 1
	CauseInsufficientSpace
	CausePermission
	CauseSourceUnreadable
	CauseDestinationWrite
	CauseCanceled
)

func (c Cause) String() string {
	switch c {
	case CauseInvalid:
		return "invalid request"
	case CauseInsufficientSpace:
		return "insufficient space"
	case CausePermission:
		return "permission denied"
	case CauseSourceUnreadable:
		return "source unreadable"
	case CauseDestinationWrite:
		return "destination write error"
	case CauseCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

func (c Cause) sentinel() error {
	switch c {
	case CauseInvalid:
		return errutils.ErrValidation
	case CauseInsufficientSpace:
		return errutils.ErrInsufficientSpace
	case CausePermission:
		return errutils.ErrPermission
	case CauseSourceUnreadable:
		return errutils.ErrSourceUnreadable
	case CauseCanceled:
		return errutils.ErrCanceled
	default:
		return errutils.ErrDestinationWrite
	}
}

// Failure is the error returned by Save. It matches the taxonomy sentinel
// of its Cause as well as the underlying error.
type Failure struct {
	Cause Cause
	Path  string
	Err   error
}

func (f *Failure) Error() string {
	if f.Path != "" {
		return fmt.Sprintf("%s (%s): %v", f.Cause, f.Path, f.Err)
	}
	return fmt.Sprintf("%s: %v", f.Cause, f.Err)
}

func (f *Failure) Unwrap() []error {
	return []error{f.Cause.sentinel(), f.Err}
}

// Engine performs saves against a storage tree.
type Engine struct {
	tree     storage.Tree
	source   Source
	archiver *archive.Manager
	metrics  *metrics.Metrics
}

// NewEngine creates an engine. metrics may be nil.
func NewEngine(tree storage.Tree, source Source, archiver *archive.Manager, m *metrics.Metrics) *Engine {
	if archiver == nil {
		archiver = archive.NewManager()
	}
	return &Engine{tree: tree, source: source, archiver: archiver, metrics: m}
}

// Save writes the sources of one package to Request.DestinationDir. A single
// source is copied as is; several are packed into one container with an
// entry per source. The output is written under a temporary name and renamed
// to DestinationName+Suffix only after every byte has been written, so a
// failed or canceled save leaves nothing behind. An existing file with the
// final name is replaced.
func (e *Engine) Save(ctx context.Context, req Request) (res Result, err error) {
	start := time.Now()
	shape := ShapeSingle
	if len(req.SourcePaths) > 1 {
		shape = ShapeBundle
	}
	var total int64
	defer func() {
		result := metrics.ResultSuccess
		var f *Failure
		if errors.As(err, &f) && f.Cause == CauseCanceled {
			result = metrics.ResultCanceled
		} else if err != nil {
			result = metrics.ResultFailure
		}
		e.metrics.ObserveExtraction(shape.String(), result, time.Since(start), total)
	}()

	names, err := validate(req)
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, classify(ctx, err)
	}

	infos := make([]SourceInfo, len(req.SourcePaths))
	for i, p := range req.SourcePaths {
		info, statErr := e.source.Stat(ctx, p)
		if statErr != nil {
			if ctx.Err() != nil {
				return Result{}, classify(ctx, statErr)
			}
			return Result{}, &Failure{Cause: CauseSourceUnreadable, Path: p, Err: statErr}
		}
		infos[i] = info
		total += info.Size
	}

	free, err := e.tree.FreeSpace(ctx, req.DestinationDir)
	if err != nil {
		return Result{}, classify(ctx, err)
	}
	if free > 0 && uint64(total) > free {
		return Result{}, &Failure{
			Cause: CauseInsufficientSpace,
			Err:   fmt.Errorf("need %d bytes, %d available", total, free),
		}
	}

	logger.DebugfWithFields(logger.Fields{
		"dest":    req.DestinationDir,
		"name":    req.DestinationName,
		"sources": len(req.SourcePaths),
		"bytes":   total,
	}, "Saving %s", shape)

	pending, err := e.tree.CreateTemp(ctx, req.DestinationDir)
	if err != nil {
		return Result{}, classify(ctx, err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if abortErr := pending.Abort(); abortErr != nil {
			logger.Warn("Failed to remove temporary file", logger.Fields{"error": abortErr.Error()})
		}
	}()

	if shape == ShapeSingle {
		err = e.copySingle(ctx, pending, req.SourcePaths[0], infos[0].Size)
		if err == nil && req.OnProgress != nil {
			req.OnProgress(names[0])
		}
	} else {
		err = e.writeBundle(ctx, pending, req, names, infos)
	}
	if err != nil {
		return Result{}, classify(ctx, err)
	}

	uri, err := pending.Commit(ctx, req.DestinationName+req.Suffix)
	if err != nil {
		return Result{}, classify(ctx, err)
	}
	committed = true

	logger.Debug("Saved", logger.Fields{"uri": uri, "entries": len(names)})
	return Result{
		Shape:    shape,
		URI:      uri,
		Count:    len(names),
		MimeType: req.MimeType,
		Bytes:    total,
	}, nil
}

func (e *Engine) copySingle(ctx context.Context, w io.Writer, src string, size int64) error {
	rc, err := e.source.Open(ctx, src)
	if err != nil {
		return &sourceError{path: src, err: err}
	}
	defer rc.Close()

	n, err := io.Copy(w, &sourceReader{ctx: ctx, path: src, r: rc})
	if err != nil {
		return err
	}
	if n < size {
		return &sourceError{path: src, err: fmt.Errorf("%w after %d of %d bytes", io.ErrUnexpectedEOF, n, size)}
	}
	return nil
}

func (e *Engine) writeBundle(ctx context.Context, w io.Writer, req Request, names []string, infos []SourceInfo) error {
	entries := make([]archive.Entry, len(req.SourcePaths))
	for i, src := range req.SourcePaths {
		entries[i] = archive.Entry{
			Name:    names[i],
			Size:    infos[i].Size,
			ModTime: infos[i].ModTime,
			Open: func() (io.ReadCloser, error) {
				rc, err := e.source.Open(ctx, src)
				if err != nil {
					return nil, &sourceError{path: src, err: err}
				}
				return &sourceReader{ctx: ctx, path: src, r: rc}, nil
			},
		}
	}
	return e.archiver.WriteBundle(ctx, w, entries, func(_ int, name string) {
		if req.OnProgress != nil {
			req.OnProgress(name)
		}
	})
}

func validate(req Request) ([]string, error) {
	invalid := func(format string, args ...any) error {
		return &Failure{Cause: CauseInvalid, Err: fmt.Errorf(format, args...)}
	}
	if len(req.SourcePaths) == 0 {
		return nil, invalid("no source paths")
	}
	if req.DestinationDir == "" {
		return nil, invalid("no destination directory")
	}
	if req.DestinationName == "" || strings.ContainsAny(req.DestinationName, `/\`) {
		return nil, invalid("invalid destination name %q", req.DestinationName)
	}
	names := make([]string, len(req.SourcePaths))
	seen := make(map[string]bool, len(req.SourcePaths))
	for i, p := range req.SourcePaths {
		name := path.Base(filepath.ToSlash(p))
		if p == "" || name == "." || name == "/" {
			return nil, invalid("invalid source path %q", p)
		}
		if seen[name] {
			return nil, invalid("duplicate source name %q", name)
		}
		seen[name] = true
		names[i] = name
	}
	return names, nil
}

func classify(ctx context.Context, err error) error {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	var se *sourceError
	switch {
	case ctx.Err() != nil, errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, errutils.ErrCanceled):
		return &Failure{Cause: CauseCanceled, Err: errutils.Classify(err)}
	case errors.As(err, &se):
		return &Failure{Cause: CauseSourceUnreadable, Path: se.path, Err: se.err}
	case errors.Is(err, io.ErrUnexpectedEOF):
		return &Failure{Cause: CauseSourceUnreadable, Err: err}
	case errors.Is(err, errutils.ErrInsufficientSpace):
		return &Failure{Cause: CauseInsufficientSpace, Err: err}
	case errors.Is(err, errutils.ErrPermission):
		return &Failure{Cause: CausePermission, Err: err}
	default:
		return &Failure{Cause: CauseDestinationWrite, Err: err}
	}
}

// sourceError marks failures on the reading side of a copy.
type sourceError struct {
	path string
	err  error
}

func (e *sourceError) Error() string { return fmt.Sprintf("read %s: %v", e.path, e.err) }
func (e *sourceError) Unwrap() error { return e.err }

// sourceReader stops at cancellation and tags read errors as source errors.
type sourceReader struct {
	ctx  context.Context
	path string
	r    io.ReadCloser
}

func (s *sourceReader) Read(p []byte) (int, error) {
	if err := s.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF {
		return n, &sourceError{path: s.path, err: err}
	}
	return n, err
}

func (s *sourceReader) Close() error { return s.r.Close() }
