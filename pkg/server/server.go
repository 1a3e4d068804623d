package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bastiangx/wordlink/internal/logger"
	"github.com/bastiangx/wordlink/pkg/config"
	"github.com/bastiangx/wordlink/pkg/linker"
	"github.com/bastiangx/wordlink/pkg/vault"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultLimit is used when a completion request has no limit.
const DefaultLimit = 10

var (
	// ErrUnknownAction is returned for requests with an action the server does not know.
	ErrUnknownAction = errors.New("unknown action")
	// ErrBadRequest is returned for requests missing a required field.
	ErrBadRequest = errors.New("bad request")
	// ErrTooLarge is returned for link requests over the configured text size.
	ErrTooLarge = errors.New("text too large")
)

// Source is the vault the server links against.
type Source interface {
	linker.Source
	Read(id string) (string, error)
}

// Server handles the IPC for entity linking.
// It owns the index and serializes every access to it, so a file watcher may
// call Refresh while requests are being served.
type Server struct {
	mu  sync.Mutex
	ix  *linker.Index
	src Source
	cfg config.ServerConfig
	log *log.Logger
}

// New creates a server over ix. A nil logger gets the "server" prefix.
func New(ix *linker.Index, src Source, cfg config.ServerConfig, l *log.Logger) *Server {
	if l == nil {
		l = logger.New("server")
	}
	return &Server{ix: ix, src: src, cfg: cfg, log: l}
}

// Serve reads requests from r until EOF or ctx is done and writes one
// response per request to w.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	s.log.Debug("Starting server.")
	dec := msgpack.NewDecoder(bufio.NewReader(r))
	out := bufio.NewWriter(w)
	enc := msgpack.NewEncoder(out)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var req Request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			s.log.Errorf("Decoding request: %v", err)
			s.write(enc, out, ErrorResponse{Error: "invalid msgpack request", Code: 400})
			return fmt.Errorf("decode request: %w", err)
		}

		resp, err := s.Handle(ctx, req)
		if err != nil {
			s.log.Debug("request failed", "id", req.ID, "action", req.Action, "err", err)
			resp = ErrorResponse{ID: req.ID, Error: err.Error(), Code: errorCode(err)}
		}
		if err := s.write(enc, out, resp); err != nil {
			return err
		}
	}
}

func (s *Server) write(enc *msgpack.Encoder, out *bufio.Writer, resp any) error {
	if err := enc.Encode(resp); err != nil {
		s.log.Errorf("Encoding response: %v", err)
		return fmt.Errorf("encode response: %w", err)
	}
	return out.Flush()
}

// Handle runs one request and returns the value to send back.
func (s *Server) Handle(ctx context.Context, req Request) (any, error) {
	action := req.Action
	if action == "" && req.Prefix != "" {
		action = ActionComplete
	}

	switch action {
	case ActionLink:
		return s.handleLink(req)
	case ActionComplete:
		return s.handleComplete(req)
	case ActionRefresh:
		return s.handleRefresh(ctx, req)
	case ActionHealth:
		s.mu.Lock()
		stats := s.ix.Stats()
		s.mu.Unlock()
		return HealthResponse{ID: req.ID, Status: "ok", Entities: stats["entities"], Names: stats["names"]}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
}

// Refresh reloads the given note IDs, or every note when none are given.
func (s *Server) Refresh(ctx context.Context, hints ...string) (linker.RefreshStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats, err := s.ix.Refresh(ctx, s.src, hints...)
	if err != nil {
		return stats, err
	}
	s.log.Debug("refreshed", "full", stats.Full, "indexed", stats.Indexed, "skipped", stats.Skipped,
		"removed", stats.Removed, "failed", stats.Failed)
	return stats, nil
}

func (s *Server) handleLink(req Request) (any, error) {
	if req.Path == "" && req.Text == "" {
		return nil, fmt.Errorf("%w: missing path and text", ErrBadRequest)
	}
	text := req.Text
	if text == "" {
		var err error
		if text, err = s.src.Read(req.Path); err != nil {
			return nil, err
		}
	}
	if s.cfg.MaxTextBytes > 0 && len(text) > s.cfg.MaxTextBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(text), s.cfg.MaxTextBytes)
	}

	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	linked := roaring.New()
	for _, id := range req.Linked {
		if h, ok := s.ix.Handle(id); ok {
			linked.Add(h)
		}
	}

	links, after := s.ix.AnnotateDocument(req.Path, text, linked)
	spans := make([]LinkSpan, 0, len(links))
	for _, l := range links {
		targets := make([]string, len(l.Targets))
		for i, e := range l.Targets {
			targets[i] = e.ID
		}
		spans = append(spans, LinkSpan{
			Start:   l.Start,
			End:     l.End,
			Text:    l.Text,
			Targets: targets,
			Alias:   l.IsAlias,
			Partial: l.PartialWord,
		})
	}

	ids := make([]string, 0, after.GetCardinality())
	it := after.Iterator()
	for it.HasNext() {
		if e, ok := s.ix.Entity(it.Next()); ok {
			ids = append(ids, e.ID)
		}
	}

	return LinkResponse{
		ID:        req.ID,
		Links:     spans,
		Linked:    ids,
		Count:     len(spans),
		TimeTaken: time.Since(start).Microseconds(),
	}, nil
}

func (s *Server) handleComplete(req Request) (any, error) {
	if req.Prefix == "" {
		return nil, fmt.Errorf("%w: missing 'p' parameter", ErrBadRequest)
	}
	limit := req.Limit
	if limit < 1 {
		limit = DefaultLimit
	}
	if s.cfg.MaxLimit > 0 && limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}

	start := time.Now()
	s.mu.Lock()
	suggestions := s.ix.Complete(req.Prefix, limit)
	s.mu.Unlock()

	if suggestions == nil {
		suggestions = []linker.Suggestion{}
	}
	return CompletionResponse{
		ID:          req.ID,
		Suggestions: suggestions,
		Count:       len(suggestions),
		TimeTaken:   time.Since(start).Microseconds(),
	}, nil
}

func (s *Server) handleRefresh(ctx context.Context, req Request) (any, error) {
	start := time.Now()
	stats, err := s.Refresh(ctx, req.Paths...)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	n := s.ix.Len()
	s.mu.Unlock()
	return RefreshResponse{
		ID:        req.ID,
		Status:    "ok",
		Stats:     stats,
		Entities:  n,
		TimeTaken: time.Since(start).Microseconds(),
	}, nil
}

func errorCode(err error) int {
	switch {
	case errors.Is(err, ErrTooLarge):
		return 413
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrUnknownAction):
		return 400
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, vault.ErrNotNote):
		return 404
	default:
		return 500
	}
}
