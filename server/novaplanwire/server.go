package novaplanwire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/tuannm99/novaplan/internal/engine"
)

type Server struct {
	engine *engine.Engine
	log    *slog.Logger
}

func NewServer(eng *engine.Engine, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{engine: eng, log: log}
}

// ListenAndServe listens on addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.log.Info("novaplan tcp server listening", "addr", ln.Addr().String())
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then closes ln and
// waits for open connections to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.log.Error("accept", "err", err)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.HandleConn(ctx, conn)
		}()
	}
}

// HandleConn serves plan requests on conn until the peer closes it, a
// frame is malformed or ctx is done.
func (s *Server) HandleConn(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var req PlanRequest
		if err := ReadFrame(conn, &req); err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.log.Debug("read frame", "remote", conn.RemoteAddr(), "err", err)
			}
			return
		}

		if err := WriteFrame(conn, s.plan(ctx, req)); err != nil {
			s.log.Debug("write frame", "remote", conn.RemoteAddr(), "err", err)
			return
		}
	}
}

func (s *Server) plan(ctx context.Context, req PlanRequest) PlanResponse {
	optimize := req.Optimize == nil || *req.Optimize
	pq, cost, err := s.engine.Plan(ctx, req.SQL, optimize)
	if err != nil {
		kind := engine.Classify(err)
		if kind == engine.KindInternal {
			s.log.Error("plan failed", "id", req.ID, "err", err)
		}
		return PlanResponse{ID: req.ID, Error: err.Error(), Kind: string(kind)}
	}

	report := engine.NewReport(pq, cost, optimize)
	return PlanResponse{ID: req.ID, Report: &report}
}
