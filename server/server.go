// Package server boots the HTTP surface and owns the background workers'
// lifecycle.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/studypace/studypace/internal/profile"
	apiv1 "github.com/studypace/studypace/server/router/api/v1"
	"github.com/studypace/studypace/server/stats"
	"github.com/studypace/studypace/store"
)

const shutdownTimeout = 10 * time.Second

// Server is the assembled studypace instance.
type Server struct {
	profile *profile.Profile
	store   *store.Store

	echoServer *echo.Echo
	apiService *apiv1.APIV1Service
	collector  *stats.Collector
}

// NewServer assembles the HTTP server and its services.
func NewServer(ctx context.Context, p *profile.Profile, st *store.Store) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())

	collector := stats.NewCollector(st, time.Hour)
	apiService, err := apiv1.NewAPIV1Service(p, st, collector)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create api service")
	}
	apiService.Register(e)

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})

	return &Server{
		profile:    p,
		store:      st,
		echoServer: e,
		apiService: apiService,
		collector:  collector,
	}, nil
}

// Start runs the listener and background workers until ctx is cancelled,
// then shuts everything down in order.
func (s *Server) Start(ctx context.Context) error {
	s.collector.Start(ctx)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		err := s.listen()
		if err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "server listener failed")
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		s.shutdown()
		return nil
	})
	return group.Wait()
}

func (s *Server) listen() error {
	if s.profile.UNIXSock != "" {
		// A stale socket from a crashed process blocks the bind.
		if err := os.Remove(s.profile.UNIXSock); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "failed to remove socket %s", s.profile.UNIXSock)
		}
		slog.Info("server listening", slog.String("socket", s.profile.UNIXSock))
		return s.echoServer.Start(fmt.Sprintf("unix://%s", s.profile.UNIXSock))
	}
	addr := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	slog.Info("server listening", slog.String("addr", addr))
	return s.echoServer.Start(addr)
}

func (s *Server) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}
	s.collector.Stop()
	s.apiService.Close()
	if err := s.store.Close(); err != nil {
		slog.Error("failed to close store", slog.String("error", err.Error()))
	}
	slog.Info("server shutdown complete")
}
