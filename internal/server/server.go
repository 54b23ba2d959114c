package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/SpatiumPortae/tftcp/internal/conn"
	"github.com/SpatiumPortae/tftcp/internal/file"
	"github.com/SpatiumPortae/tftcp/internal/logger"
	"github.com/SpatiumPortae/tftcp/internal/semver"
	"github.com/SpatiumPortae/tftcp/internal/stream"
	"github.com/gorilla/mux"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	DEFAULT_PORT      = 6969
	DEFAULT_POOL_SIZE = 10
)

var ErrServerClosed = errors.New("server closed")

// Config specifies the settings of a Server.
type Config struct {
	Port           int
	AdminPort      int // 0 disables the admin HTTP server
	StorageRoot    string
	PoolSize       int
	ChunkSize      int
	IOTimeout      time.Duration // 0 disables idle deadlines
	ConfineStorage bool
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = DEFAULT_PORT
	}
	if c.StorageRoot == "" {
		c.StorageRoot = file.DEFAULT_STORAGE_ROOT
	}
	if c.PoolSize <= 0 {
		c.PoolSize = DEFAULT_POOL_SIZE
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = stream.DefaultChunkSize
	}
	return c
}

// Server contains the necessary data to run the transfer server.
type Server struct {
	cnf        Config
	fs         afero.Fs
	storage    *file.Root
	httpServer *http.Server
	router     *mux.Router
	signal     chan os.Signal
	logger     *zap.Logger
	version    *semver.Version

	mu       sync.RWMutex
	closing  bool
	sessions *pool.Pool
}

type Option func(*Server)

// WithLogger replaces the default production logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithFs sets the filesystem holding the storage root.
func WithFs(fs afero.Fs) Option {
	return func(s *Server) {
		s.fs = fs
	}
}

// NewServer constructs a new Server struct and setups the admin routes.
func NewServer(cnf Config, version semver.Version, opts ...Option) *Server {
	cnf = cnf.withDefaults()
	s := &Server{
		cnf:      cnf,
		fs:       afero.NewOsFs(),
		router:   &mux.Router{},
		signal:   make(chan os.Signal, 1),
		version:  &version,
		sessions: pool.New().WithMaxGoroutines(cnf.PoolSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.New()
	}

	storageOpts := []file.Option{file.WithFs(s.fs)}
	if cnf.ConfineStorage {
		storageOpts = append(storageOpts, file.Confined())
	}
	s.storage = file.NewRoot(cnf.StorageRoot, storageOpts...)

	if cnf.AdminPort != 0 {
		stdLoggerWrapper, _ := zap.NewStdLogAt(s.logger, zap.ErrorLevel)
		s.httpServer = &http.Server{
			Addr:         fmt.Sprintf(":%d", cnf.AdminPort),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			Handler:      s.router,
			ErrorLog:     stdLoggerWrapper,
		}
	}
	s.routes()
	return s
}

// Start runs the server until it receives an interrupt or termination signal.
// Failing to bind the transfer port aborts the process.
func (s *Server) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	signal.Notify(s.signal, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(s.signal)

	go func() {
		<-s.signal
		s.logger.Info("tftcp server is shutting down")
		cancel()
	}()

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cnf.Port))
	if err != nil {
		s.logger.Fatal("binding transfer port", zap.Int("port", s.cnf.Port), zap.Error(err))
	}

	if s.httpServer != nil {
		go func() {
			if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.logger.Fatal("serving admin endpoints", zap.Error(err), zap.Stack("stack_trace"))
			}
		}()
	}

	if err := s.Serve(ctx, ln); err != nil {
		s.logger.Error("serving tftcp server", zap.Error(err), zap.Stack("stack_trace"))
	}
	s.logger.Info("tftcp server shutdown successfully")
}

// Serve accepts connections on ln until ctx is done, handling each one in a
// session drawn from the worker pool. When the pool is saturated accepting
// blocks until a session finishes. Once ctx is done the listener is closed,
// and Serve returns after all in-flight sessions have completed.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	cwd, _ := os.Getwd()
	s.logger.
		With(zap.String("version", s.version.String())).
		With(zap.String("address", ln.Addr().String())).
		With(zap.String("working_dir", cwd)).
		With(zap.String("storage_root", s.cnf.StorageRoot)).
		With(zap.Int("pool_size", s.cnf.PoolSize)).
		Info("serving tftcp server")

	var err error
	for {
		c, acceptErr := ln.Accept()
		if acceptErr != nil {
			if ctx.Err() != nil || errors.Is(acceptErr, net.ErrClosed) {
				break
			}
			s.logger.Error("accepting connection", zap.Error(acceptErr))
			continue
		}
		tc := conn.Wrap(c)
		lgr := s.logger.With(
			zap.String("remote_addr", c.RemoteAddr().String()),
			zap.String("transport", conn.TransportTCP),
		)
		lgr.Info("client connected")
		if submitErr := s.submit(func() { s.handleSession(tc, lgr) }); submitErr != nil {
			tc.Close()
			err = submitErr
			break
		}
	}
	return errors.Join(err, s.shutdown())
}

// submit hands the task to the worker pool, blocking while the pool is saturated.
func (s *Server) submit(task func()) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closing {
		return ErrServerClosed
	}
	s.sessions.Go(task)
	return nil
}

// shutdown stops the admin server and waits for in-flight sessions.
func (s *Server) shutdown() error {
	var err error
	if s.httpServer != nil {
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := s.httpServer.Shutdown(ctxShutdown); shutdownErr != nil && shutdownErr != http.ErrServerClosed {
			err = fmt.Errorf("shutting down admin server: %w", shutdownErr)
		}
	}

	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	s.logger.Info("waiting for in-flight sessions")
	s.sessions.Wait()
	return err
}
