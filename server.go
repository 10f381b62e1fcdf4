package gitguide

import (
	"context"
	"errors"
	"sync"

	"pkt.systems/gitguide/gateway"
	"pkt.systems/pslog"
)

// Server composes the gateway service.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
}

// ServerConfig configures the compositor.
type ServerConfig struct {
	Gateway gateway.Config
}

// ServerOption toggles compositor components.
type ServerOption func(*serverOptions)

type serverOptions struct {
	enableGateway bool
}

// WithGateway enables the HTTP/WebSocket gateway.
func WithGateway() ServerOption {
	return func(o *serverOptions) { o.enableGateway = true }
}

// New constructs a composable gitguide server.
func New(cfg ServerConfig, opts ...ServerOption) (Server, error) {
	options := serverOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if !options.enableGateway {
		return nil, errors.New("no services enabled")
	}

	gatewaySrv, err := gateway.NewServer(cfg.Gateway)
	if err != nil {
		return nil, err
	}

	return &compositeServer{
		cfg:        cfg,
		options:    options,
		gatewaySrv: gatewaySrv,
	}, nil
}

type compositeServer struct {
	cfg        ServerConfig
	options    serverOptions
	gatewaySrv *gateway.Server
	logger     pslog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	started bool
}

func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.errCh = make(chan error, 1)
	s.started = true
	s.logger = pslog.Ctx(s.ctx)
	s.mu.Unlock()

	log := s.logger
	log.Info(
		"server start",
		"gateway", s.options.enableGateway,
		"gateway_addr", s.cfg.Gateway.Addr,
		"gateway_upstream", s.cfg.Gateway.UpstreamURL,
		"gateway_base_path", s.cfg.Gateway.BasePath,
	)
	if s.options.enableGateway && s.gatewaySrv != nil {
		go func() {
			if err := gateway.ListenAndServe(s.ctx, s.cfg.Gateway.Addr, s.gatewaySrv.Handler()); err != nil {
				log.Error("gateway server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	return nil
}

func (s *compositeServer) Wait() error {
	s.mu.Lock()
	ctx := s.ctx
	errCh := s.errCh
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			pslog.Ctx(ctx).Error("server stopped", "err", err)
			_ = s.Stop(context.Background())
			return err
		}
		return nil
	}
}

func (s *compositeServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	log := s.logger
	s.mu.Unlock()
	if !started {
		return nil
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log.Info("server stop requested")
	if cancel != nil {
		cancel()
	}
	if ctx == nil {
		log.Info("server stop completed")
		return nil
	}
	select {
	case <-ctx.Done():
		log.Warn("server stop timed out", "err", ctx.Err())
		return ctx.Err()
	case <-s.ctx.Done():
		log.Info("server stopped")
		return nil
	}
}
