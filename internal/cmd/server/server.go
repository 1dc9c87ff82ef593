// Package server runs the qsb-server process.
package server

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/isrecalpear/quantum-space-buddies/internal/cmd/cmdutil"
	"github.com/isrecalpear/quantum-space-buddies/pkg/axlog"
	"github.com/isrecalpear/quantum-space-buddies/pkg/config"
	"github.com/isrecalpear/quantum-space-buddies/pkg/dispatch"
	"github.com/isrecalpear/quantum-space-buddies/pkg/protocol"
	"github.com/isrecalpear/quantum-space-buddies/pkg/server"
	"github.com/isrecalpear/quantum-space-buddies/pkg/telemetry"
	"github.com/isrecalpear/quantum-space-buddies/pkg/tick"
	"github.com/isrecalpear/quantum-space-buddies/pkg/transformsync"
	"github.com/isrecalpear/quantum-space-buddies/pkg/transport"
	"golang.org/x/sync/errgroup"
)

// ParseConfig reads the environment, then lets flags override it.
func ParseConfig(fs *flag.FlagSet, args []string) (config.Server, error) {
	cfg, err := config.LoadServer(nil)
	if err != nil {
		return config.Server{}, err
	}

	fs.IntVar(&cfg.Port, "port", cfg.Port, "port to listen on")
	fs.StringVar(&cfg.Driver, "driver", cfg.Driver, "transport driver: quic, websocket or mem")
	fs.IntVar(&cfg.TickRate, "tick-rate", cfg.TickRate, "ticks per second")
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return config.Server{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Server{}, err
	}
	return cfg, nil
}

// Run listens and ticks until ctx is done.
func Run(ctx context.Context, cfg config.Server, stderr io.Writer) error {
	logger, closeLog, err := cmdutil.NewLogger(cfg.Log, stderr)
	if err != nil {
		return err
	}
	defer closeLog()
	log := logger.With("role", "server")

	shutdownTracing, err := telemetry.Setup(ctx, "qsb-server", cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer shutdownTracing(context.Background())

	driver, err := cmdutil.NewDriver(cfg.Driver, cfg.WSPath)
	if err != nil {
		return err
	}

	srv := server.New(transport.NewSubsystem(driver, log), server.Options{
		Logger:    log,
		Topology:  cfg.Host.Topology(),
		Handshake: cmdutil.Handshake(),
	})

	w := cmdutil.NewWorld(srv.Broadcast(), true, log)
	w.Objects.Relay = func(from dispatch.Conn, t protocol.MsgType, msg protocol.Message) {
		if from != nil {
			srv.SendToAllExcept(from.PeerID(), t, msg, transport.ChannelReliable)
		}
	}

	transforms := transformsync.NewManager(w.Registry, srv.Broadcast(), transformsync.ManagerOptions{
		Logger:   log,
		SendRate: cfg.SendRate,
		Relay: func(from dispatch.Conn, msg *transformsync.TransformMessage) {
			if from != nil {
				srv.SendToAllExcept(from.PeerID(), transformsync.TransformType, msg, transport.ChannelUnreliable)
			}
		},
	})

	if err := registerHandlers(srv, w, transforms, log); err != nil {
		return err
	}
	if err := srv.Listen(cfg.Port); err != nil {
		return err
	}
	defer srv.Shutdown()

	loop, err := tick.NewLoop(cfg.TickRate, func(d time.Duration) error {
		dt := d.Seconds()
		srv.Update()
		w.Tick(dt)
		transforms.Tick(dt)
		return nil
	})
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loop.Run(ctx) })
	g.Go(func() error {
		<-ctx.Done()
		log.Info("server stopping", "connections", srv.NumConnections())
		return nil
	})
	return g.Wait()
}

func registerHandlers(srv *server.Server, w *cmdutil.World, transforms *transformsync.Manager, log axlog.Logger) error {
	if err := w.Objects.RegisterHandlers(srv.Handlers()); err != nil {
		return err
	}
	if err := transforms.RegisterHandlers(srv.Handlers()); err != nil {
		return err
	}
	if err := srv.RegisterHandler(protocol.Connect, func(msg *dispatch.Message) {
		log.Info("player joined", "peer", msg.Conn.PeerID(), "address", msg.Conn.Address())
	}); err != nil {
		return err
	}
	if err := srv.RegisterHandler(protocol.Disconnect, func(msg *dispatch.Message) {
		released := transforms.ReleasePeer(msg.Conn.PeerID())
		log.Info("player left", "peer", msg.Conn.PeerID(), "net_ids", released)
	}); err != nil {
		return err
	}
	return srv.RegisterHandler(protocol.Error, func(msg *dispatch.Message) {
		var em protocol.ErrorMessage
		if err := msg.ReadMessage(&em); err != nil {
			return
		}
		log.Warn("network error", "code", transport.NetworkError(em.Code))
	})
}
