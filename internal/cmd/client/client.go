// Package client runs the qsb-client process.
package client

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/isrecalpear/quantum-space-buddies/internal/cmd/cmdutil"
	"github.com/isrecalpear/quantum-space-buddies/pkg/axlog"
	"github.com/isrecalpear/quantum-space-buddies/pkg/client"
	"github.com/isrecalpear/quantum-space-buddies/pkg/config"
	"github.com/isrecalpear/quantum-space-buddies/pkg/dispatch"
	"github.com/isrecalpear/quantum-space-buddies/pkg/protocol"
	"github.com/isrecalpear/quantum-space-buddies/pkg/telemetry"
	"github.com/isrecalpear/quantum-space-buddies/pkg/tick"
	"github.com/isrecalpear/quantum-space-buddies/pkg/transformsync"
	"github.com/isrecalpear/quantum-space-buddies/pkg/transport"
)

var (
	ErrDisconnected  = errors.New("disconnected from server")
	ErrConnectFailed = errors.New("could not connect to server")
)

const orbitRadius = 40

// ParseConfig reads the environment, then lets flags override it.
func ParseConfig(fs *flag.FlagSet, args []string) (config.Client, error) {
	cfg, err := config.LoadClient(nil)
	if err != nil {
		return config.Client{}, err
	}

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "server host name or address")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "server port")
	fs.StringVar(&cfg.Driver, "driver", cfg.Driver, "transport driver: quic, websocket or mem")
	fs.IntVar(&cfg.TickRate, "tick-rate", cfg.TickRate, "ticks per second")
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return config.Client{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Client{}, err
	}
	return cfg, nil
}

// Run connects and ticks until ctx is done or the connection ends.
func Run(ctx context.Context, cfg config.Client, stderr io.Writer) error {
	logger, closeLog, err := cmdutil.NewLogger(cfg.Log, stderr)
	if err != nil {
		return err
	}
	defer closeLog()
	log := logger.With("role", "client")

	shutdownTracing, err := telemetry.Setup(ctx, "qsb-client", cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer shutdownTracing(context.Background())

	driver, err := cmdutil.NewDriver(cfg.Driver, cfg.WSPath)
	if err != nil {
		return err
	}

	roster := client.NewRoster(transport.NewSubsystem(driver, log), log)
	defer roster.ShutdownAll()

	c := client.New(roster, client.Options{
		Logger:    log,
		HostPort:  cfg.HostPort,
		Handshake: cmdutil.Handshake(),
	})
	if err := c.Configure(cfg.Host.Topology()); err != nil {
		return err
	}

	w := cmdutil.NewWorld(c, false, log)
	body := &orbitBody{sector: w.Sector(), radius: orbitRadius}
	body.advance(0)

	own := transformsync.NewSync(uuid.New().ID(), true, body, transformsync.Options{
		Logger:  log,
		IsReady: func() bool { return c.IsConnected() && w.Registry.AllReady() },
	})
	own.SetReferenceSector(w.Sector())

	transforms := transformsync.NewManager(w.Registry, c, transformsync.ManagerOptions{
		Logger:   log,
		SendRate: cfg.SendRate,
		Spawn: func(netID uint32) *transformsync.Sync {
			log.Info("remote player seen", "net_id", netID)
			s := transformsync.NewSync(netID, false, &ghostBody{netID: netID, logger: log}, transformsync.Options{Logger: log})
			s.SetReferenceSector(w.Sector())
			return s
		},
	})
	if err := transforms.Add(own); err != nil {
		return err
	}

	// The connect error arrives through the Error handler; the state stays
	// Connecting.
	var netErr transport.NetworkError
	onError := func(code transport.NetworkError) { netErr = code }
	if err := registerHandlers(c, w, transforms, onError, log); err != nil {
		return err
	}
	if err := c.Connect(cfg.Addr, cfg.Port); err != nil {
		return err
	}

	connected := false
	loop, err := tick.NewLoop(cfg.TickRate, func(d time.Duration) error {
		c.Update()
		switch {
		case c.IsConnected():
			connected = true
		case c.State() == client.Disconnected && connected:
			return fmt.Errorf("%w: %s", ErrDisconnected, lastError(c))
		case netErr != transport.Ok:
			return fmt.Errorf("%w at %s:%d: %s", ErrConnectFailed, cfg.Addr, cfg.Port, netErr)
		case c.State() == client.Disconnected:
			return fmt.Errorf("%w at %s:%d", ErrConnectFailed, cfg.Addr, cfg.Port)
		}

		dt := d.Seconds()
		body.advance(dt)
		w.Tick(dt)
		transforms.Tick(dt)
		return nil
	})
	if err != nil {
		return err
	}
	return loop.Run(ctx)
}

func registerHandlers(c *client.Client, w *cmdutil.World, transforms *transformsync.Manager, onError func(transport.NetworkError), log axlog.Logger) error {
	if err := w.Objects.RegisterHandlers(c.Handlers()); err != nil {
		return err
	}
	if err := transforms.RegisterHandlers(c.Handlers()); err != nil {
		return err
	}
	if err := c.RegisterHandler(protocol.Connect, func(msg *dispatch.Message) {
		log.Info("connected to server", "address", msg.Conn.Address())
	}); err != nil {
		return err
	}
	if err := c.RegisterHandler(protocol.Disconnect, func(msg *dispatch.Message) {
		log.Info("disconnected from server")
	}); err != nil {
		return err
	}
	return c.RegisterHandler(protocol.Error, func(msg *dispatch.Message) {
		var em protocol.ErrorMessage
		if err := msg.ReadMessage(&em); err != nil {
			return
		}
		code := transport.NetworkError(em.Code)
		log.Warn("network error", "code", code)
		onError(code)
	})
}

func lastError(c *client.Client) transport.NetworkError {
	if conn := c.Connection(); conn != nil {
		return conn.LastError()
	}
	return transport.Ok
}
