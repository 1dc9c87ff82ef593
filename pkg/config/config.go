// Package config loads process configuration from QSB_ prefixed
// environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/isrecalpear/quantum-space-buddies/pkg/transport"
)

const Prefix = "QSB_"

var (
	ErrUnknownDriver = errors.New("unknown driver")
	ErrTickRate      = errors.New("tick rate must be positive")
)

// Drivers lists the accepted values of the driver setting.
var Drivers = []string{"quic", "websocket", "mem"}

// Host mirrors transport.Topology.
type Host struct {
	Channels          []transport.QoS `env:"CHANNELS"            envDefault:"reliable,unreliable"`
	MaxPeers          int             `env:"MAX_PEERS"           envDefault:"8"`
	ReceiveBufferSize int             `env:"RECEIVE_BUFFER_SIZE" envDefault:"65535"`
	MaxPacketSize     int             `env:"MAX_PACKET_SIZE"     envDefault:"1200"`
	MaxEventsPerTick  int             `env:"MAX_EVENTS_PER_TICK" envDefault:"500"`
	PingInterval      time.Duration   `env:"PING_INTERVAL"       envDefault:"1s"`
}

func (h Host) Topology() transport.Topology {
	return transport.Topology{
		Channels:          append([]transport.QoS(nil), h.Channels...),
		MaxPeers:          h.MaxPeers,
		ReceiveBufferSize: h.ReceiveBufferSize,
		MaxPacketSize:     h.MaxPacketSize,
		MaxEventsPerTick:  h.MaxEventsPerTick,
		PingInterval:      h.PingInterval,
	}.Normalize()
}

type Log struct {
	Level      string `env:"LEVEL"        envDefault:"info"`
	Format     string `env:"FORMAT"       envDefault:"text"`
	File       string `env:"FILE"`
	MaxSizeMB  int    `env:"MAX_SIZE_MB"  envDefault:"100"`
	MaxBackups int    `env:"MAX_BACKUPS"  envDefault:"3"`
	MaxAgeDays int    `env:"MAX_AGE_DAYS" envDefault:"28"`
}

type Telemetry struct {
	Endpoint string `env:"OTEL_ENDPOINT"`
	Enabled  bool   `env:"OTEL_ENABLED" envDefault:"true"`
}

// Server configures qsb-server.
type Server struct {
	Port     int     `env:"PORT"      envDefault:"7777"`
	Driver   string  `env:"DRIVER"    envDefault:"quic"`
	TickRate int     `env:"TICK_RATE" envDefault:"60"`
	SendRate float64 `env:"SEND_RATE" envDefault:"20"`
	WSPath   string  `env:"WS_PATH"   envDefault:"/qsb"`

	Host      Host      `envPrefix:"HOST_"`
	Log       Log       `envPrefix:"LOG_"`
	Telemetry Telemetry
}

// Client configures qsb-client.
type Client struct {
	Addr     string  `env:"ADDR"      envDefault:"127.0.0.1"`
	Port     int     `env:"PORT"      envDefault:"7777"`
	HostPort int     `env:"HOST_PORT"`
	Driver   string  `env:"DRIVER"    envDefault:"quic"`
	TickRate int     `env:"TICK_RATE" envDefault:"60"`
	SendRate float64 `env:"SEND_RATE" envDefault:"20"`
	WSPath   string  `env:"WS_PATH"   envDefault:"/qsb"`

	Host      Host      `envPrefix:"HOST_"`
	Log       Log       `envPrefix:"LOG_"`
	Telemetry Telemetry
}

// Load fills target from environ, or from the process environment when
// environ is nil.
func Load(target any, environ map[string]string) error {
	opts := env.Options{Prefix: Prefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(target, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func LoadServer(environ map[string]string) (Server, error) {
	var cfg Server
	if err := Load(&cfg, environ); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func LoadClient(environ map[string]string) (Client, error) {
	var cfg Client
	if err := Load(&cfg, environ); err != nil {
		return Client{}, err
	}
	return cfg, nil
}

func validate(port int, driver string, tickRate int, host Host) error {
	var errs []error
	if err := transport.ValidatePort(port); err != nil {
		errs = append(errs, fmt.Errorf("port %d: %w", port, err))
	}
	if !validDriver(driver) {
		errs = append(errs, fmt.Errorf("%w %q", ErrUnknownDriver, driver))
	}
	if tickRate <= 0 {
		errs = append(errs, ErrTickRate)
	}
	if err := host.Topology().Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func validDriver(d string) bool {
	for _, v := range Drivers {
		if v == d {
			return true
		}
	}
	return false
}

func (c Server) Validate() error {
	return validate(c.Port, c.Driver, c.TickRate, c.Host)
}

func (c Client) Validate() error {
	if c.HostPort != 0 {
		if err := transport.ValidatePort(c.HostPort); err != nil {
			return fmt.Errorf("host port %d: %w", c.HostPort, err)
		}
	}
	return validate(c.Port, c.Driver, c.TickRate, c.Host)
}
