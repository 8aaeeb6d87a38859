package main

import (
	"log"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/maglab/mercuryips/generichttp"
	"github.com/maglab/mercuryips/oxford"
	"github.com/maglab/mercuryips/server/middleware/locker"
	"github.com/tarm/serial"
)

// MagnetSetup holds the initialization parameters for the magnet PSU
type MagnetSetup struct {
	// Addr is the socket address of the instrument, e.g.
	// 192.168.100.123:7020, or the serial port path if Serial is true
	Addr string `koanf:"addr" yaml:"Addr"`

	// Serial connects over RS232 instead of ethernet
	Serial bool `koanf:"serial" yaml:"Serial"`

	// Baud is the RS232 baud rate, only used when Serial is true
	Baud int `koanf:"baud" yaml:"Baud"`

	// Simulate backs the server with the in-memory instrument
	Simulate bool `koanf:"simulate" yaml:"Simulate"`

	// Endpoint is the URL fragment the magnet routes are mounted under
	Endpoint string `koanf:"endpoint" yaml:"Endpoint"`

	// CommandRate overrides the command pacing in commands per second;
	// zero keeps the driver default
	CommandRate float64 `koanf:"commandrate" yaml:"CommandRate"`

	// MaxField bounds staged targets to a sphere of this radius in tesla;
	// zero disables the bound
	MaxField float64 `koanf:"maxfield" yaml:"MaxField"`
}

// Config holds the initialization parameters for the server
type Config struct {
	// Addr is the address to listen at
	Addr string `koanf:"addr" yaml:"Addr"`

	Magnet MagnetSetup `koanf:"magnet" yaml:"Magnet"`
}

// buildMagnet constructs the driver from its setup block
func buildMagnet(s MagnetSetup) (*oxford.MercuryIPS, error) {
	var opts []oxford.Option
	if s.Simulate {
		opts = append(opts, oxford.Simulated())
	}
	if s.Serial {
		baud := s.Baud
		if baud == 0 {
			baud = 9600
		}
		opts = append(opts, oxford.WithSerial(&serial.Config{Name: s.Addr, Baud: baud}))
	}
	if s.CommandRate > 0 {
		opts = append(opts, oxford.WithCommandRate(s.CommandRate))
	}
	if s.MaxField > 0 {
		r2 := s.MaxField * s.MaxField
		opts = append(opts, oxford.WithFieldLimits(func(x, y, z float64) bool {
			return x*x+y*y+z*z <= r2
		}))
	}
	return oxford.NewMercuryIPS(s.Addr, opts...)
}

// buildMux constructs the router: magnet routes under the configured
// endpoint, behind a lock any operator can take to keep others out
func buildMux(c Config) (chi.Router, error) {
	magnet, err := buildMagnet(c.Magnet)
	if err != nil {
		return nil, err
	}
	httper := oxford.NewHTTPWrapper(magnet)
	lock := locker.New()
	locker.Inject(httper, lock)

	sub := chi.NewRouter()
	sub.Use(lock.Check)
	httper.RT().Bind(sub)

	root := chi.NewRouter()
	root.Use(middleware.Logger)
	endpoint := c.Magnet.Endpoint
	if endpoint == "" {
		endpoint = "magnet"
	}
	root.Mount(generichttp.SubMuxSanitize(endpoint), sub)
	log.Printf("magnet routes mounted under %s", generichttp.SubMuxSanitize(endpoint))
	return root, nil
}
