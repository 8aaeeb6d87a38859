// Command mercuryctl is an operator CLI for the Oxford Instruments
// MercuryiPS magnet power supply.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/theckman/yacspin"

	"github.com/maglab/mercuryips/fieldvec"
	"github.com/maglab/mercuryips/oxford"
)

// settleTolerance is how close the live field must be to the set point,
// per axis in tesla, before a ramp is considered finished
const settleTolerance = 5e-4

var (
	addr = flag.String("addr", envOr("MERCURY_ADDR", "192.168.0.1:7020"),
		"socket address of the instrument")
	sim = flag.Bool("sim", false, "drive the in-memory simulator instead of hardware")
	max = flag.Float64("max", 0, "bound field targets to a sphere of this radius in T, 0 for none")
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func usage() {
	str := `mercuryctl talks to a MercuryiPS magnet power supply.

Usage:
	mercuryctl [flags] <command>

Commands:
	idn                     identify the instrument
	status                  per-axis ramp status
	field                   live field vector
	target                  print the staged target (seeded from the live field)
	target <coord> <value>  stage one target coordinate (x y z r theta phi rho)
	ramp [coord=value ...]  stage coordinates, ramp all axes to set, wait
	hold                    set all axes to HOLD
	zero                    ramp all axes to zero

Targets staged by 'target' live only for that invocation; use
'ramp x=0.1 z=0.5' to stage and go in one shot.`
	fmt.Println(str)
	flag.PrintDefaults()
}

func connect() *oxford.MercuryIPS {
	var opts []oxford.Option
	if *sim {
		opts = append(opts, oxford.Simulated())
	}
	if *max > 0 {
		r2 := *max * *max
		opts = append(opts, oxford.WithFieldLimits(func(x, y, z float64) bool {
			return x*x+y*y+z*z <= r2
		}))
	}
	m, err := oxford.NewMercuryIPS(*addr, opts...)
	if err != nil {
		log.Fatal(err)
	}
	return m
}

func idn(m *oxford.MercuryIPS) {
	id, err := m.Identification()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%s %s  serial %s  firmware %s\n", id.Vendor, id.Model, id.Serial, id.Firmware)
}

func status(m *oxford.MercuryIPS) {
	for _, psu := range m.Axes() {
		rs, err := psu.RampStatus()
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%s: %s\n", psu.UID(), rs)
	}
}

func liveField(m *oxford.MercuryIPS) fieldvec.Vector {
	x, err := m.GRPX.Field()
	if err != nil {
		log.Fatal(err)
	}
	y, err := m.GRPY.Field()
	if err != nil {
		log.Fatal(err)
	}
	z, err := m.GRPZ.Field()
	if err != nil {
		log.Fatal(err)
	}
	return fieldvec.Vector{X: x, Y: y, Z: z}
}

func field(m *oxford.MercuryIPS) {
	v := liveField(m)
	fmt.Printf("B = %s  |B| = %g T\n", v, v.R())
}

func printTarget(m *oxford.MercuryIPS) {
	for _, c := range fieldvec.Components {
		fmt.Printf("%-6s %g\n", c, m.Target(c))
	}
}

func target(m *oxford.MercuryIPS, args []string) {
	if len(args) == 0 {
		printTarget(m)
		return
	}
	if len(args) != 2 {
		log.Fatal("usage: mercuryctl target <coord> <value>")
	}
	if err := stage(m, args[0], args[1]); err != nil {
		log.Fatal(err)
	}
	printTarget(m)
}

func stage(m *oxford.MercuryIPS, coord, value string) error {
	c, err := fieldvec.ParseComponent(coord)
	if err != nil {
		return err
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return err
	}
	return m.SetTarget(c, f)
}

func ramp(m *oxford.MercuryIPS, args []string) {
	for _, arg := range args {
		pieces := strings.SplitN(arg, "=", 2)
		if len(pieces) != 2 {
			log.Fatalf("ramp arguments look like x=0.5, got %q", arg)
		}
		if err := stage(m, pieces[0], pieces[1]); err != nil {
			log.Fatal(err)
		}
	}
	if err := m.StageTarget(); err != nil {
		log.Fatal(err)
	}
	if err := m.SetRampStatusAll(oxford.ToSet); err != nil {
		log.Fatal(err)
	}
	wait(m)
}

// wait blocks until every axis has settled at its set point, spinning
func wait(m *oxford.MercuryIPS) {
	spinner, err := yacspin.New(yacspin.Config{
		Frequency:     100 * time.Millisecond,
		CharSet:       yacspin.CharSets[59],
		Suffix:        " ramping",
		StopCharacter: "done",
	})
	if err != nil {
		log.Fatal(err)
	}
	spinner.Start()
	target := m.TargetVector()
	for {
		v := liveField(m)
		spinner.Message(fmt.Sprintf("B = %s", v))
		if math.Abs(v.X-target.X) < settleTolerance &&
			math.Abs(v.Y-target.Y) < settleTolerance &&
			math.Abs(v.Z-target.Z) < settleTolerance {
			break
		}
		time.Sleep(time.Second)
	}
	spinner.Stop()
	field(m)
}

func main() {
	flag.Usage = usage
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage()
		return
	}
	m := connect()
	switch args[0] {
	case "idn":
		idn(m)
	case "status":
		status(m)
	case "field":
		field(m)
	case "target":
		target(m, args[1:])
	case "ramp":
		ramp(m, args[1:])
	case "hold":
		if err := m.SetRampStatusAll(oxford.Hold); err != nil {
			log.Fatal(err)
		}
	case "zero":
		if err := m.SetRampStatusAll(oxford.ToZero); err != nil {
			log.Fatal(err)
		}
	default:
		usage()
		os.Exit(1)
	}
}
