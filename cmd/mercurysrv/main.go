// Command mercurysrv exposes an Oxford Instruments MercuryiPS magnet power
// supply over HTTP, so clients in any language can drive it with plain
// JSON requests.
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"

	yml "gopkg.in/yaml.v2"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "mercurysrv.yml"
	k              = koanf.New(".")
)

func setupconfig() {
	k.Load(structs.Provider(Config{
		Addr: ":8000",
		Magnet: MagnetSetup{
			Addr:     "192.168.0.1:7020",
			Endpoint: "magnet"}}, "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			log.Fatalf("error loading config: %v", err)
		}
	}
	// MERCURY_MAGNET_ADDR=... overrides magnet.addr, and so on
	godotenv.Load()
	k.Load(env.Provider("MERCURY_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "MERCURY_")), "_", ".", -1)
	}), nil)
}

func root() {
	str := `mercurysrv drives an Oxford Instruments MercuryiPS superconducting
magnet power supply and exposes an HTTP interface to it.  This enables a
server-client architecture, and the clients can leverage the excellent
HTTP libraries for any programming language.

Usage:
	mercurysrv <command>

Commands:
	run
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `mercurysrv is amenable to configuration via its .yml file.  For a primer
on YAML, see https://yaml.org/start.html

Settings may also come from the environment (or a .env file) with a
MERCURY_ prefix, e.g. MERCURY_MAGNET_ADDR=192.168.0.1:7020.

The instrument must be reachable as a TCP socket (the iPS listens on
port 7020) unless Serial or Simulate is set.  MaxField bounds staged
field targets to a sphere of that radius in tesla; leave it zero for an
unbounded magnet at your own risk.

Routes are mounted under the Endpoint fragment, e.g. Endpoint=magnet
serves GET /magnet/axis/x/field and POST /magnet/target/rho.  POST
/magnet/lock with {"bool": true} to keep other operators out.`
	fmt.Println(str)
}

func mkconf() {
	c := Config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c := Config{}
	k.Unmarshal("", &c)
	err := yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("mercurysrv version %v\n", Version)
}

func run() {
	c := Config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	mux, err := buildMux(c)
	if err != nil {
		log.Fatal(err)
	}
	log.Println("now listening for requests at", c.Addr)
	log.Fatal(http.ListenAndServe(c.Addr, mux))
}

func main() {
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	switch strings.ToLower(args[1]) {
	case "help":
		help()
	case "mkconf":
		mkconf()
	case "conf":
		printconf()
	case "run":
		run()
	case "version":
		pversion()
	default:
		log.Fatal("unknown command")
	}
}
