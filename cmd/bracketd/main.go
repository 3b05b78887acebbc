package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"

	yml "gopkg.in/yaml.v2"

	"github.com/moonlab/bracket/camera"
	"github.com/moonlab/bracket/capture"
	"github.com/moonlab/bracket/exposure"
	"github.com/moonlab/bracket/generichttp"
	httpcam "github.com/moonlab/bracket/generichttp/camera"
	httpcap "github.com/moonlab/bracket/generichttp/capture"
	httpexp "github.com/moonlab/bracket/generichttp/exposure"
	"github.com/moonlab/bracket/imgrec"
	"github.com/moonlab/bracket/server/middleware/locker"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "bracketd.yml"

	// EnvPrefix is the prefix of environment variables that override the config
	EnvPrefix = "BRACKETD_"

	k = koanf.New(".")
)

type recorder struct {
	// Root is the root folder capture directories are made in
	Root string `yaml:"Root"`

	// Prefix is the prefix of capture directory names
	Prefix string `yaml:"Prefix"`
}

type config struct {
	Addr     string              `yaml:"Addr"`
	Root     string              `yaml:"Root"`
	Mock     bool                `yaml:"Mock"`
	Camera   camera.RemoteConfig `yaml:"Camera"`
	Recorder recorder            `yaml:"Recorder"`
	Fallback exposure.Settings   `yaml:"Fallback"`
}

func defaults() config {
	return config{
		Addr: ":8000",
		Root: "/",
		Camera: camera.RemoteConfig{
			Addr:         "127.0.0.1:9100",
			Baud:         115200,
			Timeout:      60,
			MinSpacing:   0.1,
			Idle:         30,
			SessionRetry: 10,
		},
		Recorder: recorder{Root: ".", Prefix: imgrec.DefaultPrefix},
		Fallback: capture.DefaultFallback,
	}
}

// flat lower cases a key and removes its separators, so that
// CAMERA_MIN_SPACING, camera_minspacing and Camera.MinSpacing all agree
func flat(key string) string {
	key = strings.ToLower(key)
	return strings.NewReplacer(".", "", "_", "").Replace(key)
}

// envKeys maps BRACKETD_ variables onto the keys already known to k.
// Variables that name no key are ignored.
func envKeys() func(string) string {
	canon := make(map[string]string)
	for _, key := range k.Keys() {
		canon[flat(key)] = key
	}
	return func(s string) string {
		return canon[flat(strings.TrimPrefix(s, EnvPrefix))]
	}
}

func setupconfig() {
	// a missing .env is the common case
	godotenv.Load()
	k.Load(structs.Provider(defaults(), "yaml"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			log.Fatalf("error loading config: %v", err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKeys()), nil); err != nil {
		log.Fatalf("error loading environment: %v", err)
	}
}

func loadconf() config {
	c := config{}
	err := k.UnmarshalWithConf("", &c, koanf.UnmarshalConf{Tag: "yaml"})
	if err != nil {
		log.Fatal(err)
	}
	return c
}

func root() {
	str := `bracketd runs exposure bracketing and focus stacking captures
on a single camera and exposes them over HTTP.

Usage:
	bracketd <command>

Commands:
	run
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `bracketd is amenable to configuration via its .yaml file.  For a primer on YAML, see
https://yaml.org/start.html

When no configuration is provided, the defaults are used.  The command mkconf
generates the configuration file with the default values.  Any key may also be
set from the environment or a .env file by prefixing it with BRACKETD_ and
replacing dots with underscores, e.g. BRACKETD_CAMERA_ADDR=/dev/ttyACM0.

Camera.Addr is host:port of the camera bridge, or a serial port when
Camera.Serial is true.  Times in the Camera section are in seconds.
Mock: true replaces the camera with a simulation, useful to rehearse a plan.

Plans without a save_directory are written to
Recorder.Root/yyyy-mm-dd/<Recorder.Prefix>hhmmss.

Fallback is the exposure tried once when a bracket's settings are rejected
by the camera.

While a capture owns the camera the /camera routes return 423 (Locked).`
	fmt.Println(str)
}

func mkconf() {
	c := loadconf()
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
	c := loadconf()
	err := yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("bracketd version %v\n", Version)
}

// gateway returns the configured camera and a func to release it
func gateway(cfg config) (camera.Gateway, func()) {
	if cfg.Mock {
		log.Println("using a simulated camera")
		return camera.NewMock(), func() {}
	}
	log.Printf("using the camera bridge at %s", cfg.Camera.Addr)
	r := camera.NewRemote(cfg.Camera)
	return r, func() { r.Close() }
}

// setupHTTP builds the router for the whole server
func setupHTTP(cfg config, gw camera.Gateway) chi.Router {
	lk := locker.New()
	rec := imgrec.NewRecorder(cfg.Recorder.Root)
	if cfg.Recorder.Prefix != "" {
		rec.Prefix = cfg.Recorder.Prefix
	}
	hub := httpcap.NewHub()
	o := capture.NewOrchestrator(gw, capture.Options{
		Sink:     capture.MultiSink{hub, capture.LogSink{}},
		Lock:     lk,
		SaveDir:  rec.CaptureDir,
		Fallback: cfg.Fallback,
	})

	cam := httpcam.NewHTTPCamera(gw)
	locker.Inject(cam, lk)
	cammux := chi.NewRouter()
	cammux.Use(lk.Check)
	cam.RT().Bind(cammux)

	hc := httpcap.NewHTTPCapture(o, hub, rec)
	imgrec.NewHTTPWrapper(rec).Inject(hc)
	rt := hc.RT()
	for mp, fn := range httpexp.NewHTTPExposure().RT() {
		rt[mp] = fn
	}

	mux := chi.NewRouter()
	mux.Mount("/camera", cammux)
	rt.Bind(mux)

	root := chi.NewRouter()
	root.Use(middleware.Logger)
	root.Mount(generichttp.SubMuxSanitize(cfg.Root), mux)
	return root
}

func run() {
	cfg := loadconf()
	gw, release := gateway(cfg)
	root := setupHTTP(cfg, gw)
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ch
		release()
		os.Exit(0)
	}()
	log.Println("now listening for requests at ", cfg.Addr+cfg.Root)
	log.Fatal(http.ListenAndServe(cfg.Addr, root))
}

func main() {
	if len(os.Args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd := strings.ToLower(os.Args[1])
	switch cmd {
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
