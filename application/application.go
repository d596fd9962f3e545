package application

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lk2023060901/roomchat-go/internal/admin"
	"github.com/lk2023060901/roomchat-go/internal/chat"
	"github.com/lk2023060901/roomchat-go/internal/version"
	zlog "github.com/lk2023060901/roomchat-go/pkg/log"
	"github.com/lk2023060901/roomchat-go/pkg/metrics"
	"github.com/lk2023060901/roomchat-go/pkg/util/merr"
	zviper "github.com/lk2023060901/roomchat-go/pkg/util/viper"
)

const (
	// EnvPrefix is the prefix of every environment variable read by roomchatd.
	EnvPrefix = "ROOMCHAT"

	defaultConfigPath = "./config.yaml"
	envConfigPath     = EnvPrefix + "_CONFIG_FILE_PATH"

	// Module logger names looked up under the "logging" config section.
	ModuleChat  = "chat"
	ModuleAdmin = "admin"
)

// Config is the full runtime configuration of roomchatd.
type Config struct {
	Server chat.Config  `mapstructure:"server"`
	Admin  admin.Config `mapstructure:"admin"`
}

// registry is shared by every Application in the process, since metrics are
// package level collectors that can only be registered once.
var registry = sync.OnceValue(func() *prometheus.Registry {
	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewGoCollector())
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(r)
	return r
})

// Application is the main runtime container for roomchatd.
// It owns configuration and manages common dependencies.
type Application struct {
	args    []string
	cfg     *zviper.Config
	conf    Config
	loggers map[string]*zlog.MLogger

	chat  *chat.Server
	admin *admin.Server

	mu             sync.Mutex
	cancel         context.CancelFunc
	signalHandlers []SignalHandler
}

// New creates a new Application reading arguments from os.Args.
func New() *Application {
	return NewWithArgs(os.Args[1:])
}

// NewWithArgs creates a new Application with explicit command-line arguments.
func NewWithArgs(args []string) *Application {
	return &Application{args: args}
}

// Init loads configuration, initializes logging and builds the servers.
//
// The configuration file is resolved with the following priority:
//  1. Default: ./config.yaml (optional, skipped when absent)
//  2. Env: ROOMCHAT_CONFIG_FILE_PATH
//  3. CLI: --config <path> or --config=<path>
func (a *Application) Init() error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := a.initLogging(); err != nil {
		return err
	}

	if err := a.cfg.Unmarshal(&a.conf); err != nil {
		return errors.Wrap(err, "decode config")
	}
	if a.conf.Admin.Enable && a.conf.Admin.Address == "" {
		return merr.WrapErrParameterInvalidMsg("admin.address is empty")
	}

	srv, err := chat.NewServer(a.conf.Server)
	if err != nil {
		return err
	}
	srv.SetLogger(a.Logger(ModuleChat))
	a.chat = srv

	if a.conf.Admin.Enable {
		a.admin = admin.NewServer(a.conf.Admin.Address, srv.Registry(), registry())
		a.admin.SetLogger(a.Logger(ModuleAdmin))
	}
	return nil
}

// Run initializes the application if needed and serves until ctx is done,
// a shutdown signal arrives or Shutdown is called.
func (a *Application) Run(ctx context.Context) error {
	if a.chat == nil {
		if err := a.Init(); err != nil {
			return err
		}
	}
	defer zlog.Cleanup()

	ctx, stopSignals := a.signalContext(ctx)
	defer stopSignals()

	intentCtx, span := zlog.NewIntentContext("roomchatd", "serve")
	defer span.End()
	zlog.Ctx(intentCtx).Info("roomchatd starting",
		zap.String("version", version.String()),
		zap.String("address", a.conf.Server.Address),
		zap.Bool("admin", a.conf.Admin.Enable))

	// 服务上下文沿用 intentCtx 的日志字段，同时跟随 ctx 取消。
	serveCtx, cancel := context.WithCancel(intentCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	g, gctx := errgroup.WithContext(serveCtx)
	g.Go(func() error {
		return a.chat.ListenAndServe(gctx)
	})
	if a.admin != nil {
		g.Go(func() error {
			return a.admin.ListenAndServe(gctx)
		})
	}

	err := g.Wait()
	if err != nil {
		zlog.Ctx(intentCtx).Error("roomchatd stopped with error", zap.Error(err))
		return err
	}
	zlog.Ctx(intentCtx).Info("roomchatd stopped")
	return nil
}

// Config returns the loaded configuration, if any.
func (a *Application) Config() *zviper.Config {
	return a.cfg
}

// Settings returns the decoded runtime configuration.
func (a *Application) Settings() Config {
	return a.conf
}

// Chat returns the chat server built by Init.
func (a *Application) Chat() *chat.Server {
	return a.chat
}

// Logger returns a named logger created from configuration.
// If the name is unknown, it falls back to the global logger.
func (a *Application) Logger(name string) *zlog.MLogger {
	if lg, ok := a.loggers[name]; ok && lg != nil {
		return lg
	}
	return zlog.With(zlog.FieldModule(name))
}

// loadConfig resolves config file path and loads it via viper wrapper.
func (a *Application) loadConfig() (*zviper.Config, error) {
	configPath := defaultConfigPath
	explicit := false

	if envPath := os.Getenv(envConfigPath); envPath != "" {
		configPath = envPath
		explicit = true
	}

	args := a.args
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--config" {
			if i+1 >= len(args) {
				return nil, merr.WrapErrParameterInvalidMsg("missing value after --config")
			}
			configPath = args[i+1]
			explicit = true
			i++
			continue
		}
		if strings.HasPrefix(arg, "--config=") {
			val := strings.TrimPrefix(arg, "--config=")
			if val != "" {
				configPath = val
				explicit = true
			}
			continue
		}
	}

	cfg := zviper.New()
	setDefaults(cfg)
	cfg.BindEnv(EnvPrefix)

	if !explicit {
		if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
	}
	if err := cfg.LoadFile(configPath); err != nil {
		return nil, errors.Wrapf(err, "failed to load config file %q", configPath)
	}
	return cfg, nil
}

func setDefaults(cfg *zviper.Config) {
	def := chat.DefaultConfig()
	cfg.SetDefault("server.address", def.Address)
	cfg.SetDefault("server.max-clients", def.MaxClients)
	cfg.SetDefault("server.max-line-bytes", def.MaxLineBytes)
	cfg.SetDefault("server.read-timeout", def.ReadTimeout)
	cfg.SetDefault("server.write-timeout", def.WriteTimeout)
	cfg.SetDefault("admin.enable", false)
	cfg.SetDefault("admin.address", admin.DefaultAddress)
}

// initLogging initializes global and module-level loggers.
func (a *Application) initLogging() error {
	if err := a.initGlobalLoggerFromEnv(); err != nil {
		return err
	}
	if err := a.initModuleLoggersFromConfig(); err != nil {
		return err
	}
	return nil
}

// initGlobalLoggerFromEnv configures the process-wide logger based on ROOMCHAT_LOG_* env vars.
//
// Priority:
//   - ROOMCHAT_LOG_ENABLE: "1"/"true" to enable outputs; others treated as disabled.
//   - ROOMCHAT_LOG_LEVEL: log level (default "info").
//   - ROOMCHAT_LOG_STDOUT: whether to log to stdout (default false).
//   - ROOMCHAT_LOG_FILE_DIR: log directory.
//   - ROOMCHAT_LOG_FILE: log file name (empty means no file).
//   - ROOMCHAT_LOG_FORMAT: log format ("text" or "json", default "text").
//   - ROOMCHAT_LOG_BUFFERED: buffer file/stdout writes (default false).
func (a *Application) initGlobalLoggerFromEnv() error {
	enabled := getenvBool(EnvPrefix+"_LOG_ENABLE", false)

	cfg := &zlog.Config{
		Level:               getenvDefault(EnvPrefix+"_LOG_LEVEL", "info"),
		Format:              getenvDefault(EnvPrefix+"_LOG_FORMAT", "text"),
		Stdout:              getenvBool(EnvPrefix+"_LOG_STDOUT", false),
		DisableErrorVerbose: true,
		BufferedWriteEnable: getenvBool(EnvPrefix+"_LOG_BUFFERED", false),
		File: zlog.FileLogConfig{
			RootPath: getenvDefault(EnvPrefix+"_LOG_FILE_DIR", ""),
			Filename: getenvDefault(EnvPrefix+"_LOG_FILE", ""),
		},
	}

	// When not enabled, direct all outputs to a discarded sink.
	if !enabled {
		cfg.Stdout = false
		cfg.File.Filename = ""
		cfg.BufferedWriteEnable = false
	}

	logger, props, err := zlog.InitLogger(cfg)
	if err != nil {
		return errors.Wrap(err, "init global logger from env")
	}
	zlog.ReplaceGlobals(logger, props)
	return nil
}

// initModuleLoggersFromConfig creates named loggers from YAML config under "logging" key.
//
// Example:
//
//	logging:
//	  chat:
//	    level: debug
//	    stdout: true
//	    file:
//	      rootpath: ./logs
//	      filename: chat.log
func (a *Application) initModuleLoggersFromConfig() error {
	if a.cfg == nil {
		return nil
	}

	raw := make(map[string]zlog.Config)
	if err := a.cfg.UnmarshalKey("logging", &raw); err != nil {
		return errors.Wrap(err, "decode logging section")
	}
	if len(raw) == 0 {
		return nil
	}

	a.loggers = make(map[string]*zlog.MLogger, len(raw))
	for name, lc := range raw {
		cfgCopy := lc
		logger, _, err := zlog.InitLogger(&cfgCopy)
		if err != nil {
			return errors.Wrapf(err, "init module logger %q", name)
		}
		a.loggers[name] = &zlog.MLogger{Logger: logger.With(zlog.FieldModule(name))}
	}

	return nil
}

func getenvDefault(key, def string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	return val
}

func getenvBool(key string, def bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
