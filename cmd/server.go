package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mirrorbay/davserver/middleware"
	"github.com/mirrorbay/davserver/pkg/auth"
	"github.com/mirrorbay/davserver/pkg/cache"
	"github.com/mirrorbay/davserver/pkg/conf"
	"github.com/mirrorbay/davserver/pkg/crontab"
	"github.com/mirrorbay/davserver/pkg/filesystem"
	"github.com/mirrorbay/davserver/pkg/lock"
	"github.com/mirrorbay/davserver/pkg/logging"
	"github.com/mirrorbay/davserver/pkg/metrics"
	"github.com/mirrorbay/davserver/pkg/prop"
	"github.com/mirrorbay/davserver/pkg/webdav"
	"github.com/mirrorbay/davserver/routers"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serverCmd)
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start a WebDAV server with the given config file",
	Run: func(cmd *cobra.Command, args []string) {
		bootLogger := logging.NewConsoleLogger(logging.LevelInformational)
		cfg, err := conf.NewIniConfigProvider(confPath, bootLogger)
		if err != nil {
			bootLogger.Error("Failed to load config: %s", err)
			os.Exit(1)
		}

		l := logging.NewConsoleLogger(logging.LogLevel(cfg.System().LogLevel))
		if err := runServer(cfg, l); err != nil {
			l.Error("Server exited with error: %s", err)
			os.Exit(1)
		}
	},
}

func runServer(cfg conf.ConfigProvider, l logging.Logger) error {
	davCfg := cfg.WebDAV()

	fs, err := filesystem.NewLocalFS(davCfg.Root)
	if err != nil {
		return err
	}

	props, err := buildPropertyStore(cfg, l)
	if err != nil {
		return err
	}
	defer props.Close()

	var locks lock.Store
	if davCfg.EnableLocking {
		locks = buildLockStore(cfg, l)
		defer locks.Close()
	}

	collector := metrics.NewMemoryCollector()
	handler := webdav.NewHandler(webdav.Config{
		Prefix:        davCfg.Prefix,
		Root:          davCfg.Root,
		ReadOnly:      davCfg.ReadOnly,
		MaxUploadSize: davCfg.MaxUploadSize,
		SpeedLimit:    davCfg.SpeedLimit,
	}, fs, props, locks, collector)

	throttler := middleware.NewThrottler(cfg.Throttle())

	cron := crontab.New(l)
	cron.Register("throttle_evict", "@every 60s", throttler.Evict)
	if locks != nil {
		sweep := locks
		cron.Register("lock_expiry_sweep", "@every 60s", func() {
			if err := sweep.RemoveExpired(); err != nil {
				l.Warning("Lock expiry sweep failed: %s", err)
			}
		})
	}
	cron.Start()
	defer cron.Stop()

	authenticator, authorizer := buildAuth(cfg)
	r := routers.InitRouter(cfg, l, handler, authenticator, authorizer, throttler)

	server := &http.Server{
		Addr:    cfg.System().Listen,
		Handler: r,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)
	go func() {
		sig := <-sigChan
		l.Info("Signal %s received, shutting down server...", sig)
		ctx, cancel := context.WithTimeout(context.Background(),
			time.Duration(cfg.System().GracePeriod)*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}()

	l.Info("Serving WebDAV on %s%s from %q", cfg.System().Listen, davCfg.Prefix, davCfg.Root)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func buildPropertyStore(cfg conf.ConfigProvider, l logging.Logger) (prop.Store, error) {
	switch cfg.Store().PropertyBackend {
	case conf.FileBackend:
		return prop.NewFileStore(cfg.WebDAV().Root)
	case conf.RedisBackend:
		return prop.NewKvStore(cache.NewRedisStore(l, 10, cfg.Redis())), nil
	default:
		return prop.NewMemoryStore(), nil
	}
}

func buildLockStore(cfg conf.ConfigProvider, l logging.Logger) lock.Store {
	if cfg.Store().LockBackend == conf.RedisBackend {
		return lock.NewKvStore(cache.NewRedisStore(l, 10, cfg.Redis()))
	}
	return lock.NewMemoryStore()
}

func buildAuth(cfg conf.ConfigProvider) (auth.Authenticator, auth.Authorizer) {
	authCfg := cfg.Auth()
	if len(authCfg.Users) > 0 {
		return auth.NewBasicAuthenticator(authCfg.Realm, authCfg.Users), auth.AllowAllAuthorizer{}
	}
	if cfg.WebDAV().AllowAnonymous {
		return auth.AnonymousAuthenticator{}, auth.AllowAllAuthorizer{}
	}
	return auth.DenyAllAuthenticator{Realm: authCfg.Realm}, auth.AllowAllAuthorizer{}
}
