package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Digital-Shane/aftercredits/internal/addon"
	"github.com/Digital-Shane/aftercredits/internal/config"
	"github.com/Digital-Shane/aftercredits/internal/server"
)

var servePublish bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Stremio add-on HTTP server",
	Long: `Serve the add-on manifest and stream endpoints until interrupted.

With --publish the add-on is registered with the Stremio directory once the
listener is up. ADDON_URL (or --addon-url) must then point at the public
manifest.json.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (default 3000)")
	serveCmd.Flags().String("backend", "", "cache backend: sqlite, file, redis, memory")
	serveCmd.Flags().String("addon-url", "", "public manifest URL")
	serveCmd.Flags().BoolVar(&servePublish, "publish", false, "register the add-on with the Stremio directory after start")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if servePublish && cfg.AddonURL == "" {
		return &config.Error{Field: "server.addon_url", Err: fmt.Errorf("required with --publish")}
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	a, err := buildApp(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("cache close failed", "err", err)
		}
	}()

	srv, err := server.New(server.Options{
		Resolver: a.resolver,
		Sources:  a.resolver.Sources(),
		AddonURL: cfg.AddonURL,
		CacheTTL: cfg.Cache.TTL,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.ListenAddr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.ListenAddr(), err)
	}
	logger.Info("add-on ready", "manifest", manifestURL(cfg, ln.Addr()), "sources", a.resolver.Sources())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(ctx, ln)
	})
	if servePublish {
		g.Go(func() error {
			publishOnStart(ctx, a, cfg.AddonURL)
			return nil
		})
	}
	return g.Wait()
}

// publishOnStart registers the add-on. Failure is logged, the server keeps running.
func publishOnStart(ctx context.Context, a *app, addonURL string) {
	client := newPublishClient(a.cfg)
	if _, err := addon.Publish(ctx, client, addon.DefaultAPIURL, addonURL); err != nil {
		a.logger.Warn("publish failed", "addon_url", addonURL, "err", err)
		return
	}
	a.logger.Info("published", "addon_url", addonURL)
}

func manifestURL(cfg *config.Config, addr net.Addr) string {
	if cfg.AddonURL != "" {
		return cfg.AddonURL
	}
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return fmt.Sprintf("http://127.0.0.1:%d/manifest.json", tcp.Port)
	}
	return "http://" + addr.String() + "/manifest.json"
}
