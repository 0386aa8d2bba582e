package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/yaoqinxue-cmd/BriStack/internal/server"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tracking server",
	Long: `Serve runs the tracking endpoints:

  GET  /t/open.gif?i=<issue>&s=<subscriber>   email open pixel
  POST /t/event                                web-view scroll/click events
  POST /api/v1/agent/query                     agent subscriber queries
  POST /api/v1/mcp/query                       MCP bridge queries
  GET  /robots.txt                             AI crawler policy
  GET  /metrics                                Prometheus metrics
  GET  /healthz                                liveness

Example:
  bristack serve --addr :8080
  BRISTACK_STORAGE_DRIVER=postgres BRISTACK_STORAGE_DSN=postgres://... bristack serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var robotsCmd = &cobra.Command{
	Use:   "robots",
	Short: "Print the robots.txt served by the tracking server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		fmt.Print(a.robots.Body())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(robotsCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if serveAddr != "" {
		a.cfg.Server.Addr = serveAddr
	}

	srv := server.New(a.cfg.Server, a.recorder,
		server.WithRobotsPolicy(a.robots),
		server.WithGatherer(a.registry),
		server.WithLogger(a.logger),
	)

	a.logger.Info("starting bristack",
		"version", Version,
		"storage", a.cfg.Storage.Driver,
		"addr", a.cfg.Server.Addr,
	)
	return srv.ListenAndServe(ctx)
}
