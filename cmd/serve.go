package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marcus/vault/internal/output"
	"github.com/marcus/vault/internal/serve"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the research portal HTTP server",
	Long: `Serve starts the browser portal. Login requires the configured portal
secret; API routes shell out to this binary so the portal never holds its
own database connection. Set VAULT_PORTAL_SECRET to enable it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.PortalSecret == "" {
			err := fmt.Errorf("portal secret is not configured; set %s", "VAULT_PORTAL_SECRET")
			output.Errorf("%v", err)
			return err
		}

		port, _ := cmd.Flags().GetInt("port")
		addr, _ := cmd.Flags().GetString("addr")
		verbose, _ := cmd.Flags().GetBool("verbose")

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		srv, err := serve.NewServer(serve.Config{
			Port:    port,
			Addr:    addr,
			Secret:  cfg.PortalSecret,
			Origins: cfg.PortalOrigins,
			Runner: &serve.Runner{
				DBPath:        cfg.DBPath,
				InjectSecrets: cfg.InjectSecrets,
				APIKey:        cfg.BraveAPIKey,
			},
		})
		if err != nil {
			output.Errorf("%v", err)
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		slog.Info("portal listening", "addr", addr, "port", port)
		if err := srv.ListenAndServe(ctx); err != nil {
			output.Errorf("%v", err)
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8787, "Port to listen on")
	serveCmd.Flags().String("addr", "127.0.0.1", "Address to bind")
	serveCmd.Flags().BoolP("verbose", "v", false, "Debug logging")
}
