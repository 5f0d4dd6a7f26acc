package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/icco/videoseq/internal/clipserver"
)

var (
	serveAddr string
	serveDir  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the clip library over HTTP",
	Long: `Serve the media files of the clips directory.

GET /api/clips returns the file names as a JSON array and GET /api/clips/<name>
returns the file. The listing follows files added or removed while running.

Example:
  videoseq serve --dir ./clips --addr :5173
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, dir := cfg.Listen, cfg.ClipsDir
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}
		if cmd.Flags().Changed("dir") {
			dir = serveDir
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger := newLogger(os.Stderr, "clipserver")
		return clipserver.New(dir, logger).ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().StringVar(&serveDir, "dir", "", "clips directory (default from config)")
	rootCmd.AddCommand(serveCmd)
}
