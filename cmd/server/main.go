package main

import (
	"net/http"
	"os"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pkeller/tictactoe/internal/app"
	"github.com/pkeller/tictactoe/internal/web"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		PadLevelText:     true,
	})
	logrus.SetLevel(logrus.InfoLevel)

	root := rootCmd()
	root.SetArgs(os.Args[1:])
	if err := root.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tictactoe",
		Short: "Serve a single-page tic-tac-toe game",
		Long: heredoc.Doc(`
			Serves a single-page tic-tac-toe game over HTTP: a 3x3 grid
			with local two-player and vs-computer modes, a running
			scoreboard, and live board updates over SSE or websocket.
		`),
		Args: cobra.NoArgs,

		SilenceErrors: true,
		SilenceUsage:  true,

		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// If --trace flag is provided, set logging level to Trace.
			if cmd.Flag("trace").Changed {
				logrus.SetLevel(logrus.TraceLevel)
			}
		},

		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			if v := os.Getenv("ADDR"); v != "" && !cmd.Flag("addr").Changed {
				addr = v
			}
			delay, _ := cmd.Flags().GetDuration("ai-delay")

			svc := app.NewService(app.Options{AIDelay: delay})
			handler := web.NewServer(svc)

			logrus.Infof("listening on %s ...", addr)
			return http.ListenAndServe(addr, handler)
		},
	}

	root.Flags().String("addr", ":8000", "HTTP listen address")
	root.Flags().Duration("ai-delay", 400*time.Millisecond, "pause before the computer replies")
	root.PersistentFlags().BoolP("trace", "t", false, "Show Trace Information")

	return root
}
