package main

import (
	"os"

	"github.com/Acr4niu5/beatsync-local/internal/client"
	"github.com/Acr4niu5/beatsync-local/internal/commands/list"
	"github.com/Acr4niu5/beatsync-local/internal/commands/pull"
	"github.com/Acr4niu5/beatsync-local/internal/commands/push"
	"github.com/Acr4niu5/beatsync-local/internal/commands/serve"
	"github.com/Acr4niu5/beatsync-local/internal/logging"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "beatsync",
	Short: "Beatsync serves and syncs audio for listening rooms.",
	Long:  `Beatsync serves and syncs audio for listening rooms. It streams stored tracks with byte range support and accepts direct uploads into rooms.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd == serveCmd {
			return nil
		}
		return client.LoadBaseURL()
	},
}

var serveCmdFlags serve.Flags
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the media server.",
	Long:  `Run the media server. Configuration is read from the environment and an optional .env file.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		serve.Run(serveCmdFlags)
	},
}

var pushCmdFlags push.Flags
var pushCmd = &cobra.Command{
	Use:   "push [file1] [file2] ...",
	Short: "Upload audio into a room.",
	Long:  `Upload audio into a room. Only servers running with local storage accept uploads.`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		push.Run(pushCmdFlags, args)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the default tracks.",
	Long:  `List the default tracks. Prints one URL per line.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		list.Run()
	},
}

var pullCmdFlags pull.Flags
var pullCmd = &cobra.Command{
	Use:   "pull [key]",
	Short: "Download a stored track.",
	Long:  `Download a stored track by key, e.g. default/intro.mp3 or room-1/song.mp3.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		pull.Run(pullCmdFlags, args[0])
	},
}

func main() {
	rootCmd.AddCommand(serveCmd, pushCmd, listCmd, pullCmd)

	// ==============
	// serveCmd flags
	// ==============
	serveCmd.Flags().StringVarP(
		&serveCmdFlags.EnvFile, "env", "e", ".env", "Path to an env file loaded before the environment",
	)
	serveCmd.Flags().IntVarP(
		&serveCmdFlags.Port, "port", "p", 0, "Listen port, overrides PORT",
	)

	// =============
	// pushCmd flags
	// =============
	pushCmd.Flags().StringVarP(
		&pushCmdFlags.Room, "room", "r", "", "Room ID to upload into",
	)
	pushCmd.Flags().StringVarP(
		&pushCmdFlags.ContentType, "type", "t", "", "Content type, guessed from the extension when empty",
	)

	// =============
	// pullCmd flags
	// =============
	pullCmd.Flags().StringVarP(
		&pullCmdFlags.Out, "out", "o", "", "Output file, defaults to the key's base name",
	)
	pullCmd.Flags().StringVarP(
		&pullCmdFlags.Range, "range", "r", "", "Range header to send, e.g. bytes=0-1023",
	)

	if err := rootCmd.Execute(); err != nil {
		logging.Sync()
		os.Exit(1)
	}
}
