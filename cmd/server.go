package cmd

import (
	"github.com/iyedlimem/Flenci-server-side/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the Flenci HTTP server",
	Long:  `Run the Flenci HTTP server, serving the REST API, the audio pipeline endpoints and stored assets.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
