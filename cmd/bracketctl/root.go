package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// defaultAddr is the server used when neither --addr nor BRACKETD_URL is set
const defaultAddr = "http://localhost:8000"

func newRootCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "bracketctl",
		Short: "Control a bracketd capture server",
		Long: `bracketctl submits exposure bracketing and focus stacking plans to a
bracketd server and follows them to completion.

The server address is taken from --addr, then the BRACKETD_URL environment
variable (a .env file in the working directory is read), then ` + defaultAddr + `.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
			if !cmd.Flags().Changed("addr") {
				if env := os.Getenv("BRACKETD_URL"); env != "" {
					addr = env
				}
			}
		},
	}
	cmd.PersistentFlags().StringVar(&addr, "addr", defaultAddr, "address of the bracketd server")

	c := func() *client { return newClient(addr) }
	cmd.AddCommand(
		newSubmitCmd(c),
		newStatusCmd(c),
		newListCmd(c),
		newStopCmd(c),
		newTestCmd(c),
		newEVCmd(),
		newBracketsCmd(),
	)
	return cmd
}
