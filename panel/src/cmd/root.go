package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "usbrefresh",
	Short: "A web control panel for the Pi USB drive",
	Long: `A local web control panel that remounts the loopback disk image and
cycles the USB mass-storage gadget with a single button click.`,
}

func ExecuteServer() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("couldn't execute app,", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
