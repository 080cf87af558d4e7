package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var confPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&confPath, "conf", "c", "conf.ini", "Path to the config file")
}

var rootCmd = &cobra.Command{
	Use:   "davserver",
	Short: "A WebDAV server speaking RFC 4918 class 2",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
