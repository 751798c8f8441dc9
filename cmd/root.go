package cmd

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dCache/cmd/cache"
	"github.com/ValentinKolb/dCache/cmd/serve"
	"github.com/ValentinKolb/dCache/cmd/util"
	"github.com/spf13/cobra"
	"os"
	"os/signal"
)

const (
	Version = "0.1.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dcache",
		Short: "key-value cache client",
		Long: fmt.Sprintf(`dCache (v%s)

A key-value cache client library written in Go with point, batch and
paginated query operations, plus a development server to run them against.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dCache",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dCache v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(cache.CacheCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "json", util.WrapString("serializer to use (json, gob, binary)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "http", util.WrapString("transport to use (http, tcp, unix)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
// An interrupt cancels the context of the running command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := RootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
