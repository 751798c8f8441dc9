package cache

import (
	"github.com/ValentinKolb/dCache/cmd/util"
	"github.com/ValentinKolb/dCache/lib/cache"
	"github.com/ValentinKolb/dCache/rpc/client"
	"github.com/ValentinKolb/dCache/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	rpcCache cache.ICache

	// CacheCommands represents the cache command group
	CacheCommands = &cobra.Command{
		Use:               "cache",
		Short:             "Perform cache operations",
		PersistentPreRunE: setupCacheClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the cache command
	util.SetupRPCClientFlags(CacheCommands)

	key := "log-level"
	CacheCommands.PersistentFlags().String(key, "warn", util.WrapString("LogLevel of the client (debug, info, warn, error)"))

	// Add subcommands
	CacheCommands.AddCommand(getCmd)
	CacheCommands.AddCommand(putCmd)
	CacheCommands.AddCommand(putIfAbsentCmd)
	CacheCommands.AddCommand(removeCmd)
	CacheCommands.AddCommand(getAndRemoveCmd)
	CacheCommands.AddCommand(removeAllCmd)
	CacheCommands.AddCommand(putAllCmd)
	CacheCommands.AddCommand(getAllCmd)
	CacheCommands.AddCommand(containsKeyCmd)
	CacheCommands.AddCommand(containsKeysCmd)
	CacheCommands.AddCommand(getAndPutCmd)
	CacheCommands.AddCommand(getAndPutIfAbsentCmd)
	CacheCommands.AddCommand(queryCmd)
	CacheCommands.AddCommand(perfTestCmd)
}

// setupCacheClient initializes the RPC cache client
func setupCacheClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	common.SetLogLevel(viper.GetString("log-level"))

	// Get client configuration components
	config := util.GetClientConfig()

	// Get serializer and transport
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	// Create the cache client
	rpcCache, err = client.NewRPCCache(
		*config,
		t,
		s,
	)

	return err
}
