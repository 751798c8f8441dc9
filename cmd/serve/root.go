package serve

import (
	"fmt"
	cmdUtil "github.com/ValentinKolb/dCache/cmd/util"
	"github.com/ValentinKolb/dCache/rpc/common"
	"github.com/ValentinKolb/dCache/rpc/server"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the dCache development server",
		Long:    `Start the dCache development server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is DCACHE_<flag> (e.g. DCACHE_TIMEOUT=15)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	key := "caches"
	ServeCmd.PersistentFlags().String(key, "default", cmdUtil.WrapString("Comma-separated list of caches that are created on startup"))

	key = "create-on-demand"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Create unknown caches on first use instead of rejecting the command"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 0, cmdUtil.WrapString("Read/write timeout of socket connections in seconds (0 = no timeout)"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the API will listen (e.g. localhost:8080, /tmp/dcache.sock, ...)"))

	key = "workers-per-conn"
	ServeCmd.PersistentFlags().Int(key, 64, cmdUtil.WrapString("Maximum number of concurrently handled requests per connection (tcp and unix only)"))

	key = "buffer-size"
	ServeCmd.PersistentFlags().Int(key, 512, cmdUtil.WrapString("Size of the per request read buffer in KB (tcp and unix only)"))

	cmdUtil.AddSocketFlags(ServeCmd, "", 0)

	key = "metrics"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Expose metrics in the prometheus format at /metrics (http only)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.Caches = cmdUtil.SplitList(viper.GetString("caches"))

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.CreateOnDemand = viper.GetBool("create-on-demand")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.Metrics = viper.GetBool("metrics")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.Transport = common.ServerTransportConfig{
		Endpoint:       viper.GetString("endpoint"),
		WorkersPerConn: viper.GetInt("workers-per-conn"),
		SocketConf:     cmdUtil.GetSocketConf(""),
		TCPConf:        cmdUtil.GetTCPConf(""),
	}

	if len(serveCmdConfig.Caches) == 0 && !serveCmdConfig.CreateOnDemand {
		return fmt.Errorf("no caches configured and create-on-demand is disabled")
	}

	return nil
}

// run starts the dCache server
func run(_ *cobra.Command, _ []string) error {
	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	t, err := cmdUtil.GetServerTransport(viper.GetInt("buffer-size")*1024, serveCmdConfig.Transport.WorkersPerConn)
	if err != nil {
		return err
	}

	serv := server.NewRPCServer(
		*serveCmdConfig,
		t,
		s,
	)

	return serv.Serve()
}

// initConfig reads in serveCmdConfig file and ENV variables if set.
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dcache")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}
