package util

import (
	"fmt"
	"github.com/ValentinKolb/dCache/rpc/common"
	"github.com/ValentinKolb/dCache/rpc/serializer"
	"github.com/ValentinKolb/dCache/rpc/transport"
	"github.com/ValentinKolb/dCache/rpc/transport/http"
	"github.com/ValentinKolb/dCache/rpc/transport/tcp"
	"github.com/ValentinKolb/dCache/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

const (
	// Wrap is the column at which flag help texts are broken
	Wrap int = 50
)

// WrapString breaks text into lines of at most Wrap characters.
// Words longer than Wrap get a line of their own.
func WrapString(text string) string {
	var lines []string
	var line strings.Builder

	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && line.Len()+1+len(word) > Wrap {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}

	return strings.Join(lines, "\n")
}

// SplitList splits a comma separated flag value, blank items are dropped
func SplitList(value string) []string {
	items := make([]string, 0)
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// --------------------------------------------------------------------------
// Flags
// --------------------------------------------------------------------------

// SetupRPCClientFlags adds the flags every cache client command needs
func SetupRPCClientFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	key := "cache"
	flags.String(key, "default", WrapString("Cache all commands operate on"))

	key = "timeout"
	flags.Int(key, 10, WrapString("Seconds a single round trip may take before it fails (0 = wait forever)"))

	key = "transport-endpoints"
	flags.String(key, "http://localhost:8080", WrapString("Comma separated server addresses. The socket transports balance requests over all of them"))

	key = "transport-conn-per-endpoint"
	flags.Int(key, 1, WrapString("Socket connections opened per endpoint (tcp and unix only)"))

	key = "transport-retries"
	flags.Int(key, 3, WrapString("Attempts per command before the transport error is returned"))

	AddSocketFlags(cmd, "transport-", 512)
}

// AddSocketFlags adds the socket tuning flags shared by client and server.
// Buffer sizes are given in KB, a default of 0 keeps the os default.
func AddSocketFlags(cmd *cobra.Command, prefix string, bufferKB int) {
	flags := cmd.PersistentFlags()

	flags.Int(prefix+"write-buffer", bufferKB, WrapString("Socket write buffer in KB (tcp and unix only)"))
	flags.Int(prefix+"read-buffer", bufferKB, WrapString("Socket read buffer in KB (tcp and unix only)"))
	flags.Bool(prefix+"tcp-nodelay", true, WrapString("Disable Nagle's algorithm on tcp sockets"))
	flags.Int(prefix+"tcp-keepalive", 0, WrapString("Keepalive period of tcp sockets in seconds (0 = os default)"))
	flags.Int(prefix+"tcp-linger", 0, WrapString("Linger time of tcp sockets in seconds (0 = os default)"))
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// InitClientConfig loads .env files and maps DCACHE_* variables onto the flags
func InitClientConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("dcache")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// GetClientConfig builds the client configuration from the bound flags
func GetClientConfig() *common.ClientConfig {
	return &common.ClientConfig{
		CacheName:     strings.TrimSpace(viper.GetString("cache")),
		TimeoutSecond: viper.GetInt("timeout"),
		Transport: common.ClientTransportConfig{
			Endpoints:              SplitList(viper.GetString("transport-endpoints")),
			RetryCount:             viper.GetInt("transport-retries"),
			ConnectionsPerEndpoint: viper.GetInt("transport-conn-per-endpoint"),
			SocketConf:             GetSocketConf("transport-"),
			TCPConf:                GetTCPConf("transport-"),
		},
	}
}

// GetSocketConf reads the flags added by AddSocketFlags with the same prefix
func GetSocketConf(prefix string) common.SocketConf {
	return common.SocketConf{
		WriteBufferSize: viper.GetInt(prefix+"write-buffer") * 1024,
		ReadBufferSize:  viper.GetInt(prefix+"read-buffer") * 1024,
	}
}

// GetTCPConf reads the tcp flags added by AddSocketFlags with the same prefix
func GetTCPConf(prefix string) common.TCPConf {
	return common.TCPConf{
		TCPNoDelay:      viper.GetBool(prefix + "tcp-nodelay"),
		TCPKeepAliveSec: viper.GetInt(prefix + "tcp-keepalive"),
		TCPLingerSec:    viper.GetInt(prefix + "tcp-linger"),
	}
}

// --------------------------------------------------------------------------
// Factories
// --------------------------------------------------------------------------

// GetSerializer returns the serializer selected with --serializer
func GetSerializer() (serializer.IRPCSerializer, error) {
	switch name := viper.GetString("serializer"); name {
	case "json":
		return serializer.NewJSONSerializer(), nil
	case "gob":
		return serializer.NewGOBSerializer(), nil
	case "binary":
		return serializer.NewBinarySerializer(), nil
	default:
		return nil, fmt.Errorf("unknown serializer %q (json, gob, binary)", name)
	}
}

// GetTransport returns the client transport selected with --transport
func GetTransport() (transport.IRPCClientTransport, error) {
	switch name := viper.GetString("transport"); name {
	case "http":
		return http.NewHttpClientTransport(), nil
	case "tcp":
		return tcp.NewTCPClientTransport(), nil
	case "unix":
		return unix.NewUnixClientTransport(), nil
	default:
		return nil, fmt.Errorf("unknown transport %q (http, tcp, unix)", name)
	}
}

// GetServerTransport returns the server transport selected with --transport.
// bufferSize and workersPerConn only apply to the socket transports.
func GetServerTransport(bufferSize, workersPerConn int) (transport.IRPCServerTransport, error) {
	switch name := viper.GetString("transport"); name {
	case "http":
		return http.NewHttpServerTransport(), nil
	case "tcp":
		return tcp.NewTCPServerTransport(bufferSize, workersPerConn), nil
	case "unix":
		return unix.NewUnixServerTransport(bufferSize, workersPerConn), nil
	default:
		return nil, fmt.Errorf("unknown transport %q (http, tcp, unix)", name)
	}
}
