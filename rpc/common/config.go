package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Shared transport configuration structs
// --------------------------------------------------------------------------

// SocketConf holds the socket settings shared by the tcp and unix transports
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds tcp specific socket settings
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerTransportConfig holds the transport parameters of the server
type ServerTransportConfig struct {
	// Endpoint is the address to listen on (host:port or socket path)
	Endpoint string
	// WorkersPerConn limits the concurrent requests per socket connection
	WorkersPerConn int
	SocketConf
	TCPConf
}

// ServerConfig holds all configuration parameters of the cache server.
type ServerConfig struct {
	// Caches that are created on startup
	Caches []string

	// CreateOnDemand creates unknown caches on first write instead of failing
	CreateOnDemand bool

	// TimeoutSecond is the read/write timeout for socket transports
	TimeoutSecond int64

	// Transport settings
	Transport ServerTransportConfig

	// Metrics enables the /metrics endpoint (http transport only)
	Metrics bool

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Workers Per Conn", strconv.Itoa(c.Transport.WorkersPerConn))
	addField("Metrics", fmt.Sprintf("%t", c.Metrics))

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	// Caches
	addSection("Caches")
	addField("Create On Demand", fmt.Sprintf("%t", c.CreateOnDemand))
	for i, name := range c.Caches {
		addField(strconv.Itoa(i), name)
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientTransportConfig holds the transport parameters of the client
type ClientTransportConfig struct {
	Endpoints              []string
	RetryCount             int
	ConnectionsPerEndpoint int
	SocketConf
	TCPConf
}

// ClientConfig holds all configuration parameters of a cache client
type ClientConfig struct {
	// CacheName is the cache every command of the client is bound to
	CacheName string
	// TimeoutSecond bounds a single round trip (0 = no timeout)
	TimeoutSecond int
	Transport     ClientTransportConfig
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Cache", c.CacheName)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.Transport.RetryCount))
	addField("Connections Per Endpoint", strconv.Itoa(int(math.Max(1, float64(c.Transport.ConnectionsPerEndpoint)))))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Transport.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
