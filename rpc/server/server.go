package server

import (
	"fmt"
	"github.com/ValentinKolb/dCache/lib/cache"
	"github.com/ValentinKolb/dCache/lib/cache/lcache"
	"github.com/ValentinKolb/dCache/rpc/common"
	"github.com/ValentinKolb/dCache/rpc/serializer"
	"github.com/ValentinKolb/dCache/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"os/signal"
	"runtime"
	"syscall"
)

var (
	Logger = logger.GetLogger("server")

	serverErrors = metrics.NewCounter("dcache_server_command_errors_total")
)

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		http.NewHttpServerTransport(),
//		serializer.NewJSONSerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	 }
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	Logger.Infof("Created RPC Server")
	Logger.Infof(config.String())

	return &RPCServer{
		config:       config,
		transport:    transport,
		serializer:   serializer,
		caches:       xsync.NewMapOf[string, *lcache.Cache](),
		cacheAdapter: NewICacheServerAdapter(),
		queryAdapter: NewQueryServerAdapter(),
	}
}

// RPCServer serves the cache command vocabulary against in-memory caches
type RPCServer struct {
	config       common.ServerConfig
	transport    transport.IRPCServerTransport
	serializer   serializer.IRPCSerializer
	caches       *xsync.MapOf[string, *lcache.Cache]
	cacheAdapter IRPCServerAdapter
	queryAdapter *QueryServerAdapter
}

// Serve starts the RPC server
// This function will also create the configured caches and start the transport layer
func (s *RPCServer) Serve() error {
	s.init()
	return s.transport.Listen(s.config)
}

func (s *RPCServer) init() {
	// Init logger
	common.InitLoggers(s.config)

	// Create caches
	for _, name := range s.config.Caches {
		s.CreateCache(name)
	}

	// Configure the transport layer
	s.transport.RegisterHandler(s.HandleRequest)

	Logger.Infof("dCache setup completed successfully")
}

// CreateCache creates an empty cache, an existing cache is returned unchanged
func (s *RPCServer) CreateCache(name string) *lcache.Cache {
	c, loaded := s.caches.LoadOrCompute(name, func() *lcache.Cache {
		return lcache.NewLocalCache(name)
	})
	if !loaded {
		Logger.Infof("created cache %s", name)
	}
	return c
}

// HandleRequest decodes a serialized command, executes it and returns the
// serialized response
func (s *RPCServer) HandleRequest(req []byte) []byte {
	var cmd common.Command
	var resp *common.Response

	// Decode the request
	if err := s.serializer.DeserializeCommand(req, &cmd); err != nil {
		resp = common.NewErrorResponse(fmt.Sprintf("failed to deserialize request: %s", err))
	} else {
		resp = s.Handle(&cmd)
	}

	// Return result
	val, err := s.serializer.SerializeResponse(*resp)
	if err != nil {
		Logger.Errorf("failed to serialize response to %s: %v", cmd.Name, err)
		val, _ = s.serializer.SerializeResponse(*common.NewErrorResponse(
			fmt.Sprintf("failed to serialize response: %s", err),
		))
	}
	return val
}

// Handle executes a single command
func (s *RPCServer) Handle(cmd *common.Command) *common.Response {
	metrics.GetOrCreateCounter(fmt.Sprintf(`dcache_server_commands_total{cmd=%q}`, cmd.Name)).Inc()

	resp := s.handle(cmd)
	if resp.Status != common.StatusSuccess {
		serverErrors.Inc()
		Logger.Debugf("%s failed: %s", cmd, resp.Err)
	}
	return resp
}

func (s *RPCServer) handle(cmd *common.Command) *common.Response {
	// The cache name is always the first parameter
	if len(cmd.Params) == 0 || cmd.Params[0].Name != common.ParamCacheName {
		return errorResponse(cache.NewError(cache.RetCInvalidOperation, fmt.Sprintf("%s: first parameter must be %s", cmd.Name, common.ParamCacheName)))
	}
	name := cmd.Params[0].Value

	// Get appropriate cache
	c, ok := s.caches.Load(name)
	if !ok {
		if !s.config.CreateOnDemand {
			return errorResponse(cache.NewError(cache.RetCCacheNotFound, fmt.Sprintf("cache %q not found", name)))
		}
		c = s.CreateCache(name)
	}

	// Let the adapter handle the command
	switch cmd.Name {
	case common.CmdQueryExecute, common.CmdQueryFieldsExec, common.CmdQueryFetch:
		return s.queryAdapter.Handle(cmd, c)
	default:
		return s.cacheAdapter.Handle(cmd, c)
	}
}
