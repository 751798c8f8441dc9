package client

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dCache/rpc/common"
	"github.com/ValentinKolb/dCache/rpc/serializer"
	"github.com/ValentinKolb/dCache/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("rpc")

	commandErrors = metrics.NewCounter("dcache_client_command_errors_total")
)

// ICommandRunner dispatches a single command and returns exactly one outcome:
// the response of the server or the error that prevented it.
// A response is only returned if the server reported success.
type ICommandRunner interface {
	RunCommand(ctx context.Context, cmd *common.Command) (*common.Response, error)
}

// rpcRunner is the ICommandRunner used by all RPC clients.
// It serializes the command, sends it with the transport and deserializes the response.
type rpcRunner struct {
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// NewRPCRunner creates a runner on top of an already connected transport
func NewRPCRunner(transport transport.IRPCClientTransport, serializer serializer.IRPCSerializer) ICommandRunner {
	return &rpcRunner{
		transport:  transport,
		serializer: serializer,
	}
}

func (r *rpcRunner) RunCommand(ctx context.Context, cmd *common.Command) (*common.Response, error) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`dcache_client_commands_total{cmd=%q}`, cmd.Name)).Inc()
	Logger.Debugf("dispatching %s", cmd)

	resp, err := r.run(ctx, cmd)
	if err != nil {
		commandErrors.Inc()
		Logger.Debugf("command %s failed: %v", cmd.Name, err)
		return nil, err
	}
	return resp, nil
}

func (r *rpcRunner) run(ctx context.Context, cmd *common.Command) (*common.Response, error) {
	// Serialize the request
	reqBytes, err := r.serializer.SerializeCommand(*cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize command %s: %w", cmd.Name, err)
	}

	// Send the request, transport errors are returned as they are
	respBytes, err := r.transport.Send(ctx, reqBytes)
	if err != nil {
		return nil, err
	}

	// Deserialize the response
	resp := &common.Response{}
	if err := r.serializer.DeserializeResponse(respBytes, resp); err != nil {
		return nil, fmt.Errorf("%w: failed to deserialize response to %s: %v", common.ErrProtocol, cmd.Name, err)
	}

	// Check if the response is an error response
	if resp.Status != common.StatusSuccess {
		return nil, &common.ServerError{Status: resp.Status, Msg: resp.Err}
	}

	return resp, nil
}
