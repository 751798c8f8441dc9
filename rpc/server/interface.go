package server

import (
	"github.com/ValentinKolb/dCache/lib/cache/lcache"
	"github.com/ValentinKolb/dCache/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters
// It is responsible for handling commands and building responses
type IRPCServerAdapter interface {
	// Handle handles a command against the cache it is bound to.
	// It returns a Response, if an error occurs it is set in the response.
	Handle(cmd *common.Command, c *lcache.Cache) (resp *common.Response)
}
