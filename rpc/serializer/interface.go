package serializer

import "github.com/ValentinKolb/dCache/rpc/common"

// IRPCSerializer is the interface for all Command and Response serializers
type IRPCSerializer interface {
	// SerializeCommand serializes a Command into a byte array
	SerializeCommand(cmd common.Command) ([]byte, error)
	// DeserializeCommand deserializes a byte array into a Command
	DeserializeCommand(b []byte, cmd *common.Command) error
	// SerializeResponse serializes a Response into a byte array
	SerializeResponse(resp common.Response) ([]byte, error)
	// DeserializeResponse deserializes a byte array into a Response
	DeserializeResponse(b []byte, resp *common.Response) error
}
