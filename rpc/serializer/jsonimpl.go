package serializer

import (
	"encoding/json"
	"github.com/ValentinKolb/dCache/rpc/common"
)

// NewJSONSerializer creates a new serializer using json encoding
func NewJSONSerializer() IRPCSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the IRPCSerializer interface using json encoding
type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) SerializeCommand(cmd common.Command) ([]byte, error) {
	return json.Marshal(cmd)
}

func (j jsonSerializerImpl) DeserializeCommand(b []byte, cmd *common.Command) error {
	return json.Unmarshal(b, cmd)
}

func (j jsonSerializerImpl) SerializeResponse(resp common.Response) ([]byte, error) {
	return json.Marshal(resp)
}

func (j jsonSerializerImpl) DeserializeResponse(b []byte, resp *common.Response) error {
	return json.Unmarshal(b, resp)
}
