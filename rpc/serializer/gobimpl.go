package serializer

import (
	"bytes"
	"encoding/gob"
	"github.com/ValentinKolb/dCache/rpc/common"
)

// NewGOBSerializer creates a new serializer using Go's binary gob format
func NewGOBSerializer() IRPCSerializer {
	return &gobSerializerImpl{}
}

// gobSerializerImpl implements the IRPCSerializer interface using gob encoding
type gobSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (g gobSerializerImpl) SerializeCommand(cmd common.Command) ([]byte, error) {
	return gobEncode(cmd)
}

func (g gobSerializerImpl) DeserializeCommand(b []byte, cmd *common.Command) error {
	return gob.NewDecoder(bytes.NewBuffer(b)).Decode(cmd)
}

func (g gobSerializerImpl) SerializeResponse(resp common.Response) ([]byte, error) {
	return gobEncode(resp)
}

func (g gobSerializerImpl) DeserializeResponse(b []byte, resp *common.Response) error {
	return gob.NewDecoder(bytes.NewBuffer(b)).Decode(resp)
}

// gobEncode encodes v into a new buffer
func gobEncode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
