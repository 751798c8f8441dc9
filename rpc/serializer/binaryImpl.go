package serializer

import (
	"encoding/binary"
	"fmt"
	"github.com/ValentinKolb/dCache/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasParams  byte = 1 << 0
	hasBody    byte = 1 << 1
	hasErr     byte = 1 << 2
	hasPayload byte = 1 << 3
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

// SerializeCommand writes a command with the format:
// 1 byte flags, 4+N bytes name,
// [4 bytes param count, per param 4+N bytes name and 4+N bytes value],
// [4+N bytes body]
func (b binarySerializerImpl) SerializeCommand(cmd common.Command) ([]byte, error) {
	// Calculate total size needed
	result := make([]byte, b.sizeCommand(cmd))

	// Initialize flags byte
	var flags byte = 0

	// Set position for writing
	pos := 1 // Start after flags

	// Write name
	pos = putBytes(result, pos, []byte(cmd.Name))

	// Handle Params
	if cmd.Params != nil {
		flags |= hasParams
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(cmd.Params)))
		pos += 4
		for _, p := range cmd.Params {
			pos = putBytes(result, pos, []byte(p.Name))
			pos = putBytes(result, pos, []byte(p.Value))
		}
	}

	// Handle Body
	if cmd.Body != nil {
		flags |= hasBody
		pos = putBytes(result, pos, cmd.Body)
	}

	// Set flags byte after knowing which fields are present
	result[0] = flags

	return result, nil
}

func (b binarySerializerImpl) DeserializeCommand(data []byte, cmd *common.Command) error {
	// Check minimum size (flags + name length)
	if len(data) < 5 {
		return fmt.Errorf("data too short for command header")
	}

	// Read flags
	flags := data[0]
	pos := 1

	// Read name
	name, pos, err := readBytes(data, pos, "name")
	if err != nil {
		return err
	}
	cmd.Name = string(name)

	// Read Params if present
	cmd.Params = nil
	if flags&hasParams != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for param count")
		}
		count := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4

		// every param needs at least 8 bytes, reject bogus counts before allocating
		if uint64(count)*8 > uint64(len(data)-pos) {
			return fmt.Errorf("data too short for %d params", count)
		}

		cmd.Params = make([]common.Param, 0, count)
		for i := uint32(0); i < count; i++ {
			var pName, pValue []byte
			if pName, pos, err = readBytes(data, pos, "param name"); err != nil {
				return err
			}
			if pValue, pos, err = readBytes(data, pos, "param value"); err != nil {
				return err
			}
			cmd.Params = append(cmd.Params, common.Param{Name: string(pName), Value: string(pValue)})
		}
	}

	// Read Body if present
	cmd.Body = nil
	if flags&hasBody != 0 {
		body, _, err := readBytes(data, pos, "body")
		if err != nil {
			return err
		}
		cmd.Body = append(make([]byte, 0, len(body)), body...)
	}

	return nil
}

// SerializeResponse writes a response with the format:
// 1 byte flags, 4 bytes status, [4+N bytes error], [4+N bytes payload]
func (b binarySerializerImpl) SerializeResponse(resp common.Response) ([]byte, error) {
	result := make([]byte, b.sizeResponse(resp))

	var flags byte = 0
	binary.BigEndian.PutUint32(result[1:5], uint32(int32(resp.Status)))
	pos := 5

	// Handle Err
	if resp.Err != "" {
		flags |= hasErr
		pos = putBytes(result, pos, []byte(resp.Err))
	}

	// Handle Payload
	if resp.Payload != nil {
		flags |= hasPayload
		pos = putBytes(result, pos, resp.Payload)
	}

	result[0] = flags

	return result, nil
}

func (b binarySerializerImpl) DeserializeResponse(data []byte, resp *common.Response) error {
	// Check minimum size (flags + status)
	if len(data) < 5 {
		return fmt.Errorf("data too short for response header")
	}

	flags := data[0]
	resp.Status = int(int32(binary.BigEndian.Uint32(data[1:5])))
	pos := 5

	// Read Err if present
	resp.Err = ""
	if flags&hasErr != 0 {
		errBytes, next, err := readBytes(data, pos, "error")
		if err != nil {
			return err
		}
		resp.Err = string(errBytes)
		pos = next
	}

	// Read Payload if present
	resp.Payload = nil
	if flags&hasPayload != 0 {
		payload, _, err := readBytes(data, pos, "payload")
		if err != nil {
			return err
		}
		resp.Payload = append(make([]byte, 0, len(payload)), payload...)
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeCommand calculates the total size needed for serializing a command
func (b binarySerializerImpl) sizeCommand(cmd common.Command) int {
	size := 1 + 4 + len(cmd.Name) // flags + name length + name
	if cmd.Params != nil {
		size += 4 // param count
		for _, p := range cmd.Params {
			size += 4 + len(p.Name) + 4 + len(p.Value)
		}
	}
	if cmd.Body != nil {
		size += 4 + len(cmd.Body)
	}
	return size
}

// sizeResponse calculates the total size needed for serializing a response
func (b binarySerializerImpl) sizeResponse(resp common.Response) int {
	size := 1 + 4 // flags + status
	if resp.Err != "" {
		size += 4 + len(resp.Err)
	}
	if resp.Payload != nil {
		size += 4 + len(resp.Payload)
	}
	return size
}

// putBytes writes a length prefixed byte slice at pos and returns the new position
func putBytes(buf []byte, pos int, data []byte) int {
	binary.BigEndian.PutUint32(buf[pos:pos+4], uint32(len(data)))
	pos += 4
	copy(buf[pos:pos+len(data)], data)
	return pos + len(data)
}

// readBytes reads a length prefixed byte slice at pos.
// The returned slice aliases data.
func readBytes(data []byte, pos int, field string) ([]byte, int, error) {
	if pos+4 > len(data) {
		return nil, pos, fmt.Errorf("data too short for %s length", field)
	}
	n := int(binary.BigEndian.Uint32(data[pos : pos+4]))
	pos += 4
	if n < 0 || pos+n > len(data) {
		return nil, pos, fmt.Errorf("data too short for %s data", field)
	}
	return data[pos : pos+n], pos + n, nil
}
