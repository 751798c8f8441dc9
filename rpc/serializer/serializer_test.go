package serializer

import (
	"encoding/json"
	"github.com/ValentinKolb/dCache/rpc/common"
	"reflect"
	"testing"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testCommands creates a set of test commands with different fields filled
func testCommands() []common.Command {
	return []common.Command{
		// Command with just a name
		{Name: common.CmdGetAll},

		// Get request
		*common.NewCommand(common.CmdGet).
			AddParam(common.ParamCacheName, "users").
			SetBody([]byte(`{"key":"k1"}`)),

		// Query execute with positional params
		*common.NewCommand(common.CmdQueryExecute).
			AddParam(common.ParamCacheName, "users").
			AddParam(common.ParamQuery, "select * from Person where age > ?").
			AddParam(common.ParamPageSize, "10").
			AddParam(common.ParamReturnType, "Person").
			SetBody([]byte(`{"args":[18]}`)),

		// Fetch without body
		*common.NewCommand(common.CmdQueryFetch).
			AddParam(common.ParamCacheName, "users").
			AddParam(common.ParamQueryID, "42").
			AddParam(common.ParamPageSize, "10"),
	}
}

// testResponses creates a set of test responses
func testResponses() []common.Response {
	return []common.Response{
		// Empty success
		{Status: common.StatusSuccess},

		// Get response
		{Status: common.StatusSuccess, Payload: json.RawMessage(`"value"`)},

		// Query page
		{Status: common.StatusSuccess, Payload: json.RawMessage(`{"items":[["a",1]],"last":false,"queryId":"q-1"}`)},

		// Error response
		{Status: common.StatusFailed, Err: "cache not found"},
	}
}

// TestCommandRoundTrip tests that commands can be serialized and deserialized correctly
func TestCommandRoundTrip(t *testing.T) {
	commands := testCommands()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, cmd := range commands {
				// Serialize
				data, err := serializer.SerializeCommand(cmd)
				if err != nil {
					t.Errorf("Failed to serialize command %d: %v", i, err)
					continue
				}

				// Deserialize
				var result common.Command
				err = serializer.DeserializeCommand(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize command %d: %v", i, err)
					continue
				}

				// Compare
				if !reflect.DeepEqual(cmd, result) {
					t.Errorf("Command %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, cmd, result)
				}
			}
		})
	}
}

// TestResponseRoundTrip tests that responses can be serialized and deserialized correctly
func TestResponseRoundTrip(t *testing.T) {
	responses := testResponses()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, resp := range responses {
				data, err := serializer.SerializeResponse(resp)
				if err != nil {
					t.Errorf("Failed to serialize response %d: %v", i, err)
					continue
				}

				var result common.Response
				err = serializer.DeserializeResponse(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize response %d: %v", i, err)
					continue
				}

				if !reflect.DeepEqual(resp, result) {
					t.Errorf("Response %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, resp, result)
				}
			}
		})
	}
}

// TestParamOrderPreserved tests that parameters keep their insertion order
func TestParamOrderPreserved(t *testing.T) {
	cmd := common.NewCommand(common.CmdPut)
	names := []string{"cacheName", "z", "a", "m", "b"}
	for i, n := range names {
		cmd.AddParam(n, string(rune('0'+i)))
	}

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			data, err := serializer.SerializeCommand(*cmd)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			var result common.Command
			if err := serializer.DeserializeCommand(data, &result); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			if len(result.Params) != len(names) {
				t.Fatalf("Expected %d params, got %d", len(names), len(result.Params))
			}
			for i, n := range names {
				if result.Params[i].Name != n {
					t.Errorf("Param %d: expected %s, got %s", i, n, result.Params[i].Name)
				}
			}
		})
	}
}

// TestBinarySerializerSpecific tests specific edge cases for the binary serializer
func TestBinarySerializerSpecific(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name string
		cmd  common.Command
	}{
		{
			name: "Empty command",
			cmd:  common.Command{},
		},
		{
			name: "Command with empty body slice but not nil",
			cmd: common.Command{
				Name: common.CmdPutAll,
				Body: []byte{},
			},
		},
		{
			name: "Command with empty params slice but not nil",
			cmd: common.Command{
				Name:   common.CmdGet,
				Params: []common.Param{},
			},
		},
		{
			name: "Command with empty param values",
			cmd: common.Command{
				Name:   common.CmdGet,
				Params: []common.Param{{Name: "cacheName", Value: ""}, {Name: "", Value: ""}},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := serializer.SerializeCommand(tc.cmd)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			var result common.Command
			if err := serializer.DeserializeCommand(data, &result); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			// binary keeps the nil / non-nil distinction of slices
			if !reflect.DeepEqual(tc.cmd, result) {
				t.Errorf("Command mismatch:\nOriginal: %#v\nResult: %#v", tc.cmd, result)
			}
		})
	}
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name        string
		data        []byte
		response    bool
		expectError bool
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectError: true,
		},
		{
			name:        "Too short header",
			data:        []byte{0, 0, 0}, // flags + half a name length
			expectError: true,
		},
		{
			name:        "Valid header only",
			data:        []byte{0, 0, 0, 0, 0}, // no flags, empty name
			expectError: false,
		},
		{
			name:        "Invalid length for name",
			data:        []byte{0, 0, 0, 0, 5, 'g', 'e', 't'}, // Claims name length 5 but only 3 bytes provided
			expectError: true,
		},
		{
			name:        "Bogus param count",
			data:        []byte{1, 0, 0, 0, 0, 0xff, 0xff, 0xff, 0xff},
			expectError: true,
		},
		{
			name:        "Invalid length for payload",
			data:        []byte{8, 0, 0, 0, 0, 0, 0, 0, 10}, // Claims payload length 10 but no bytes provided
			response:    true,
			expectError: true,
		},
		{
			name:        "Valid response header only",
			data:        []byte{0, 0, 0, 0, 1},
			response:    true,
			expectError: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var err error
			if tc.response {
				var resp common.Response
				err = serializer.DeserializeResponse(tc.data, &resp)
			} else {
				var cmd common.Command
				err = serializer.DeserializeCommand(tc.data, &cmd)
			}

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}
}
