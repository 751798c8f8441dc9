package client

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/dCache/rpc/common"
	"sync"
)

// stubReply is a scripted outcome of a single command
type stubReply struct {
	payload string
	err     error
}

// stubRunner is an ICommandRunner that echoes stored state for the point and
// batch commands and plays back scripted replies for everything else
type stubRunner struct {
	mu       sync.Mutex
	store    map[string]string
	replies  []stubReply
	commands []*common.Command
}

func newStubRunner(replies ...stubReply) *stubRunner {
	return &stubRunner{
		store:   make(map[string]string),
		replies: replies,
	}
}

func (s *stubRunner) RunCommand(_ context.Context, cmd *common.Command) (*common.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, cmd)

	switch cmd.Name {
	case common.CmdPut:
		var args common.KeyValueArgs
		if err := json.Unmarshal(cmd.Body, &args); err != nil {
			return nil, err
		}
		s.store[args.Key] = args.Value
		return common.NewSuccessResponse(true), nil
	case common.CmdGet:
		var args common.KeyArgs
		if err := json.Unmarshal(cmd.Body, &args); err != nil {
			return nil, err
		}
		if val, ok := s.store[args.Key]; ok {
			return common.NewSuccessResponse(val), nil
		}
		return common.NewSuccessResponse(nil), nil
	case common.CmdPutAll:
		var args common.EntriesArgs
		if err := json.Unmarshal(cmd.Body, &args); err != nil {
			return nil, err
		}
		for _, e := range args.Entries {
			s.store[e.Key] = e.Value
		}
		return common.NewSuccessResponse(true), nil
	case common.CmdGetAll:
		var args common.KeysArgs
		if err := json.Unmarshal(cmd.Body, &args); err != nil {
			return nil, err
		}
		records := make([]common.EntryRecord, 0, len(args.Keys))
		for _, k := range args.Keys {
			if val, ok := s.store[k]; ok {
				records = append(records, common.EntryRecord{Key: k, Value: val})
			}
		}
		return common.NewSuccessResponse(records), nil
	}

	if len(s.replies) == 0 {
		return nil, fmt.Errorf("unexpected command %s", cmd)
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	if reply.err != nil {
		return nil, reply.err
	}
	return &common.Response{Status: common.StatusSuccess, Payload: json.RawMessage(reply.payload)}, nil
}

// sent returns the names of all dispatched commands
func (s *stubRunner) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.commands))
	for _, c := range s.commands {
		names = append(names, c.Name)
	}
	return names
}

// count returns how often a command was dispatched
func (s *stubRunner) count(name string) int {
	n := 0
	for _, c := range s.sent() {
		if c == name {
			n++
		}
	}
	return n
}
