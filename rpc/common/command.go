package common

import "strings"

// --------------------------------------------------------------------------
// Command Structure
// --------------------------------------------------------------------------

// Param is a single named string parameter of a Command.
type Param struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Command describes one remote operation: a name understood by the server,
// an ordered list of string parameters and an optional (json) body.
// Parameters are transmitted in the order they were added, some server
// operations are positional.
//
// A Command is built, sent once and then discarded. It must not be modified
// after it was handed to a transport.
type Command struct {
	Name   string  `json:"cmd"`
	Params []Param `json:"params,omitempty"`
	Body   []byte  `json:"body,omitempty"`
}

// NewCommand creates an empty command for the given operation name
func NewCommand(name string) *Command {
	return &Command{Name: name}
}

// AddParam appends a parameter and returns the command
func (c *Command) AddParam(name, value string) *Command {
	c.Params = append(c.Params, Param{Name: name, Value: value})
	return c
}

// SetBody sets the request body and returns the command
func (c *Command) SetBody(payload []byte) *Command {
	c.Body = payload
	return c
}

// Param returns the value of the first parameter with the given name
func (c *Command) Param(name string) (string, bool) {
	for _, p := range c.Params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// String returns a short representation used for logging (the body is omitted)
func (c *Command) String() string {
	var sb strings.Builder
	sb.WriteString(c.Name)
	for i, p := range c.Params {
		if i == 0 {
			sb.WriteString("?")
		} else {
			sb.WriteString("&")
		}
		sb.WriteString(p.Name)
		sb.WriteString("=")
		sb.WriteString(p.Value)
	}
	return sb.String()
}

// --------------------------------------------------------------------------
// Command Vocabulary
// --------------------------------------------------------------------------

// Command names understood by the cache server
const (
	CmdGet               = "get"
	CmdPut               = "put"
	CmdPutIfAbsent       = "putifabsent"
	CmdRemove            = "rmv"
	CmdGetAndRemove      = "getandrmv"
	CmdRemoveAll         = "rmvall"
	CmdPutAll            = "putall"
	CmdGetAll            = "getall"
	CmdContainsKey       = "containskey"
	CmdContainsKeys      = "containskeys"
	CmdGetAndPut         = "getandput"
	CmdGetAndPutIfAbsent = "getandputifabsent"
	CmdQueryExecute      = "qryexecute"
	CmdQueryFieldsExec   = "qryfieldsexecute"
	CmdQueryFetch        = "qryfetch"
)

// Parameter names
const (
	ParamCacheName  = "cacheName"
	ParamQuery      = "qry"
	ParamPageSize   = "psz"
	ParamReturnType = "type"
	ParamQueryID    = "qryId"
)
