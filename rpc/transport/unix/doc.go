// Package unix carries cache commands over Unix domain sockets. It is the
// transport of choice when the client and the cache server share a host.
//
// Framing, request multiplexing, retries and the server worker pool come from
// the base package; this package only contributes the connectors:
//
//   - clientConnector: dials the socket path given as endpoint
//
//   - serverConnector: removes a stale socket file and listens on the path
//
// The default server buffer size and the default number of workers per
// connection can be changed with NewUnixServerTransport.
package unix
