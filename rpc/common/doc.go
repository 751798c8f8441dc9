// Package common provides the data structures shared by the cache client and
// server.
//
// Key Components:
//
//   - Command: name, ordered string parameters and an optional json body.
//     Parameters are kept in insertion order, the cache name is always the
//     first one. The Cmd* and Param* constants define the vocabulary.
//
//   - Response: the envelope every command is answered with
//     ({successStatus, error, response}). ServerError is returned to callers
//     when the status is not StatusSuccess.
//
//   - Typed payloads: KeyArgs, KeyValueArgs, KeysArgs, EntriesArgs and QueryArgs
//     are the request bodies. QueryPage is the result of query commands and
//     is decoded with DecodeQueryPage, which rejects pages without the last flag
//     or continuation pages without a query id (ErrProtocol).
//
//   - ServerConfig / ClientConfig: configuration of server and client including
//     the transport settings.
//
//   - Logger: Custom logging implementation that integrates with Dragonboat's
//     logging system while providing consistent formatting across the application.
package common
