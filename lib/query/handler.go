package query

import (
	"encoding/json"
	"sync"
)

// PageHandler consumes the result of a query.
// OnPage is called once per page in server order, OnEnd exactly once after the
// last page (err == nil) or after the first failure (err != nil).
type PageHandler interface {
	OnPage(rows []json.RawMessage)
	OnEnd(err error)
}

// Handler adapts two functions to a PageHandler. Nil functions are skipped.
type Handler struct {
	Page func(rows []json.RawMessage)
	End  func(err error)
}

func (h Handler) OnPage(rows []json.RawMessage) {
	if h.Page != nil {
		h.Page(rows)
	}
}

func (h Handler) OnEnd(err error) {
	if h.End != nil {
		h.End(err)
	}
}

// --------------------------------------------------------------------------
// Channel based handler
// --------------------------------------------------------------------------

// PageStream is a PageHandler that delivers pages through a channel.
// The pages channel is closed after the terminal signal, Err blocks until
// the query ended.
//
// A consumer that stops reading early must call Close, pages delivered after
// Close are dropped. Cancel the context of the query to stop fetching.
//
// Usage:
//
//	stream := query.NewPageStream(1)
//	defer stream.Close()
//	go func() { _ = c.Query(ctx, q.WithHandler(stream)) }()
//	for rows := range stream.Pages() {
//		...
//	}
//	if err := stream.Err(); err != nil {
//		...
//	}
type PageStream struct {
	pages     chan []json.RawMessage
	done      chan struct{}
	stop      chan struct{}
	closeOnce sync.Once
	err       error
}

// NewPageStream creates a PageStream, buffer is the number of pages that may
// be fetched ahead of the consumer
func NewPageStream(buffer int) *PageStream {
	if buffer < 0 {
		buffer = 0
	}
	return &PageStream{
		pages: make(chan []json.RawMessage, buffer),
		done:  make(chan struct{}),
		stop:  make(chan struct{}),
	}
}

// Pages returns the page channel
func (s *PageStream) Pages() <-chan []json.RawMessage {
	return s.pages
}

// Err waits for the terminal signal and returns its error
func (s *PageStream) Err() error {
	<-s.done
	return s.err
}

// Done is closed once the terminal signal was delivered
func (s *PageStream) Done() <-chan struct{} {
	return s.done
}

// Close detaches the consumer. Pending and later pages are dropped, the
// terminal signal is still recorded for Err.
func (s *PageStream) Close() {
	s.closeOnce.Do(func() { close(s.stop) })
}

func (s *PageStream) OnPage(rows []json.RawMessage) {
	select {
	case s.pages <- rows:
	case <-s.stop:
	}
}

func (s *PageStream) OnEnd(err error) {
	s.err = err
	close(s.pages)
	close(s.done)
}

// --------------------------------------------------------------------------
// Collecting handler
// --------------------------------------------------------------------------

// Collector is a PageHandler that keeps all rows in memory
type Collector struct {
	Rows  []json.RawMessage
	Pages int
	Err   error
	Ended bool
}

func (c *Collector) OnPage(rows []json.RawMessage) {
	c.Rows = append(c.Rows, rows...)
	c.Pages++
}

func (c *Collector) OnEnd(err error) {
	c.Err = err
	c.Ended = true
}
