package server

import (
	"net"
	"sync"

	"github.com/nightglow/respd/internal/config"
	"github.com/nightglow/respd/internal/resp"
)

// Peer represents a connected client.
// It owns the connection's incremental decoder and encoder: decoding state
// is per connection and must only ever be driven by the goroutine that owns
// the inbound stream
type Peer struct {
	conn   net.Conn
	reader *resp.StreamReader
	writer *resp.Encoder
	mu     sync.Mutex
}

// NewPeer initializes a new client peer from a network connection. The
// protocol limits bound how much one connection may make the parser buffer
func NewPeer(conn net.Conn, cfg config.ServerConfig, limits config.ProtocolConfig) *Peer {
	opts := []resp.DecoderOption{
		resp.WithMaxBulkLen(limits.MaxBulkLen),
		resp.WithMaxArrayLen(limits.MaxArrayLen),
		resp.WithMaxBuffered(limits.MaxBuffered),
	}
	return &Peer{
		conn:   conn,
		reader: resp.NewStreamReaderSize(conn, cfg.ReadBuffer, opts...),
		writer: resp.NewEncoder(conn),
	}
}

// Send encodes and writes a RESP value to the client.
// This method is thread-safe and can be called from multiple goroutines
func (p *Peer) Send(v resp.Value) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writer.Write(v)
}

// ReadCommand reads and decodes the next RESP value from the client's input stream
func (p *Peer) ReadCommand() (resp.Value, error) {
	return p.reader.Read()
}

// Close terminates the underlying network connection
func (p *Peer) Close() error {
	return p.conn.Close()
}

// Flush sends all buffered data to the client
func (p *Peer) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writer.Flush()
}

// InputBuffered returns the number of bytes that can be read from the current buffer
func (p *Peer) InputBuffered() int {
	return p.reader.Buffered()
}

// RemoteAddr reports the client address for logging
func (p *Peer) RemoteAddr() string {
	return p.conn.RemoteAddr().String()
}
