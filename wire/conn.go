// conn.go: per-connection read/decode/dispatch/reply loop
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0
package wire

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/agilira/keystone"
)

// Processor is the subset of *keystone.Manager a connection needs to
// dispatch commands, kept as an interface so connection handling can be
// tested without a full Manager.
type Processor interface {
	Process(ctx context.Context, cmd keystone.Command) keystone.Reply
}

// ConnConfig configures one connection's read loop.
type ConnConfig struct {
	MaxFrameBytes int
	IdleTimeout   time.Duration
	Logger        keystone.Logger
}

// ServeConn reads frames from conn, dispatches each to proc, and writes
// the reply back in the same encoding the request arrived in. It returns
// when the connection is closed by the peer, hits its idle timeout, or ctx
// is canceled. Per connection, commands are processed strictly in
// arrival order and replies are written in that same order (§5): nothing
// here pipelines across commands.
func ServeConn(ctx context.Context, conn net.Conn, proc Processor, cfg ConnConfig) {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = keystone.NoOpLogger{}
	}

	decoder := NewDecoder(cfg.MaxFrameBytes)
	readBuf := make([]byte, 64<<10)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frame, ok, err := decoder.ExtractFrame()
		if err != nil {
			writeError(conn, err)
			continue
		}
		if ok {
			reply := proc.Process(ctx, frame.Command)
			if _, werr := conn.Write(encodeReply(*frame, reply)); werr != nil {
				cfg.Logger.Warn("connection write failed", "error", werr)
				return
			}
			continue
		}

		conn.SetReadDeadline(time.Now().Add(cfg.IdleTimeout))
		n, err := conn.Read(readBuf)
		if n > 0 {
			decoder.Feed(readBuf[:n])
		}
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			// Any other read failure (EOF, reset, idle timeout) ends the
			// connection; a partial frame already buffered is discarded and
			// any effect already applied by a prior complete frame persists.
			return
		}
	}
}

func writeError(conn net.Conn, err error) {
	conn.Write(append([]byte("ERROR "+err.Error()), '\n'))
}

// encodeReply renders reply in the same encoding frame.Command arrived in.
func encodeReply(frame Frame, reply keystone.Reply) []byte {
	switch frame.Encoding {
	case EncodingBinary:
		return EncodeBinaryReply(frame.Command, reply)
	case EncodingNegotiated:
		return EncodeNegotiatedReply(frame.Command, reply, frame.NegotiatedVersion, frame.NegotiatedFlags)
	default:
		return EncodeTextReply(frame.Command, reply)
	}
}
