// text.go: the whitespace-delimited ASCII wire encoding
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0
package wire

import (
	"bytes"
	"strconv"

	"github.com/agilira/keystone"
)

// textFrameLen looks for a terminating '\n' (a preceding '\r' is part of
// the terminator, not the payload). Returns (0, nil) if no terminator has
// arrived yet.
func textFrameLen(buf []byte) (int, error) {
	idx := bytes.IndexByte(buf, '\n')
	if idx < 0 {
		return 0, nil
	}
	return idx + 1, nil
}

// decodeText parses one '\n'-terminated (optionally '\r\n'-terminated)
// whitespace-separated line into a Frame.
func decodeText(raw []byte) (*Frame, error) {
	line := bytes.TrimRight(raw, "\r\n")
	fields := bytes.Fields(line)
	if len(fields) == 0 {
		return nil, keystone.NewErrUnknownCommand("")
	}

	name := string(bytes.ToUpper(fields[0]))
	args := fields[1:]

	switch name {
	case "PING":
		return &Frame{Encoding: EncodingText, Command: keystone.Command{Kind: keystone.CmdPing}}, nil

	case "STATS":
		return &Frame{Encoding: EncodingText, Command: keystone.Command{Kind: keystone.CmdStats}}, nil

	case "GET":
		if len(args) < 1 {
			return nil, keystone.NewErrMissingArgument(name, "key")
		}
		return &Frame{Encoding: EncodingText, Command: keystone.Command{Kind: keystone.CmdGet, Key: cloneBytes(args[0])}}, nil

	case "DEL":
		if len(args) < 1 {
			return nil, keystone.NewErrMissingArgument(name, "key")
		}
		return &Frame{Encoding: EncodingText, Command: keystone.Command{Kind: keystone.CmdDelete, Key: cloneBytes(args[0])}}, nil

	case "PUT":
		if len(args) < 2 {
			return nil, keystone.NewErrMissingArgument(name, "value")
		}
		var expiresAt int64
		if len(args) >= 3 {
			ttl, err := strconv.ParseInt(string(args[2]), 10, 64)
			if err != nil {
				return nil, keystone.NewErrMalformedFrame("non-numeric ttl")
			}
			expiresAt = ttl
		}
		return &Frame{Encoding: EncodingText, Command: keystone.Command{
			Kind: keystone.CmdPut, Key: cloneBytes(args[0]), Value: cloneBytes(args[1]), TTLSeconds: expiresAt,
		}}, nil

	case "EXPIRE":
		if len(args) < 2 {
			return nil, keystone.NewErrMissingArgument(name, "ttl")
		}
		ttl, err := strconv.ParseInt(string(args[1]), 10, 64)
		if err != nil {
			return nil, keystone.NewErrMalformedFrame("non-numeric ttl")
		}
		return &Frame{Encoding: EncodingText, Command: keystone.Command{
			Kind: keystone.CmdExpire, Key: cloneBytes(args[0]), TTLSeconds: ttl,
		}}, nil

	default:
		return nil, keystone.NewErrUnknownCommand(name)
	}
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// EncodeTextReply renders reply as a '\n'-terminated text response line.
func EncodeTextReply(cmd keystone.Command, reply keystone.Reply) []byte {
	if reply.Err != nil && !keystone.IsNotFound(reply.Err) {
		return append([]byte("ERROR "+reply.Err.Error()), '\n')
	}

	switch cmd.Kind {
	case keystone.CmdPing:
		return []byte("PONG\n")

	case keystone.CmdStats:
		return append(append([]byte("STATS "), encodeStatsJSON(reply.Stats)...), '\n')

	case keystone.CmdGet:
		if !reply.Found {
			return []byte("NULL\n")
		}
		return append(append([]byte(nil), reply.Value...), '\n')

	case keystone.CmdDelete, keystone.CmdExpire:
		if !reply.Found {
			return []byte("NULL\n")
		}
		return []byte("OK\n")

	case keystone.CmdPut:
		return []byte("OK\n")

	default:
		return []byte("OK\n")
	}
}
