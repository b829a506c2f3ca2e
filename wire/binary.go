// binary.go: the fixed-tag binary wire encoding
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0
package wire

import (
	"encoding/binary"

	"github.com/agilira/keystone"
)

// binaryFrameLen computes a binary frame's total length once enough bytes
// have arrived to know it, per each command tag's fixed-plus-variable layout.
func binaryFrameLen(buf []byte) (int, error) {
	tag := buf[0]
	switch tag {
	case tagPing, tagStats:
		return 1, nil

	case tagGet, tagDel:
		if len(buf) < 5 {
			return 0, nil
		}
		keyLen := binary.LittleEndian.Uint32(buf[1:5])
		return 5 + int(keyLen), nil

	case tagExpire:
		if len(buf) < 5 {
			return 0, nil
		}
		keyLen := binary.LittleEndian.Uint32(buf[1:5])
		return 5 + int(keyLen) + 8, nil

	case tagPut:
		if len(buf) < 5 {
			return 0, nil
		}
		keyLen := int(binary.LittleEndian.Uint32(buf[1:5]))
		valOff := 5 + keyLen
		if len(buf) < valOff+4 {
			return 0, nil
		}
		valLen := int(binary.LittleEndian.Uint32(buf[valOff : valOff+4]))
		ttlFlagOff := valOff + 4 + valLen
		if len(buf) < ttlFlagOff+1 {
			return 0, nil
		}
		if buf[ttlFlagOff] == 0 {
			return ttlFlagOff + 1, nil
		}
		return ttlFlagOff + 1 + 8, nil

	default:
		return 0, keystone.NewErrMalformedFrame("unrecognized binary command tag")
	}
}

// decodeBinary parses a complete binary frame (already length-validated by
// binaryFrameLen) into a Frame.
func decodeBinary(raw []byte) (*Frame, error) {
	tag := raw[0]
	switch tag {
	case tagPing:
		return &Frame{Encoding: EncodingBinary, Command: keystone.Command{Kind: keystone.CmdPing}}, nil

	case tagStats:
		return &Frame{Encoding: EncodingBinary, Command: keystone.Command{Kind: keystone.CmdStats}}, nil

	case tagGet, tagDel:
		keyLen := binary.LittleEndian.Uint32(raw[1:5])
		key := append([]byte(nil), raw[5:5+int(keyLen)]...)
		kind := keystone.CmdGet
		if tag == tagDel {
			kind = keystone.CmdDelete
		}
		return &Frame{Encoding: EncodingBinary, Command: keystone.Command{Kind: kind, Key: key}}, nil

	case tagExpire:
		keyLen := binary.LittleEndian.Uint32(raw[1:5])
		key := append([]byte(nil), raw[5:5+int(keyLen)]...)
		ttl := binary.LittleEndian.Uint64(raw[5+int(keyLen):])
		return &Frame{Encoding: EncodingBinary, Command: keystone.Command{
			Kind: keystone.CmdExpire, Key: key, TTLSeconds: int64(ttl),
		}}, nil

	case tagPut:
		keyLen := int(binary.LittleEndian.Uint32(raw[1:5]))
		off := 5
		key := append([]byte(nil), raw[off:off+keyLen]...)
		off += keyLen
		valLen := int(binary.LittleEndian.Uint32(raw[off : off+4]))
		off += 4
		value := append([]byte(nil), raw[off:off+valLen]...)
		off += valLen
		ttlPresent := raw[off]
		off++
		var expiresAt int64
		if ttlPresent != 0 {
			expiresAt = int64(binary.LittleEndian.Uint64(raw[off:]))
		}
		return &Frame{Encoding: EncodingBinary, Command: keystone.Command{
			Kind: keystone.CmdPut, Key: key, Value: value, TTLSeconds: expiresAt,
		}}, nil

	default:
		return nil, keystone.NewErrMalformedFrame("unrecognized binary command tag")
	}
}

// EncodeBinaryReply renders reply as a binary response frame for cmd.
func EncodeBinaryReply(cmd keystone.Command, reply keystone.Reply) []byte {
	if reply.Err != nil && !keystone.IsNotFound(reply.Err) {
		msg := []byte(reply.Err.Error())
		out := make([]byte, 1+4+len(msg))
		out[0] = RespError
		binary.LittleEndian.PutUint32(out[1:5], uint32(len(msg)))
		copy(out[5:], msg)
		return out
	}

	switch cmd.Kind {
	case keystone.CmdPing:
		return []byte{RespPong}

	case keystone.CmdStats:
		payload := encodeStatsJSON(reply.Stats)
		out := make([]byte, 1+4+len(payload))
		out[0] = RespStats
		binary.LittleEndian.PutUint32(out[1:5], uint32(len(payload)))
		copy(out[5:], payload)
		return out

	case keystone.CmdGet:
		if !reply.Found {
			return []byte{RespNull}
		}
		out := make([]byte, 1+4+len(reply.Value))
		out[0] = RespValue
		binary.LittleEndian.PutUint32(out[1:5], uint32(len(reply.Value)))
		copy(out[5:], reply.Value)
		return out

	case keystone.CmdDelete, keystone.CmdExpire:
		if !reply.Found {
			return []byte{RespNull}
		}
		return []byte{RespOK}

	case keystone.CmdPut:
		return []byte{RespOK}

	default:
		return []byte{RespOK}
	}
}
