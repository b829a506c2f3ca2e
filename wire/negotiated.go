// negotiated.go: the extended framing envelope (§6)
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0
package wire

import (
	"encoding/binary"

	"github.com/agilira/keystone"
)

// negotiatedHeaderLen is the six-byte prefix: magic(4) | version(1) | flags(1).
const negotiatedHeaderLen = 6

// negotiatedFrameLen computes the length of an extended-framing message:
// magic(4) | version(1) | flags(1) | u32 length | payload. Every message
// carries the full six-byte prefix before its length; there is no separate
// one-time announcement, and a message without the flags byte is not
// recognized.
func negotiatedFrameLen(buf []byte) (int, error) {
	if len(buf) < negotiatedHeaderLen+4 {
		return 0, nil
	}
	payloadLen := binary.LittleEndian.Uint32(buf[negotiatedHeaderLen : negotiatedHeaderLen+4])
	return negotiatedHeaderLen + 4 + int(payloadLen), nil
}

// decodeNegotiated unwraps the envelope and decodes its payload as a
// binary-encoded command (the same command layout used by binary.go),
// since the serializer named by the envelope's payload format is an
// external collaborator out of scope here (§6 notes this explicitly).
func decodeNegotiated(raw []byte) (*Frame, error) {
	version := raw[4]
	flags := raw[5]
	payloadLen := binary.LittleEndian.Uint32(raw[negotiatedHeaderLen : negotiatedHeaderLen+4])
	payload := raw[negotiatedHeaderLen+4 : negotiatedHeaderLen+4+int(payloadLen)]

	if len(payload) == 0 {
		return nil, keystone.NewErrMalformedFrame("empty negotiated payload")
	}

	inner, err := decodeBinary(payload)
	if err != nil {
		return nil, err
	}
	inner.Encoding = EncodingNegotiated
	inner.NegotiatedVersion = version
	inner.NegotiatedFlags = flags
	return inner, nil
}

// EncodeNegotiatedReply wraps a binary-encoded reply in the extended framing envelope.
func EncodeNegotiatedReply(cmd keystone.Command, reply keystone.Reply, version, flags byte) []byte {
	payload := EncodeBinaryReply(cmd, reply)
	out := make([]byte, negotiatedHeaderLen+4+len(payload))
	copy(out[0:4], negotiatedMagic[:])
	out[4] = version
	out[5] = flags
	binary.LittleEndian.PutUint32(out[negotiatedHeaderLen:negotiatedHeaderLen+4], uint32(len(payload)))
	copy(out[negotiatedHeaderLen+4:], payload)
	return out
}
