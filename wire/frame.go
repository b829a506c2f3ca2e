// Package wire implements the auto-detecting frame accumulator and codec
// for the three wire encodings the engine accepts on one TCP port (§6).
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0
package wire

import (
	"bytes"

	"github.com/agilira/keystone"
)

// Encoding identifies which of the three wire encodings a frame used, so
// the connection loop can reply in the same encoding it was addressed in.
type Encoding uint8

const (
	EncodingText Encoding = iota
	EncodingBinary
	EncodingNegotiated
)

// Negotiated framing's six-byte prefix: magic(4) | version(1) | flags(1).
var negotiatedMagic = [4]byte{0x43, 0x52, 0x41, 0x42}

// Binary command tags.
const (
	tagPing   byte = 0x01
	tagPut    byte = 0x02
	tagGet    byte = 0x03
	tagDel    byte = 0x04
	tagExpire byte = 0x05
	tagStats  byte = 0x06
)

// Binary response tags.
const (
	RespOK    byte = 0x10
	RespPong  byte = 0x11
	RespNull  byte = 0x12
	RespError byte = 0x13
	RespValue byte = 0x14
	RespStats byte = 0x15
)

// Frame is one fully-accumulated client request, decoded into a Command
// along with the encoding it arrived in.
type Frame struct {
	Encoding Encoding
	Command  keystone.Command
	// NegotiatedVersion and NegotiatedFlags are populated only when
	// Encoding is EncodingNegotiated.
	NegotiatedVersion byte
	NegotiatedFlags   byte
}

// Decoder accumulates an incoming byte stream into a growable buffer and
// extracts complete frames from it, auto-detecting encoding per frame from
// a magic prefix or lead-byte range.
type Decoder struct {
	buf           []byte
	maxFrameBytes int
}

// NewDecoder creates a Decoder that rejects any frame beyond maxFrameBytes.
func NewDecoder(maxFrameBytes int) *Decoder {
	if maxFrameBytes <= 0 {
		maxFrameBytes = 1 << 20
	}
	return &Decoder{maxFrameBytes: maxFrameBytes}
}

// Feed appends newly-read bytes to the decoder's buffer.
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Reset discards any partially-accumulated frame, used after a protocol error.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
}

// Buffered reports how many bytes are currently held, undecoded.
func (d *Decoder) Buffered() int { return len(d.buf) }

// HasCompleteFrame reports whether the buffer currently holds at least one
// complete frame, without consuming it.
func (d *Decoder) HasCompleteFrame() bool {
	if len(d.buf) == 0 {
		return false
	}
	n, err := d.frameLen()
	return err == nil && n > 0 && n <= len(d.buf)
}

// ExtractFrame decodes and removes one complete frame from the front of
// the buffer. It returns (nil, false, nil) if the buffer does not yet hold
// a complete frame. A frame whose declared length exceeds maxFrameBytes
// clears the buffer entirely and returns an error; a complete frame whose
// bytes do not parse is dropped on its own (later buffered bytes are kept)
// and returns an error.
func (d *Decoder) ExtractFrame() (*Frame, bool, error) {
	if len(d.buf) == 0 {
		return nil, false, nil
	}

	n, err := d.frameLen()
	if err != nil {
		d.Reset()
		return nil, false, err
	}
	if n == 0 {
		return nil, false, nil // not enough bytes yet to know the frame's length
	}
	if n > d.maxFrameBytes {
		d.Reset()
		return nil, false, keystone.NewErrOversizeFrame(n, d.maxFrameBytes)
	}
	if n > len(d.buf) {
		return nil, false, nil
	}

	raw := d.buf[:n]
	frame, err := decodeFrame(raw)
	d.buf = d.buf[n:]
	if err != nil {
		return nil, false, err
	}
	return frame, true, nil
}

// frameLen determines the detected frame's total byte length, returning
// (0, nil) if more bytes are needed before the length can even be computed.
func (d *Decoder) frameLen() (int, error) {
	buf := d.buf
	switch {
	case len(buf) >= 4 && bytes.Equal(buf[:4], negotiatedMagic[:]):
		return negotiatedFrameLen(buf)
	case len(buf) >= 1 && isBinaryTag(buf[0]):
		return binaryFrameLen(buf)
	default:
		return textFrameLen(buf)
	}
}

func isBinaryTag(b byte) bool {
	return b >= tagPing && b <= tagStats
}

// decodeFrame parses a complete, length-validated frame into a Frame.
func decodeFrame(raw []byte) (*Frame, error) {
	switch {
	case len(raw) >= 4 && bytes.Equal(raw[:4], negotiatedMagic[:]):
		return decodeNegotiated(raw)
	case isBinaryTag(raw[0]):
		return decodeBinary(raw)
	default:
		return decodeText(raw)
	}
}
