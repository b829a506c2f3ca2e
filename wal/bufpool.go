// bufpool.go: pooled scratch buffers for record encoding
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0
package wal

import (
	"bytes"
	"sync"
)

// recordBufPool holds reusable *bytes.Buffer instances for encoding one
// record at a time in writeBatch, avoiding a fresh allocation per Append
// under sustained write load.
var recordBufPool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

func getRecordBuf() *bytes.Buffer {
	return recordBufPool.Get().(*bytes.Buffer)
}

func putRecordBuf(buf *bytes.Buffer) {
	buf.Reset()
	recordBufPool.Put(buf)
}
