// SPDX-License-Identifier: Apache-2.0

// Package capture records observed protocol traffic to a file for offline
// analysis. Records are a CBOR stream, one record per packet, so captures
// stay compact and append-friendly.
package capture

import (
	"errors"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"

	"brickctl/pkg/ipcon"
	"brickctl/pkg/wire"
)

// Record is one captured packet with its arrival time.
type Record struct {
	Timestamp      time.Time `cbor:"1,keyasint"`
	UID            string    `cbor:"2,keyasint"`
	FunctionID     uint8     `cbor:"3,keyasint"`
	SequenceNumber uint8     `cbor:"4,keyasint"`
	ErrorCode      uint8     `cbor:"5,keyasint"`
	Payload        []byte    `cbor:"6,keyasint"`
}

// NewRecord builds a record from a packet, stamping it with now.
func NewRecord(pkt *wire.Packet, now time.Time) Record {
	return Record{
		Timestamp:      now,
		UID:            ipcon.Base58Encode(pkt.UID),
		FunctionID:     pkt.FunctionID,
		SequenceNumber: pkt.SequenceNumber,
		ErrorCode:      pkt.ErrorCode,
		Payload:        pkt.Payload,
	}
}

// Writer appends records to a CBOR stream.
type Writer struct {
	enc *cbor.Encoder
}

// NewWriter wraps w; the caller keeps ownership of w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: cbor.NewEncoder(w)}
}

// Write appends one record.
func (w *Writer) Write(rec Record) error {
	return w.enc.Encode(rec)
}

// Reader iterates a CBOR capture stream.
type Reader struct {
	dec *cbor.Decoder
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: cbor.NewDecoder(r)}
}

// Next returns the next record, or io.EOF at end of stream.
func (r *Reader) Next() (Record, error) {
	var rec Record
	err := r.dec.Decode(&rec)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	return rec, err
}
