// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package digest

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-lpc/mockingbird/internal/crc16"
)

const (
	// RecordSize is the size in bytes of one digest record, as laid out
	// by the producing toolchain: f64 timestamp, u8 byte, u8 dir and
	// 6 bytes of padding to realign the next double.
	RecordSize = 16

	offByte = 8
	offDir  = 9
)

var (
	magic = [4]byte{'M', 'B', 'D', 'T'}
)

const (
	version   = 1
	hdrSize   = 12 // magic + version + reserved[3] + count
	crcSize   = 2
	maxRecord = 1 << 26
)

// DecodeRecords decodes the raw image of a digests array and validates it
// against its companion count.
func DecodeRecords(raw []byte, count int) (*Table, error) {
	if len(raw)%RecordSize != 0 {
		return nil, &MalformedTableError{
			Reason:   fmt.Sprintf("record image of %d bytes is not a multiple of %d", len(raw), RecordSize),
			Index:    -1,
			Declared: count,
			Actual:   len(raw) / RecordSize,
		}
	}
	n := len(raw) / RecordSize
	if n != count {
		return nil, errCount(count, n)
	}

	ds := make([]Digest, n)
	for i := range ds {
		err := decodeRecord(&ds[i], raw[i*RecordSize:(i+1)*RecordSize])
		if err != nil {
			return nil, &MalformedTableError{
				Reason: fmt.Sprintf("record %d: %v", i, err),
				Index:  i,
			}
		}
	}

	err := validate(ds)
	if err != nil {
		return nil, err
	}
	return &Table{ds: ds}, nil
}

func decodeRecord(d *Digest, p []byte) error {
	d.Timestamp = math.Float64frombits(binary.LittleEndian.Uint64(p[:8]))
	d.Byte = p[offByte]
	switch p[offDir] {
	case 0:
		d.Dir = false
	case 1:
		d.Dir = true
	default:
		return fmt.Errorf("invalid dir value 0x%x", p[offDir])
	}
	return nil
}

// EncodeRecords returns the raw image of the table records.
func EncodeRecords(tbl *Table) []byte {
	raw := make([]byte, tbl.Len()*RecordSize)
	for i := 0; i < tbl.Len(); i++ {
		encodeRecord(raw[i*RecordSize:(i+1)*RecordSize], tbl.ds[i])
	}
	return raw
}

func encodeRecord(p []byte, d Digest) {
	binary.LittleEndian.PutUint64(p[:8], math.Float64bits(d.Timestamp))
	p[offByte] = d.Byte
	p[offDir] = 0
	if d.Dir {
		p[offDir] = 1
	}
	for i := offDir + 1; i < RecordSize; i++ {
		p[i] = 0
	}
}

// Encoder writes digest tables to an output stream.
// Encoder computes the CRC-16 checksum on the fly and appends it
// at the end of the stream.
type Encoder struct {
	w   io.Writer
	err error
	crc crc16.Hash16
}

// NewEncoder returns a new Encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		w:   w,
		crc: crc16.New(nil),
	}
}

// Encode writes the table header, its records and the CRC-16 trailer.
func (enc *Encoder) Encode(tbl *Table) error {
	enc.crc.Reset()

	hdr := make([]byte, hdrSize)
	copy(hdr, magic[:])
	hdr[4] = version
	binary.LittleEndian.PutUint32(hdr[8:], uint32(tbl.Len()))
	enc.write(hdr)
	if enc.err != nil {
		return fmt.Errorf("digest: could not write table header: %w", enc.err)
	}

	enc.write(EncodeRecords(tbl))
	if enc.err != nil {
		return fmt.Errorf("digest: could not write table records: %w", enc.err)
	}

	var sum [crcSize]byte
	binary.BigEndian.PutUint16(sum[:], enc.crc.Sum16())
	enc.write(sum[:])
	if enc.err != nil {
		return fmt.Errorf("digest: could not write table checksum: %w", enc.err)
	}

	return nil
}

func (enc *Encoder) write(p []byte) {
	if enc.err != nil {
		return
	}
	_, enc.err = enc.w.Write(p)
	_, _ = enc.crc.Write(p) // can not fail.
}

// Decoder reads (and validates) digest tables from an input stream.
type Decoder struct {
	r io.Reader
}

// NewDecoder creates a decoder that reads and validates data from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Decode reads a whole table from the underlying stream.
// A declared count that does not match the number of records present
// is reported as a *MalformedTableError.
func (dec *Decoder) Decode() (*Table, error) {
	hdr := make([]byte, hdrSize)
	_, err := io.ReadFull(dec.r, hdr)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			err = io.EOF
		}
		return nil, fmt.Errorf("digest: could not read table header: %w", err)
	}

	if [4]byte{hdr[0], hdr[1], hdr[2], hdr[3]} != magic {
		return nil, fmt.Errorf("digest: invalid table magic %q", hdr[:4])
	}
	if v := hdr[4]; v != version {
		return nil, fmt.Errorf("digest: unsupported table version %d", v)
	}
	count := int(binary.LittleEndian.Uint32(hdr[8:]))
	if count > maxRecord {
		return nil, fmt.Errorf("digest: table too large (count=%d)", count)
	}

	body, err := io.ReadAll(dec.r)
	if err != nil {
		return nil, fmt.Errorf("digest: could not read table body: %w", err)
	}
	if len(body) < crcSize {
		return nil, fmt.Errorf("digest: could not read table checksum: %w", io.ErrUnexpectedEOF)
	}

	var (
		raw = body[:len(body)-crcSize]
		sum = binary.BigEndian.Uint16(body[len(body)-crcSize:])
		crc = crc16.New(nil)
	)
	_, _ = crc.Write(hdr)
	_, _ = crc.Write(raw)
	if got := crc.Sum16(); got != sum {
		return nil, fmt.Errorf("digest: invalid table checksum (got=0x%04x, want=0x%04x)", got, sum)
	}

	return DecodeRecords(raw, count)
}
