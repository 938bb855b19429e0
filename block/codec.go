package block

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ReadBlock implements the C1 framed read: one type byte, then the fixed
// body for that type. A clean end-of-stream (the peer wrote the
// not_a_block sentinel) is reported as (nil, nil). Any short read or
// unrecognized type byte is a framing error; the stream must not be reused
// after an error.
func ReadBlock(r io.Reader) (*Block, error) {
	var typByte [1]byte
	if _, err := io.ReadFull(r, typByte[:]); err != nil {
		return nil, fmt.Errorf("block: read type byte: %w", err)
	}
	t := Type(typByte[0])
	if t == TypeNotABlock {
		return nil, nil
	}
	size, ok := BodySize(t)
	if !ok {
		return nil, fmt.Errorf("block: unknown type byte %#x", typByte[0])
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("block: read %s body (%d bytes): %w", t, size, err)
	}
	return decodeBody(t, body)
}

// WriteBlock frames and writes one block. Used both by tests and by
// transport's reference bulk_pull responder.
func WriteBlock(w io.Writer, b *Block) error {
	if _, err := w.Write([]byte{byte(b.Type)}); err != nil {
		return err
	}
	body, err := encodeBody(b)
	if err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

// WriteNotABlock writes the stream terminator.
func WriteNotABlock(w io.Writer) error {
	_, err := w.Write([]byte{byte(TypeNotABlock)})
	return err
}

// Field layout per variant (all big-endian except Work, which is
// little-endian per spec §6):
//
//	send:    previous(32) destination(32) balance(16) signature(64) work(8)      = 152
//	receive: previous(32) source(32) signature(64) work(8)                       = 136
//	change:  previous(32) representative(32) signature(64) work(8)               = 136
//	open:    source(32) representative(32) account(32) signature(64) work(8)     = 168
//	state:   account(32) previous(32) representative(32) balance(16) link(32) signature(64) work(8) = 216
func encodeBody(b *Block) ([]byte, error) {
	size, ok := BodySize(b.Type)
	if !ok {
		return nil, fmt.Errorf("block: cannot encode type %s", b.Type)
	}
	buf := make([]byte, size)
	switch b.Type {
	case TypeSend:
		off := 0
		off += copy(buf[off:], b.Previous[:])
		off += copy(buf[off:], b.Destination[:])
		bal := b.Balance.Bytes16()
		off += copy(buf[off:], bal[:])
		off += copy(buf[off:], b.Signature[:])
		copy(buf[off:], b.Work[:])
	case TypeReceive:
		off := 0
		off += copy(buf[off:], b.Previous[:])
		off += copy(buf[off:], b.Source[:])
		off += copy(buf[off:], b.Signature[:])
		copy(buf[off:], b.Work[:])
	case TypeChange:
		off := 0
		off += copy(buf[off:], b.Previous[:])
		off += copy(buf[off:], b.Representative[:])
		off += copy(buf[off:], b.Signature[:])
		copy(buf[off:], b.Work[:])
	case TypeOpen:
		off := 0
		off += copy(buf[off:], b.Source[:])
		off += copy(buf[off:], b.Representative[:])
		off += copy(buf[off:], b.Account[:])
		off += copy(buf[off:], b.Signature[:])
		copy(buf[off:], b.Work[:])
	case TypeState:
		off := 0
		off += copy(buf[off:], b.Account[:])
		off += copy(buf[off:], b.Previous[:])
		off += copy(buf[off:], b.Representative[:])
		bal := b.Balance.Bytes16()
		off += copy(buf[off:], bal[:])
		off += copy(buf[off:], b.Link[:])
		off += copy(buf[off:], b.Signature[:])
		copy(buf[off:], b.Work[:])
	default:
		return nil, fmt.Errorf("block: cannot encode type %s", b.Type)
	}
	return buf, nil
}

func decodeBody(t Type, body []byte) (*Block, error) {
	b := &Block{Type: t}
	switch t {
	case TypeSend:
		off := 0
		off += copy(b.Previous[:], body[off:off+32])
		off += copy(b.Destination[:], body[off:off+32])
		var bal [16]byte
		off += copy(bal[:], body[off:off+16])
		b.Balance = NewAmount(bal)
		off += copy(b.Signature[:], body[off:off+64])
		copy(b.Work[:], body[off:off+8])
	case TypeReceive:
		off := 0
		off += copy(b.Previous[:], body[off:off+32])
		off += copy(b.Source[:], body[off:off+32])
		off += copy(b.Signature[:], body[off:off+64])
		copy(b.Work[:], body[off:off+8])
	case TypeChange:
		off := 0
		off += copy(b.Previous[:], body[off:off+32])
		off += copy(b.Representative[:], body[off:off+32])
		off += copy(b.Signature[:], body[off:off+64])
		copy(b.Work[:], body[off:off+8])
	case TypeOpen:
		off := 0
		off += copy(b.Source[:], body[off:off+32])
		off += copy(b.Representative[:], body[off:off+32])
		off += copy(b.Account[:], body[off:off+32])
		off += copy(b.Signature[:], body[off:off+64])
		copy(b.Work[:], body[off:off+8])
	case TypeState:
		off := 0
		off += copy(b.Account[:], body[off:off+32])
		off += copy(b.Previous[:], body[off:off+32])
		off += copy(b.Representative[:], body[off:off+32])
		var bal [16]byte
		off += copy(bal[:], body[off:off+16])
		b.Balance = NewAmount(bal)
		off += copy(b.Link[:], body[off:off+32])
		off += copy(b.Signature[:], body[off:off+64])
		copy(b.Work[:], body[off:off+8])
	default:
		return nil, fmt.Errorf("block: cannot decode type %s", t)
	}
	return b, nil
}

// BulkPullRequest is the request frame of spec §6: ascending + count_present
// flags are implied by using this type (the reference transport always sets
// them), start is an account (chain root) or a block hash (inclusive
// resume point), end is always the zero hash, and count is little-endian.
type BulkPullRequest struct {
	Start Hash // an Account cast to Hash, or a resume block hash
	End   Hash // always zero for ascending pulls
	Count uint32
}

// Encode writes the request frame (64 + 4 = 68 bytes, count little-endian
// per spec §6; the message-header type/flag byte itself is transport's
// concern, not the frame body's).
func (r BulkPullRequest) Encode(w io.Writer) error {
	var buf [68]byte
	copy(buf[0:32], r.Start[:])
	copy(buf[32:64], r.End[:])
	binary.LittleEndian.PutUint32(buf[64:68], r.Count)
	_, err := w.Write(buf[:])
	return err
}

// DecodeBulkPullRequest reads a request frame written by Encode.
func DecodeBulkPullRequest(r io.Reader) (BulkPullRequest, error) {
	var buf [68]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return BulkPullRequest{}, fmt.Errorf("block: read bulk_pull request: %w", err)
	}
	var req BulkPullRequest
	copy(req.Start[:], buf[0:32])
	copy(req.End[:], buf[32:64])
	req.Count = binary.LittleEndian.Uint32(buf[64:68])
	return req, nil
}
