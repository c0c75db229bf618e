package domain

import (
	"encoding/binary"
	"time"
)

// envelopeVersion is the current envelope encoding version.
const envelopeVersion = 1

// EncryptedEnvelope is the immutable unit of ciphertext produced by encryption
// and consumed by decryption. The 16-byte authentication tag is kept appended
// to the ciphertext in AEAD seal form. SYSTEM-tier envelopes carry the
// plaintext with an empty nonce (passthrough).
//
// Any tamper with the ciphertext or tag causes a hard decryption failure; a
// corrupted envelope never yields plaintext.
type EncryptedEnvelope struct {
	Tier       Tier
	Nonce      []byte
	Ciphertext []byte
	CreatedAt  time.Time
}

// IsPassthrough reports whether the envelope holds unencrypted SYSTEM-tier data.
func (e *EncryptedEnvelope) IsPassthrough() bool {
	return e.Tier == TierSystem && len(e.Nonce) == 0
}

// Encode serializes the envelope into the stable versioned binary layout:
//
//	[version:1][tierLen:1][tier][createdAt:8][nonceLen:4][nonce][ctLen:4][ciphertext]
//
// createdAt is Unix seconds, big-endian. Variable-length fields carry length
// prefixes to keep the encoding unambiguous.
func (e *EncryptedEnvelope) Encode() []byte {
	tier := []byte(e.Tier)
	buf := make([]byte, 0, 1+1+len(tier)+8+4+len(e.Nonce)+4+len(e.Ciphertext))

	buf = append(buf, envelopeVersion)
	buf = append(buf, byte(len(tier)))
	buf = append(buf, tier...)

	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(e.CreatedAt.UTC().Unix()))
	buf = append(buf, ts...)

	buf = appendLengthPrefixed(buf, e.Nonce)
	buf = appendLengthPrefixed(buf, e.Ciphertext)
	return buf
}

// DecodeEnvelope parses the versioned binary layout produced by Encode.
// Returns ErrMalformedEnvelope for truncated or unknown-version input.
func DecodeEnvelope(data []byte) (*EncryptedEnvelope, error) {
	if len(data) < 2 {
		return nil, ErrMalformedEnvelope
	}
	if data[0] != envelopeVersion {
		return nil, ErrMalformedEnvelope
	}

	tierLen := int(data[1])
	offset := 2
	if len(data) < offset+tierLen+8 {
		return nil, ErrMalformedEnvelope
	}
	tier := Tier(data[offset : offset+tierLen])
	offset += tierLen

	createdAt := time.Unix(int64(binary.BigEndian.Uint64(data[offset:offset+8])), 0).UTC()
	offset += 8

	nonce, offset, err := readLengthPrefixed(data, offset)
	if err != nil {
		return nil, err
	}
	ciphertext, offset, err := readLengthPrefixed(data, offset)
	if err != nil {
		return nil, err
	}
	if offset != len(data) {
		return nil, ErrMalformedEnvelope
	}
	if !tier.IsValid() {
		return nil, ErrMalformedEnvelope
	}

	return &EncryptedEnvelope{
		Tier:       tier,
		Nonce:      nonce,
		Ciphertext: ciphertext,
		CreatedAt:  createdAt,
	}, nil
}

// appendLengthPrefixed adds a 4-byte big-endian length prefix followed by data.
func appendLengthPrefixed(buf, data []byte) []byte {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))
	buf = append(buf, length...)
	buf = append(buf, data...)
	return buf
}

// readLengthPrefixed reads one length-prefixed field starting at offset and
// returns the field plus the new offset.
func readLengthPrefixed(data []byte, offset int) ([]byte, int, error) {
	if len(data) < offset+4 {
		return nil, 0, ErrMalformedEnvelope
	}
	length := int(binary.BigEndian.Uint32(data[offset : offset+4]))
	offset += 4
	if len(data) < offset+length {
		return nil, 0, ErrMalformedEnvelope
	}
	field := make([]byte, length)
	copy(field, data[offset:offset+length])
	return field, offset + length, nil
}
