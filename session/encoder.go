package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const recordFormatVersion = 1

const (
	maxShortField   = 255
	maxLongField    = 65535
	maxPayloadPairs = 65535
)

// Encode serializes a record into its versioned binary storage form:
// length-prefixed strings, big-endian timestamps. The session ID is the
// storage key and is not part of the blob.
func Encode(r *Record) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(recordFormatVersion)

	if err := writeShort(&buf, r.UserID); err != nil {
		return nil, errors.New("session: userID too long")
	}
	if err := writeShort(&buf, r.OriginAddress); err != nil {
		return nil, errors.New("session: origin address too long")
	}
	if err := writeLong(&buf, r.UserAgent); err != nil {
		return nil, errors.New("session: user agent too long")
	}
	if err := writeShort(&buf, r.CSRFToken); err != nil {
		return nil, errors.New("session: csrf token too long")
	}

	if len(r.Payload) > maxPayloadPairs {
		return nil, errors.New("session: payload too large")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(r.Payload))); err != nil {
		return nil, err
	}
	for key, value := range r.Payload {
		if err := writeShort(&buf, key); err != nil {
			return nil, errors.New("session: payload key too long")
		}
		if err := writeLong(&buf, value); err != nil {
			return nil, errors.New("session: payload value too long")
		}
	}

	for _, ts := range []int64{r.CreatedAt, r.UpdatedAt, r.ExpiresAt} {
		if err := binary.Write(&buf, binary.BigEndian, ts); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// Decode parses a blob produced by Encode. Unknown versions are rejected.
func Decode(data []byte) (*Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != recordFormatVersion {
		return nil, errors.New("session: invalid record version")
	}

	r := &Record{}

	if r.UserID, err = readShort(reader); err != nil {
		return nil, err
	}
	if r.OriginAddress, err = readShort(reader); err != nil {
		return nil, err
	}
	if r.UserAgent, err = readLong(reader); err != nil {
		return nil, err
	}
	if r.CSRFToken, err = readShort(reader); err != nil {
		return nil, err
	}

	var pairs uint16
	if err := binary.Read(reader, binary.BigEndian, &pairs); err != nil {
		return nil, err
	}
	if pairs > 0 {
		r.Payload = make(map[string]string, pairs)
		for i := 0; i < int(pairs); i++ {
			key, err := readShort(reader)
			if err != nil {
				return nil, err
			}
			value, err := readLong(reader)
			if err != nil {
				return nil, err
			}
			r.Payload[key] = value
		}
	}

	for _, dst := range []*int64{&r.CreatedAt, &r.UpdatedAt, &r.ExpiresAt} {
		if err := binary.Read(reader, binary.BigEndian, dst); err != nil {
			return nil, err
		}
	}

	if reader.Len() != 0 {
		return nil, errors.New("session: trailing bytes in record")
	}

	return r, nil
}

func writeShort(buf *bytes.Buffer, s string) error {
	if len(s) > maxShortField {
		return errors.New("field too long")
	}
	buf.WriteByte(byte(len(s)))
	buf.WriteString(s)
	return nil
}

func writeLong(buf *bytes.Buffer, s string) error {
	if len(s) > maxLongField {
		return errors.New("field too long")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
}

func readShort(reader *bytes.Reader) (string, error) {
	n, err := reader.ReadByte()
	if err != nil {
		return "", err
	}
	return readString(reader, int(n))
}

func readLong(reader *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
		return "", err
	}
	return readString(reader, int(n))
}

func readString(reader *bytes.Reader, n int) (string, error) {
	if n == 0 {
		return "", nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(reader, b); err != nil {
		return "", err
	}
	return string(b), nil
}
