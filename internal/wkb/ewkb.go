package wkb

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// wkbSRIDFlag marks a PostGIS EWKB type word that is followed by an SRID
const wkbSRIDFlag = 0x20000000

const headerSize = 5 // byte order + type

// endian is satisfied by binary.LittleEndian and binary.BigEndian
type endian interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

var errShort = errors.New("wkb: buffer too short")

// byteOrder reads the byte order marker at the start of a WKB buffer
func byteOrder(b []byte) (endian, error) {
	if len(b) < headerSize {
		return nil, errShort
	}
	switch b[0] {
	case 0x00:
		return binary.BigEndian, nil
	case 0x01:
		return binary.LittleEndian, nil
	}
	return nil, fmt.Errorf("wkb: invalid byte order marker 0x%02x", b[0])
}

// WithSRID frames ISO WKB, as produced by GEOS, as PostGIS EWKB carrying srid.
// Input that already carries an SRID has it replaced. The byte order of the
// input is preserved.
func WithSRID(b []byte, srid int) ([]byte, error) {
	order, err := byteOrder(b)
	if err != nil {
		return nil, err
	}

	typ := order.Uint32(b[1:5])
	body := b[headerSize:]
	if typ&wkbSRIDFlag != 0 {
		if len(body) < 4 {
			return nil, errShort
		}
		body = body[4:]
	}

	out := make([]byte, 0, headerSize+4+len(body))
	out = append(out, b[0])
	out = order.AppendUint32(out, typ|wkbSRIDFlag)
	out = order.AppendUint32(out, uint32(srid))
	out = append(out, body...)
	return out, nil
}

// SRID returns the SRID embedded in an EWKB buffer, or false for plain WKB
func SRID(b []byte) (int, bool, error) {
	order, err := byteOrder(b)
	if err != nil {
		return 0, false, err
	}
	typ := order.Uint32(b[1:5])
	if typ&wkbSRIDFlag == 0 {
		return 0, false, nil
	}
	if len(b) < headerSize+4 {
		return 0, false, errShort
	}
	return int(order.Uint32(b[5:9])), true, nil
}
