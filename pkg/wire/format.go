// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/binary"
	"strconv"
	"strings"
)

// Payload layouts are described by format strings of space-separated tokens.
// Each token is a primitive type tag with an optional decimal repeat count:
//
//	b B  signed/unsigned 8-bit integer
//	h H  signed/unsigned 16-bit integer
//	i I  signed/unsigned 32-bit integer
//	q Q  signed/unsigned 64-bit integer
//	!    boolean (bit-packed when repeated)
//	c    single character
//	s    fixed-length string, count is the length (NUL-padded/trimmed)
//
// A count above 1 on a numeric tag or 'c' produces a fixed-length array.
// Examples: "I ! c h h", "64B", "8s 8s c 3B 3B H B".

type formatToken struct {
	count int
	tag   byte
}

func (t formatToken) byteSize() int {
	switch t.tag {
	case 'b', 'B', 'c':
		return t.count
	case 'h', 'H':
		return 2 * t.count
	case 'i', 'I':
		return 4 * t.count
	case 'q', 'Q':
		return 8 * t.count
	case '!':
		return (t.count + 7) / 8
	case 's':
		return t.count
	}
	return 0
}

func parseFormat(format string) ([]formatToken, error) {
	if strings.TrimSpace(format) == "" {
		return nil, nil
	}

	fields := strings.Fields(format)
	tokens := make([]formatToken, 0, len(fields))

	for _, field := range fields {
		tag := field[len(field)-1]
		count := 1
		if len(field) > 1 {
			n, err := strconv.Atoi(field[:len(field)-1])
			if err != nil || n < 1 {
				return nil, &FormatError{Format: format, Reason: "invalid repeat count in token " + field}
			}
			count = n
		}

		switch tag {
		case 'b', 'B', 'h', 'H', 'i', 'I', 'q', 'Q', '!', 'c', 's':
		default:
			return nil, &FormatError{Format: format, Reason: "unknown type tag in token " + field}
		}
		tokens = append(tokens, formatToken{count: count, tag: tag})
	}
	return tokens, nil
}

// PayloadSize returns the number of payload bytes a format string describes.
func PayloadSize(format string) (int, error) {
	tokens, err := parseFormat(format)
	if err != nil {
		return 0, err
	}
	size := 0
	for _, t := range tokens {
		size += t.byteSize()
	}
	return size, nil
}

// Marshal packs values into a payload per format. The value count must match
// the token count and every value must have the token's exact Go type.
func Marshal(format string, values []interface{}) ([]byte, error) {
	tokens, err := parseFormat(format)
	if err != nil {
		return nil, err
	}
	if len(values) != len(tokens) {
		return nil, &FormatError{Format: format, Reason: "value count mismatch", Got: len(values), Want: len(tokens)}
	}

	var buf []byte
	for i, t := range tokens {
		chunk, err := marshalValue(format, t, values[i])
		if err != nil {
			return nil, err
		}
		buf = append(buf, chunk...)
	}
	return buf, nil
}

func marshalValue(format string, t formatToken, value interface{}) ([]byte, error) {
	mismatch := func() error {
		return &FormatError{Format: format, Reason: "value type does not match tag " + string(t.tag)}
	}

	buf := make([]byte, 0, t.byteSize())

	switch t.tag {
	case 'b':
		if t.count == 1 {
			v, ok := value.(int8)
			if !ok {
				return nil, mismatch()
			}
			return append(buf, byte(v)), nil
		}
		vs, ok := value.([]int8)
		if !ok || len(vs) != t.count {
			return nil, mismatch()
		}
		for _, v := range vs {
			buf = append(buf, byte(v))
		}
		return buf, nil

	case 'B':
		if t.count == 1 {
			v, ok := value.(uint8)
			if !ok {
				return nil, mismatch()
			}
			return append(buf, v), nil
		}
		vs, ok := value.([]uint8)
		if !ok || len(vs) != t.count {
			return nil, mismatch()
		}
		return append(buf, vs...), nil

	case 'h':
		if t.count == 1 {
			v, ok := value.(int16)
			if !ok {
				return nil, mismatch()
			}
			return binary.LittleEndian.AppendUint16(buf, uint16(v)), nil
		}
		vs, ok := value.([]int16)
		if !ok || len(vs) != t.count {
			return nil, mismatch()
		}
		for _, v := range vs {
			buf = binary.LittleEndian.AppendUint16(buf, uint16(v))
		}
		return buf, nil

	case 'H':
		if t.count == 1 {
			v, ok := value.(uint16)
			if !ok {
				return nil, mismatch()
			}
			return binary.LittleEndian.AppendUint16(buf, v), nil
		}
		vs, ok := value.([]uint16)
		if !ok || len(vs) != t.count {
			return nil, mismatch()
		}
		for _, v := range vs {
			buf = binary.LittleEndian.AppendUint16(buf, v)
		}
		return buf, nil

	case 'i':
		if t.count == 1 {
			v, ok := value.(int32)
			if !ok {
				return nil, mismatch()
			}
			return binary.LittleEndian.AppendUint32(buf, uint32(v)), nil
		}
		vs, ok := value.([]int32)
		if !ok || len(vs) != t.count {
			return nil, mismatch()
		}
		for _, v := range vs {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(v))
		}
		return buf, nil

	case 'I':
		if t.count == 1 {
			v, ok := value.(uint32)
			if !ok {
				return nil, mismatch()
			}
			return binary.LittleEndian.AppendUint32(buf, v), nil
		}
		vs, ok := value.([]uint32)
		if !ok || len(vs) != t.count {
			return nil, mismatch()
		}
		for _, v := range vs {
			buf = binary.LittleEndian.AppendUint32(buf, v)
		}
		return buf, nil

	case 'q':
		if t.count == 1 {
			v, ok := value.(int64)
			if !ok {
				return nil, mismatch()
			}
			return binary.LittleEndian.AppendUint64(buf, uint64(v)), nil
		}
		vs, ok := value.([]int64)
		if !ok || len(vs) != t.count {
			return nil, mismatch()
		}
		for _, v := range vs {
			buf = binary.LittleEndian.AppendUint64(buf, uint64(v))
		}
		return buf, nil

	case 'Q':
		if t.count == 1 {
			v, ok := value.(uint64)
			if !ok {
				return nil, mismatch()
			}
			return binary.LittleEndian.AppendUint64(buf, v), nil
		}
		vs, ok := value.([]uint64)
		if !ok || len(vs) != t.count {
			return nil, mismatch()
		}
		for _, v := range vs {
			buf = binary.LittleEndian.AppendUint64(buf, v)
		}
		return buf, nil

	case '!':
		if t.count == 1 {
			v, ok := value.(bool)
			if !ok {
				return nil, mismatch()
			}
			b := byte(0)
			if v {
				b = 1
			}
			return append(buf, b), nil
		}
		vs, ok := value.([]bool)
		if !ok || len(vs) != t.count {
			return nil, mismatch()
		}
		buf = append(buf, make([]byte, (t.count+7)/8)...)
		for i, v := range vs {
			if v {
				buf[i/8] |= 1 << (i % 8)
			}
		}
		return buf, nil

	case 'c':
		if t.count == 1 {
			v, ok := value.(byte)
			if !ok {
				return nil, mismatch()
			}
			return append(buf, v), nil
		}
		vs, ok := value.([]byte)
		if !ok || len(vs) != t.count {
			return nil, mismatch()
		}
		return append(buf, vs...), nil

	case 's':
		v, ok := value.(string)
		if !ok {
			return nil, mismatch()
		}
		if len(v) > t.count {
			return nil, &FormatError{Format: format, Reason: "string too long", Got: len(v), Want: t.count}
		}
		buf = append(buf, v...)
		return append(buf, make([]byte, t.count-len(v))...), nil
	}

	return nil, &FormatError{Format: format, Reason: "unknown type tag " + string(t.tag)}
}

// Unmarshal unpacks a payload per format. The payload length must match the
// format's size exactly.
func Unmarshal(format string, data []byte) ([]interface{}, error) {
	tokens, err := parseFormat(format)
	if err != nil {
		return nil, err
	}

	size := 0
	for _, t := range tokens {
		size += t.byteSize()
	}
	if len(data) != size {
		return nil, &FormatError{Format: format, Reason: "payload size mismatch", Got: len(data), Want: size}
	}

	values := make([]interface{}, 0, len(tokens))
	offset := 0
	for _, t := range tokens {
		value, n := unmarshalValue(t, data[offset:])
		values = append(values, value)
		offset += n
	}
	return values, nil
}

func unmarshalValue(t formatToken, data []byte) (interface{}, int) {
	switch t.tag {
	case 'b':
		if t.count == 1 {
			return int8(data[0]), 1
		}
		vs := make([]int8, t.count)
		for i := range vs {
			vs[i] = int8(data[i])
		}
		return vs, t.count

	case 'B':
		if t.count == 1 {
			return data[0], 1
		}
		vs := make([]uint8, t.count)
		copy(vs, data)
		return vs, t.count

	case 'h':
		if t.count == 1 {
			return int16(binary.LittleEndian.Uint16(data)), 2
		}
		vs := make([]int16, t.count)
		for i := range vs {
			vs[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
		}
		return vs, 2 * t.count

	case 'H':
		if t.count == 1 {
			return binary.LittleEndian.Uint16(data), 2
		}
		vs := make([]uint16, t.count)
		for i := range vs {
			vs[i] = binary.LittleEndian.Uint16(data[i*2:])
		}
		return vs, 2 * t.count

	case 'i':
		if t.count == 1 {
			return int32(binary.LittleEndian.Uint32(data)), 4
		}
		vs := make([]int32, t.count)
		for i := range vs {
			vs[i] = int32(binary.LittleEndian.Uint32(data[i*4:]))
		}
		return vs, 4 * t.count

	case 'I':
		if t.count == 1 {
			return binary.LittleEndian.Uint32(data), 4
		}
		vs := make([]uint32, t.count)
		for i := range vs {
			vs[i] = binary.LittleEndian.Uint32(data[i*4:])
		}
		return vs, 4 * t.count

	case 'q':
		if t.count == 1 {
			return int64(binary.LittleEndian.Uint64(data)), 8
		}
		vs := make([]int64, t.count)
		for i := range vs {
			vs[i] = int64(binary.LittleEndian.Uint64(data[i*8:]))
		}
		return vs, 8 * t.count

	case 'Q':
		if t.count == 1 {
			return binary.LittleEndian.Uint64(data), 8
		}
		vs := make([]uint64, t.count)
		for i := range vs {
			vs[i] = binary.LittleEndian.Uint64(data[i*8:])
		}
		return vs, 8 * t.count

	case '!':
		if t.count == 1 {
			return data[0] != 0, 1
		}
		vs := make([]bool, t.count)
		for i := range vs {
			vs[i] = data[i/8]&(1<<(i%8)) != 0
		}
		return vs, (t.count + 7) / 8

	case 'c':
		if t.count == 1 {
			return data[0], 1
		}
		vs := make([]byte, t.count)
		copy(vs, data)
		return vs, t.count

	case 's':
		raw := data[:t.count]
		// Strings are NUL-padded on the wire; trim at the first NUL.
		end := len(raw)
		for i, b := range raw {
			if b == 0 {
				end = i
				break
			}
		}
		return string(raw[:end]), t.count
	}

	return nil, 0
}
