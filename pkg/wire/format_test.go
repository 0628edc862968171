// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func TestPayloadSize(t *testing.T) {
	tests := []struct {
		format string
		want   int
	}{
		{"", 0},
		{"B", 1},
		{"64B", 64},
		{"I ! c h h", 10},
		{"8s 8s c 3B 3B H B", 26},
		{"4B 20B", 24},
		{"c B 32B", 34},
		{"9!", 2},
		{"Q q", 16},
	}
	for _, tt := range tests {
		got, err := PayloadSize(tt.format)
		if err != nil {
			t.Errorf("PayloadSize(%q): unexpected error %v", tt.format, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PayloadSize(%q) = %d, want %d", tt.format, got, tt.want)
		}
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		format string
		values []interface{}
	}{
		{"scalars", "b B h H i I q Q",
			[]interface{}{int8(-5), uint8(200), int16(-300), uint16(40000),
				int32(-70000), uint32(3000000000), int64(-1 << 40), uint64(1 << 60)}},
		{"bool and char", "! c", []interface{}{true, byte('x')}},
		{"byte array", "4B", []interface{}{[]uint8{1, 2, 3, 4}}},
		{"signed array", "3h", []interface{}{[]int16{-1, 0, 1}}},
		{"bitpacked bools", "9!", []interface{}{[]bool{true, false, true, false, false, false, false, false, true}}},
		{"string padded", "8s", []interface{}{"abc"}},
		{"mixed", "I ! c h h", []interface{}{uint32(42), false, byte('a'), int16(-10), int16(10)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Marshal(tt.format, tt.values)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			got, err := Unmarshal(tt.format, data)
			if err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if !reflect.DeepEqual(got, tt.values) {
				t.Errorf("round trip mismatch:\n got %#v\nwant %#v", got, tt.values)
			}
		})
	}
}

func TestMarshalBitpacking(t *testing.T) {
	data, err := Marshal("9!", []interface{}{[]bool{true, false, false, false, false, false, false, true, true}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := []byte{0x81, 0x01}
	if !bytes.Equal(data, want) {
		t.Errorf("bitpacked bools = % x, want % x", data, want)
	}
}

func TestMarshalStringPadding(t *testing.T) {
	data, err := Marshal("8s", []interface{}{"abc"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := []byte{'a', 'b', 'c', 0, 0, 0, 0, 0}
	if !bytes.Equal(data, want) {
		t.Errorf("padded string = % x, want % x", data, want)
	}
}

func TestUnmarshalStringTrimsAtNUL(t *testing.T) {
	values, err := Unmarshal("8s", []byte{'a', 'b', 0, 'z', 0, 0, 0, 0})
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if values[0].(string) != "ab" {
		t.Errorf("string = %q, want %q", values[0], "ab")
	}
}

func TestMarshalLittleEndian(t *testing.T) {
	data, err := Marshal("I", []interface{}{uint32(0x12345678)})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := []byte{0x78, 0x56, 0x34, 0x12}
	if !bytes.Equal(data, want) {
		t.Errorf("uint32 = % x, want % x", data, want)
	}
}

func TestMarshalErrors(t *testing.T) {
	tests := []struct {
		name   string
		format string
		values []interface{}
	}{
		{"value count mismatch", "B B", []interface{}{uint8(1)}},
		{"wrong scalar type", "B", []interface{}{int(1)}},
		{"wrong array length", "4B", []interface{}{[]uint8{1, 2}}},
		{"string too long", "4s", []interface{}{"hello"}},
		{"unknown tag", "Z", []interface{}{uint8(1)}},
		{"bad repeat count", "0B", []interface{}{[]uint8{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Marshal(tt.format, tt.values)
			var fmtErr *FormatError
			if !errors.As(err, &fmtErr) {
				t.Errorf("Marshal(%q) error = %v, want *FormatError", tt.format, err)
			}
		})
	}
}

func TestUnmarshalSizeMismatch(t *testing.T) {
	_, err := Unmarshal("I", []byte{1, 2, 3})
	var fmtErr *FormatError
	if !errors.As(err, &fmtErr) {
		t.Fatalf("error = %v, want *FormatError", err)
	}
	if fmtErr.Got != 3 || fmtErr.Want != 4 {
		t.Errorf("Got/Want = %d/%d, want 3/4", fmtErr.Got, fmtErr.Want)
	}
}
