// SPDX-License-Identifier: Apache-2.0

package flash

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/marcinbor85/gohex"
)

// LoadFirmware reads a firmware artifact from disk and returns the raw
// image bytes. The container format follows the extension: .zbin archives
// hold the image in an entry named *firmware.bin, .hex files are flattened
// Intel HEX, anything else is taken as a raw binary image. Container
// problems surface here, before any device I/O.
func LoadFirmware(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ContainerError{Reason: "could not read firmware file", Err: err}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".zbin":
		return ExtractZbin(data)
	case ".hex":
		return FlattenHex(data)
	default:
		return data, nil
	}
}

// ExtractZbin pulls the firmware image out of a zbin archive.
func ExtractZbin(data []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &ContainerError{Reason: "could not read zbin file", Err: err}
	}

	for _, entry := range zr.File {
		if !strings.HasSuffix(entry.Name, "firmware.bin") {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return nil, &ContainerError{Reason: fmt.Sprintf("could not open %s", entry.Name), Err: err}
		}
		image, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, &ContainerError{Reason: fmt.Sprintf("could not read %s", entry.Name), Err: err}
		}
		return image, nil
	}
	return nil, &ContainerError{Reason: "could not find firmware in zbin file"}
}

// FlattenHex converts an Intel HEX image into a contiguous binary, zero
// filling the gaps between data segments. The image is rebased to its
// lowest segment address.
func FlattenHex(data []byte) ([]byte, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(bytes.NewReader(data)); err != nil {
		return nil, &ContainerError{Reason: "could not parse hex file", Err: err}
	}

	segments := mem.GetDataSegments()
	if len(segments) == 0 {
		return nil, &ContainerError{Reason: "hex file contains no data"}
	}

	base := segments[0].Address
	end := segments[0].Address + uint32(len(segments[0].Data))
	for _, seg := range segments[1:] {
		if seg.Address < base {
			base = seg.Address
		}
		if segEnd := seg.Address + uint32(len(seg.Data)); segEnd > end {
			end = segEnd
		}
	}

	image := make([]byte, end-base)
	for _, seg := range segments {
		copy(image[seg.Address-base:], seg.Data)
	}
	return image, nil
}
