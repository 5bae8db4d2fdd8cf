// Package output persists anamorphic images: PNG with a physical pixel
// density, print-size PDF, atomic file writes and generated file names.
package output

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"io"
	"math"
)

const (
	pngSignatureLen = 8
	ihdrChunkLen    = 4 + 4 + 13 + 4
	metresPerInch   = 0.0254
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// PixelsPerMetre converts a density in dots per inch to the integer
// pixels-per-metre stored in a PNG pHYs chunk.
func PixelsPerMetre(dpi float64) uint32 {
	return uint32(math.Round(dpi / metresPerInch))
}

// EncodePNG writes img as a lossless PNG whose pHYs chunk records dpi, so
// that printing at 100% reproduces the physical size.
func EncodePNG(w io.Writer, img image.Image, dpi float64) error {
	if !(dpi > 0) || math.IsInf(dpi, 0) {
		return fmt.Errorf("output: invalid dpi %g", dpi)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("output: encode png: %w", err)
	}
	data := buf.Bytes()
	if len(data) < pngSignatureLen+ihdrChunkLen || !bytes.Equal(data[:pngSignatureLen], pngSignature) {
		return errors.New("output: encoder produced a malformed png")
	}

	at := pngSignatureLen + ihdrChunkLen
	if _, err := w.Write(data[:at]); err != nil {
		return err
	}
	if _, err := w.Write(physChunk(PixelsPerMetre(dpi))); err != nil {
		return err
	}
	_, err := w.Write(data[at:])
	return err
}

func physChunk(ppm uint32) []byte {
	chunk := make([]byte, 4+4+9+4)
	binary.BigEndian.PutUint32(chunk[0:4], 9)
	copy(chunk[4:8], "pHYs")
	binary.BigEndian.PutUint32(chunk[8:12], ppm)
	binary.BigEndian.PutUint32(chunk[12:16], ppm)
	chunk[16] = 1 // unit: metre
	binary.BigEndian.PutUint32(chunk[17:21], crc32.ChecksumIEEE(chunk[4:17]))
	return chunk
}

// ReadPNGDensity returns the horizontal pixels-per-metre recorded in the
// pHYs chunk of a PNG stream. ok is false when the chunk is absent or its
// unit is not the metre.
func ReadPNGDensity(r io.Reader) (ppm uint32, ok bool, err error) {
	sig := make([]byte, pngSignatureLen)
	if _, err := io.ReadFull(r, sig); err != nil {
		return 0, false, err
	}
	if !bytes.Equal(sig, pngSignature) {
		return 0, false, errors.New("output: not a png stream")
	}
	header := make([]byte, 8)
	for {
		if _, err := io.ReadFull(r, header); err != nil {
			return 0, false, err
		}
		n := binary.BigEndian.Uint32(header[:4])
		typ := string(header[4:8])
		if n > 1<<31 {
			return 0, false, errors.New("output: png chunk too large")
		}
		body := make([]byte, int(n)+4)
		if _, err := io.ReadFull(r, body); err != nil {
			return 0, false, err
		}
		switch typ {
		case "pHYs":
			if n != 9 {
				return 0, false, errors.New("output: malformed pHYs chunk")
			}
			return binary.BigEndian.Uint32(body[:4]), body[8] == 1, nil
		case "IDAT", "IEND":
			return 0, false, nil
		}
	}
}
