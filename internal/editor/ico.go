package editor

import (
	"bytes"
	"encoding/binary"
	"image"
	"io"

	"imagetools-go/internal/imageio"
)

type iconDir struct {
	Reserved uint16
	Type     uint16
	Count    uint16
}

type iconDirEntry struct {
	Width      uint8
	Height     uint8
	Colors     uint8
	Reserved   uint8
	Planes     uint16
	BitCount   uint16
	BytesInRes uint32
	Offset     uint32
}

// writeICO writes the images as one icon file with PNG-compressed entries.
// Sides of 256 pixels are stored as 0, as the format requires.
func writeICO(w io.Writer, images []image.Image) error {
	payloads := make([][]byte, len(images))
	for i, img := range images {
		data, err := imageio.EncodeBytes(img, imageio.PNG, imageio.EncodeOptions{Quality: imageio.MaxQuality, Optimize: true})
		if err != nil {
			return err
		}
		payloads[i] = data
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, iconDir{Type: 1, Count: uint16(len(images))}); err != nil {
		return err
	}

	offset := uint32(6 + 16*len(images))
	for i, img := range images {
		b := img.Bounds()
		entry := iconDirEntry{
			Width:      uint8(b.Dx() % 256),
			Height:     uint8(b.Dy() % 256),
			Planes:     1,
			BitCount:   32,
			BytesInRes: uint32(len(payloads[i])),
			Offset:     offset,
		}
		if err := binary.Write(&buf, binary.LittleEndian, entry); err != nil {
			return err
		}
		offset += entry.BytesInRes
	}
	for _, p := range payloads {
		buf.Write(p)
	}

	_, err := w.Write(buf.Bytes())
	return err
}
