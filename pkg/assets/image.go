package assets

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/webp"
)

type imageCodec struct {
	name   string
	decode func(io.Reader) (image.Image, error)
	config func(io.Reader) (image.Config, error)
}

// sniffImage picks a decoder from the leading bytes. TGA has no signature,
// so it is the fallback for anything unrecognized.
func sniffImage(data []byte) imageCodec {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return imageCodec{"png", png.Decode, png.DecodeConfig}
	case bytes.HasPrefix(data, []byte("\xff\xd8")):
		return imageCodec{"jpeg", jpeg.Decode, jpeg.DecodeConfig}
	case bytes.HasPrefix(data, []byte("GIF8")):
		return imageCodec{"gif", gif.Decode, gif.DecodeConfig}
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return imageCodec{"webp", webp.Decode, webp.DecodeConfig}
	}
	return imageCodec{"tga", tga.Decode, tga.DecodeConfig}
}

// DecodeImage decodes a JPEG, PNG, GIF, WebP or legacy TGA image.
func DecodeImage(data []byte) (image.Image, string, error) {
	codec := sniffImage(data)
	img, err := codec.decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode %s image: %w", codec.name, err)
	}
	return img, codec.name, nil
}

// ImageSize decodes only the header of a raster image.
func ImageSize(data []byte) (image.Point, error) {
	codec := sniffImage(data)
	cfg, err := codec.config(bytes.NewReader(data))
	if err != nil {
		return image.Point{}, fmt.Errorf("decode %s header: %w", codec.name, err)
	}
	return image.Pt(cfg.Width, cfg.Height), nil
}

// DataURI embeds a raster image in a data: URI. TGA, which browsers do not
// display, is converted to PNG first.
func DataURI(data []byte) (string, error) {
	codec := sniffImage(data)
	if codec.name == "tga" {
		img, err := codec.decode(bytes.NewReader(data))
		if err != nil {
			return "", fmt.Errorf("decode tga image: %w", err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return "", err
		}
		data, codec.name = buf.Bytes(), "png"
	}
	return "data:image/" + codec.name + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
