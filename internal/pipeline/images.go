// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package pipeline

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image/gif"
	"image/png"
	"log/slog"
	"path"
	"strings"

	"go.astrophena.name/base/logger"
)

// optimizeImages recompresses images losslessly. SVG documents are minified,
// PNG images are re-encoded with the best compression and GIF animations are
// re-encoded frame by frame. A result is only kept when it is smaller than
// the input; other formats are copied unchanged.
//
// PNG images carrying color management or text chunks are left alone, since
// the encoder would drop them.
func optimizeImages(m *min) Step {
	return Step{Name: "imagemin", Run: func(ctx context.Context, b *Batch) error {
		for _, f := range b.Files {
			var (
				optimized []byte
				err       error
			)
			switch strings.ToLower(path.Ext(f.Path)) {
			case ".svg":
				optimized, err = m.Bytes("image/svg+xml", f.Contents)
			case ".png":
				optimized, err = recompressPNG(f.Contents)
			case ".gif":
				optimized, err = recompressGIF(f.Contents)
			default:
				continue
			}
			if err != nil {
				return fmt.Errorf("%s: %w", f.Path, err)
			}
			if optimized == nil || len(optimized) >= len(f.Contents) {
				continue
			}
			logger.Info(ctx, "optimized image",
				slog.String("file", f.Path),
				slog.Int("saved", len(f.Contents)-len(optimized)),
			)
			f.Contents = optimized
		}
		return nil
	}}
}

// recompressPNG returns nil if b has chunks that re-encoding would lose.
func recompressPNG(b []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	keep, err := hasAncillaryChunks(b)
	if err != nil {
		return nil, err
	}
	if keep {
		return nil, nil
	}
	var buf bytes.Buffer
	enc := &png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Chunks that the PNG encoder doesn't write back.
var ancillaryChunks = map[string]bool{
	"cHRM": true,
	"gAMA": true,
	"iCCP": true,
	"sBIT": true,
	"sRGB": true,
	"pHYs": true,
	"tEXt": true,
	"zTXt": true,
	"iTXt": true,
	"tIME": true,
}

const pngHeader = "\x89PNG\r\n\x1a\n"

var errTruncatedPNG = errors.New("truncated PNG chunk")

func hasAncillaryChunks(b []byte) (bool, error) {
	b = bytes.TrimPrefix(b, []byte(pngHeader))
	for len(b) > 0 {
		if len(b) < 12 {
			return false, errTruncatedPNG
		}
		n := int(binary.BigEndian.Uint32(b[:4]))
		typ := string(b[4:8])
		if n < 0 || len(b) < 12+n {
			return false, errTruncatedPNG
		}
		if ancillaryChunks[typ] {
			return true, nil
		}
		if typ == "IEND" {
			break
		}
		b = b[12+n:]
	}
	return false, nil
}

func recompressGIF(b []byte) ([]byte, error) {
	g, err := gif.DecodeAll(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
