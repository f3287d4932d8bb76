/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

const (
	photoQuality = 80

	// Uploads are checked against this before any pixel data is allocated.
	maxPhotoPixels = 40_000_000
)

// Photo is an upload re-encoded as JPEG, ready for the vision request.
type Photo struct {
	MimeType string
	Data     []byte
	Width    int
	Height   int
}

// preparePhoto decodes an upload, applies its EXIF orientation, shrinks it to
// fit within maxSide pixels and re-encodes it as JPEG.
func preparePhoto(r io.Reader, maxSide int) (*Photo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, newError(KindBadPhoto, "Не удалось прочитать фото", err)
	}

	header, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, newError(KindBadPhoto, "Не удалось прочитать фото", err)
	}

	if int64(header.Width)*int64(header.Height) > maxPhotoPixels {
		return nil, newError(KindBadPhoto, "Фото слишком большое",
			fmt.Errorf("%dx%d exceeds %d pixels", header.Width, header.Height, maxPhotoPixels))
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, newError(KindBadPhoto, "Не удалось прочитать фото", err)
	}

	bounds := img.Bounds()
	if maxSide > 0 && (bounds.Dx() > maxSide || bounds.Dy() > maxSide) {
		img = imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(photoQuality)); err != nil {
		return nil, newError(KindBadPhoto, "Не удалось подготовить фото", err)
	}

	bounds = img.Bounds()

	return &Photo{
		MimeType: "image/jpeg",
		Data:     buf.Bytes(),
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
	}, nil
}
