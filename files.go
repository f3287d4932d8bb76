/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"net/http"
)

func humanReadableSize(bytes int64) string {
	const unit int64 = 1000
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := unit, 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB",
		float64(bytes)/float64(div),
		"kMGTPE"[exp])
}

// readPhoto takes the "photo" part of a multipart upload, capped at
// --max-upload bytes, and prepares it for the vision model.
func readPhoto(cfg *Config, w http.ResponseWriter, r *http.Request) (*Photo, error) {
	if r.ContentLength > cfg.maxUpload {
		return nil, photoTooLarge(cfg, nil)
	}

	r.Body = http.MaxBytesReader(w, r.Body, cfg.maxUpload)

	file, header, err := r.FormFile("photo")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, photoTooLarge(cfg, err)
		}

		return nil, newError(KindBadPhoto, "Фото не получено", err)
	}
	defer file.Close()

	debugf(cfg, "UPLOAD: %q (%s) from %s", header.Filename, humanReadableSize(header.Size), realIP(r))

	return preparePhoto(file, cfg.photoMaxSide)
}

func photoTooLarge(cfg *Config, err error) *Error {
	return newError(KindPhotoTooLarge,
		fmt.Sprintf("Фото больше %s", humanReadableSize(cfg.maxUpload)), err)
}
