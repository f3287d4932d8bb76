/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrorKind is the closed set of failures a scan or X-ray capture can end with.
type ErrorKind int

const (
	KindNoCredential ErrorKind = iota
	KindNetworkOrHTTP
	KindMalformedResponse
	KindParseFailure
	KindUserCancelled
	KindBadPhoto
	KindPhotoTooLarge
)

// Non-standard, but widely understood as "client closed request".
const statusClientClosedRequest = 499

func (k ErrorKind) String() string {
	switch k {
	case KindNoCredential:
		return "no_credential"
	case KindNetworkOrHTTP:
		return "network_or_http"
	case KindMalformedResponse:
		return "malformed_response"
	case KindParseFailure:
		return "parse_failure"
	case KindUserCancelled:
		return "user_cancelled"
	case KindBadPhoto:
		return "bad_photo"
	case KindPhotoTooLarge:
		return "photo_too_large"
	}
	return "unknown"
}

func (k ErrorKind) httpStatus() int {
	switch k {
	case KindNoCredential:
		return http.StatusUnauthorized
	case KindNetworkOrHTTP:
		return http.StatusBadGateway
	case KindMalformedResponse, KindParseFailure:
		return http.StatusUnprocessableEntity
	case KindUserCancelled:
		return statusClientClosedRequest
	case KindBadPhoto:
		return http.StatusBadRequest
	case KindPhotoTooLarge:
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

// Error carries a user-facing message; Err holds the underlying cause, if any.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

var (
	errNoCredential = newError(KindNoCredential, "Введите API-ключ в настройках (⚙️)", nil)
	errCancelled    = newError(KindUserCancelled, "Сканирование отменено", nil)
)

// asError maps any error onto the closed variant; unknown errors become network errors.
func asError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return newError(KindNetworkOrHTTP, "Не удалось проанализировать фото", err)
}

func newLogger(cfg *Config) *zap.SugaredLogger {
	level := zapcore.WarnLevel
	if cfg.verbose {
		level = zapcore.DebugLevel
	}

	encoder := zap.NewDevelopmentEncoderConfig()
	encoder.EncodeTime = zapcore.TimeEncoderOfLayout(logDate)
	encoder.EncodeLevel = zapcore.CapitalLevelEncoder
	encoder.ConsoleSeparator = " | "

	zcfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         "console",
		EncoderConfig:    encoder,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zcfg.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}

	return logger.Sugar()
}

// log builds the logger on first use unless one was already installed.
func (c *Config) log() *zap.SugaredLogger {
	c.logOnce.Do(func() {
		if c.logger == nil {
			c.logger = newLogger(c)
		}
	})
	return c.logger
}

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	cfg.log().Infof(format, args...)
}

func debugf(cfg *Config, format string, args ...any) {
	cfg.log().Debugf(format, args...)
}

func errorf(cfg *Config, format string, args ...any) {
	cfg.log().Errorf(format, args...)
}

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="ru"><head>`)
	htmlBody.WriteString(getFavicon())
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}
