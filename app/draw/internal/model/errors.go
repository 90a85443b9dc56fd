package model

import (
	"errors"
	"fmt"
)

// ErrNotFound 缓存中不存在对应数据
var ErrNotFound = errors.New("not found")

// Code 面向客户端的错误码
type Code int

const (
	CodeInternal Code = 0

	CodeUnauthenticated  Code = 101
	CodeInvalidParameter Code = 102
	CodeRegionRequired   Code = 104

	CodeInsufficientPoints Code = 201
	CodeGachaBusy          Code = 202
	CodeInsufficientStock  Code = 203
	CodeLedgerPublish      Code = 204
	CodeUnknownGacha       Code = 205
	CodeGachaHidden        Code = 206
	CodeOutOfWindow        Code = 207
	CodeInvalidDrawAll     Code = 208

	CodeUserDailyCap        Code = 301
	CodeGlobalDailyCap      Code = 302
	CodeUserLifetimeCap     Code = 303
	CodeUserDailyPartial    Code = 304
	CodeGlobalDailyPartial  Code = 305
	CodeUserLifetimePartial Code = 306

	CodeDrawTokenMismatch Code = 403
)

var codeText = map[Code]string{
	CodeInternal:            "internal error",
	CodeUnauthenticated:     "not authenticated",
	CodeInvalidParameter:    "invalid parameter",
	CodeRegionRequired:      "region required",
	CodeInsufficientPoints:  "insufficient points",
	CodeGachaBusy:           "gacha busy",
	CodeInsufficientStock:   "insufficient stock",
	CodeLedgerPublish:       "publish failed",
	CodeUnknownGacha:        "unknown gacha",
	CodeGachaHidden:         "gacha hidden",
	CodeOutOfWindow:         "outside active window",
	CodeInvalidDrawAll:      "invalid draw-all size",
	CodeUserDailyCap:        "daily per-user cap reached",
	CodeGlobalDailyCap:      "daily global cap reached",
	CodeUserLifetimeCap:     "lifetime per-user cap reached",
	CodeUserDailyPartial:    "daily per-user partial capacity remains",
	CodeGlobalDailyPartial:  "daily global partial capacity remains",
	CodeUserLifetimePartial: "lifetime per-user partial capacity remains",
	CodeDrawTokenMismatch:   "draw token mismatch",
}

func (c Code) String() string {
	if s, ok := codeText[c]; ok {
		return s
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Retryable 调用方可以原样重试的错误
func (c Code) Retryable() bool {
	return c == CodeGachaBusy
}

// DrawError 业务拒绝，携带错误码
type DrawError struct {
	Code   Code
	Reason string
}

// NewDrawError 创建业务错误，reason 为空时使用错误码描述
func NewDrawError(code Code, reason string) *DrawError {
	if reason == "" {
		reason = code.String()
	}
	return &DrawError{Code: code, Reason: reason}
}

func (e *DrawError) Error() string {
	return fmt.Sprintf("draw rejected (%d): %s", int(e.Code), e.Reason)
}

// Is 同错误码视为相同错误
func (e *DrawError) Is(target error) bool {
	t, ok := target.(*DrawError)
	return ok && t.Code == e.Code
}

// CodeOf 从错误链中提取错误码，非业务错误返回 CodeInternal
func CodeOf(err error) Code {
	var de *DrawError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
