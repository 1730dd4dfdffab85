// Copyright (C) 2014 Nippon Telegraph and Telephone Corporation.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bgp

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// ErrorKind classifies a decode failure by the structure that failed.
type ErrorKind uint8

const (
	ErrorKindUnknown ErrorKind = iota
	ErrorKindHeader
	ErrorKindOpen
	ErrorKindCapability
	ErrorKindAttributeTruncated
	ErrorKindAttributeMalformed
	ErrorKindPrefix
	ErrorKindUpdate
	ErrorKindNotification
	ErrorKindKeepalive
	ErrorKindRouteRefresh
)

var errorKindNames = map[ErrorKind]string{
	ErrorKindUnknown:            "unknown",
	ErrorKindHeader:             "header",
	ErrorKindOpen:               "open",
	ErrorKindCapability:         "capability",
	ErrorKindAttributeTruncated: "attribute-truncated",
	ErrorKindAttributeMalformed: "attribute-malformed",
	ErrorKindPrefix:             "prefix",
	ErrorKindUpdate:             "update",
	ErrorKindNotification:       "notification",
	ErrorKindKeepalive:          "keepalive",
	ErrorKindRouteRefresh:       "route-refresh",
}

func (k ErrorKind) String() string {
	if n, ok := errorKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("ErrorKind(%d)", uint8(k))
}

// MessageError is a protocol violation found while decoding. TypeCode and
// SubTypeCode are the NOTIFICATION code pair to report it with, Data is the
// NOTIFICATION data and Offset is the position of the offending field in the
// buffer handed to the outermost decode call.
type MessageError struct {
	TypeCode    uint8
	SubTypeCode uint8
	Data        []byte
	Message     string
	Kind        ErrorKind
	Offset      int
}

func NewMessageError(typeCode, subTypeCode uint8, data []byte, msg string) error {
	return &MessageError{
		TypeCode:    typeCode,
		SubTypeCode: subTypeCode,
		Data:        data,
		Message:     msg,
	}
}

func newKindError(kind ErrorKind, typeCode, subTypeCode uint8, data []byte, msg string) *MessageError {
	return &MessageError{
		TypeCode:    typeCode,
		SubTypeCode: subTypeCode,
		Data:        data,
		Message:     msg,
		Kind:        kind,
	}
}

func (e *MessageError) Error() string {
	return e.Message
}

// Notification returns the NOTIFICATION message reporting this error.
func (e *MessageError) Notification() *BGPMessage {
	return NewBGPNotificationMessage(e.TypeCode, e.SubTypeCode, e.Data)
}

// shiftError moves the offset of a MessageError by n bytes so that it stays
// relative to the caller's buffer.
func shiftError(err error, n int) error {
	var e *MessageError
	if errors.As(err, &e) {
		e.Offset += n
	}
	return err
}

// IncompleteError reports that the buffer ends before the message does.
// Need is the minimum number of additional bytes required to make progress.
type IncompleteError struct {
	Need int
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("incomplete message: need at least %d more bytes", e.Need)
}

// IsIncomplete reports whether err only signals that more input is needed.
func IsIncomplete(err error) bool {
	var e *IncompleteError
	return errors.As(err, &e)
}

// ErrorKindOf returns the kind of a decode error, or ErrorKindUnknown when
// err is not a MessageError.
func ErrorKindOf(err error) ErrorKind {
	var e *MessageError
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrorKindUnknown
}

// ValidationError is returned by the builders when the accumulated fields
// cannot form a valid message. No bytes are produced in that case.
type ValidationError struct {
	Message string
	errs    *multierror.Error
}

func newValidationError(msg string, errs *multierror.Error) *ValidationError {
	return &ValidationError{
		Message: msg,
		errs:    errs,
	}
}

func (e *ValidationError) Error() string {
	if e.errs == nil || len(e.errs.Errors) == 0 {
		return fmt.Sprintf("invalid %s", e.Message)
	}
	if len(e.errs.Errors) == 1 {
		return fmt.Sprintf("invalid %s: %s", e.Message, e.errs.Errors[0])
	}
	return fmt.Sprintf("invalid %s: %s", e.Message, e.errs.Error())
}

// Errors returns each violated rule.
func (e *ValidationError) Errors() []error {
	if e.errs == nil {
		return nil
	}
	return e.errs.Errors
}

func (e *ValidationError) Unwrap() error {
	if e.errs == nil {
		return nil
	}
	return e.errs.ErrorOrNil()
}
