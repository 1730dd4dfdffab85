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
	"fmt"
)

type ErrorCodeSubcode uint16

func NewErrorCodeSubcode(code, subcode uint8) ErrorCodeSubcode {
	return ErrorCodeSubcode(uint16(code)<<8 | uint16(subcode))
}

var notificationCodeNames = map[uint8]string{
	BGP_ERROR_MESSAGE_HEADER_ERROR:        "header",
	BGP_ERROR_OPEN_MESSAGE_ERROR:          "open",
	BGP_ERROR_UPDATE_MESSAGE_ERROR:        "update",
	BGP_ERROR_HOLD_TIMER_EXPIRED:          "hold timer expired",
	BGP_ERROR_FSM_ERROR:                   "fsm",
	BGP_ERROR_CEASE:                       "cease",
	BGP_ERROR_ROUTE_REFRESH_MESSAGE_ERROR: "route refresh",
}

var notificationSubcodeNames = map[ErrorCodeSubcode]string{
	// Message Header
	NewErrorCodeSubcode(BGP_ERROR_MESSAGE_HEADER_ERROR, BGP_ERROR_SUB_CONNECTION_NOT_SYNCHRONIZED): "connection not synchronized",
	NewErrorCodeSubcode(BGP_ERROR_MESSAGE_HEADER_ERROR, BGP_ERROR_SUB_BAD_MESSAGE_LENGTH):          "bad message length",
	NewErrorCodeSubcode(BGP_ERROR_MESSAGE_HEADER_ERROR, BGP_ERROR_SUB_BAD_MESSAGE_TYPE):            "bad message type",
	// OPEN
	NewErrorCodeSubcode(BGP_ERROR_OPEN_MESSAGE_ERROR, BGP_ERROR_SUB_UNSUPPORTED_VERSION_NUMBER):        "unsupported version number",
	NewErrorCodeSubcode(BGP_ERROR_OPEN_MESSAGE_ERROR, BGP_ERROR_SUB_BAD_PEER_AS):                       "bad peer as",
	NewErrorCodeSubcode(BGP_ERROR_OPEN_MESSAGE_ERROR, BGP_ERROR_SUB_BAD_BGP_IDENTIFIER):                "bad bgp identifier",
	NewErrorCodeSubcode(BGP_ERROR_OPEN_MESSAGE_ERROR, BGP_ERROR_SUB_UNSUPPORTED_OPTIONAL_PARAMETER):    "unsupported optional parameter",
	NewErrorCodeSubcode(BGP_ERROR_OPEN_MESSAGE_ERROR, BGP_ERROR_SUB_DEPRECATED_AUTHENTICATION_FAILURE): "deprecated authentication failure",
	NewErrorCodeSubcode(BGP_ERROR_OPEN_MESSAGE_ERROR, BGP_ERROR_SUB_UNACCEPTABLE_HOLD_TIME):            "unacceptable hold time",
	NewErrorCodeSubcode(BGP_ERROR_OPEN_MESSAGE_ERROR, BGP_ERROR_SUB_UNSUPPORTED_CAPABILITY):            "unsupported capability",
	// UPDATE
	NewErrorCodeSubcode(BGP_ERROR_UPDATE_MESSAGE_ERROR, BGP_ERROR_SUB_MALFORMED_ATTRIBUTE_LIST):          "malformed attribute list",
	NewErrorCodeSubcode(BGP_ERROR_UPDATE_MESSAGE_ERROR, BGP_ERROR_SUB_UNRECOGNIZED_WELL_KNOWN_ATTRIBUTE): "unrecognized well known attribute",
	NewErrorCodeSubcode(BGP_ERROR_UPDATE_MESSAGE_ERROR, BGP_ERROR_SUB_MISSING_WELL_KNOWN_ATTRIBUTE):      "missing well known attribute",
	NewErrorCodeSubcode(BGP_ERROR_UPDATE_MESSAGE_ERROR, BGP_ERROR_SUB_ATTRIBUTE_FLAGS_ERROR):             "attribute flags error",
	NewErrorCodeSubcode(BGP_ERROR_UPDATE_MESSAGE_ERROR, BGP_ERROR_SUB_ATTRIBUTE_LENGTH_ERROR):            "attribute length error",
	NewErrorCodeSubcode(BGP_ERROR_UPDATE_MESSAGE_ERROR, BGP_ERROR_SUB_INVALID_ORIGIN_ATTRIBUTE):          "invalid origin attribute",
	NewErrorCodeSubcode(BGP_ERROR_UPDATE_MESSAGE_ERROR, BGP_ERROR_SUB_DEPRECATED_ROUTING_LOOP):           "deprecated routing loop",
	NewErrorCodeSubcode(BGP_ERROR_UPDATE_MESSAGE_ERROR, BGP_ERROR_SUB_INVALID_NEXT_HOP_ATTRIBUTE):        "invalid next hop attribute",
	NewErrorCodeSubcode(BGP_ERROR_UPDATE_MESSAGE_ERROR, BGP_ERROR_SUB_OPTIONAL_ATTRIBUTE_ERROR):          "optional attribute error",
	NewErrorCodeSubcode(BGP_ERROR_UPDATE_MESSAGE_ERROR, BGP_ERROR_SUB_INVALID_NETWORK_FIELD):             "invalid network field",
	NewErrorCodeSubcode(BGP_ERROR_UPDATE_MESSAGE_ERROR, BGP_ERROR_SUB_MALFORMED_AS_PATH):                 "malformed as path",
	// BGP_ERROR_HOLD_TIMER_EXPIRED
	NewErrorCodeSubcode(BGP_ERROR_HOLD_TIMER_EXPIRED, BGP_ERROR_SUB_HOLD_TIMER_EXPIRED): "hold timer expired",
	// BGP_ERROR_FSM_ERROR
	NewErrorCodeSubcode(BGP_ERROR_FSM_ERROR, BGP_ERROR_SUB_RECEIVE_UNEXPECTED_MESSAGE_IN_OPENSENT_STATE):    "receive unexpected message in opensent state",
	NewErrorCodeSubcode(BGP_ERROR_FSM_ERROR, BGP_ERROR_SUB_RECEIVE_UNEXPECTED_MESSAGE_IN_OPENCONFIRM_STATE): "receive unexpected message in openconfirm state",
	NewErrorCodeSubcode(BGP_ERROR_FSM_ERROR, BGP_ERROR_SUB_RECEIVE_UNEXPECTED_MESSAGE_IN_ESTABLISHED_STATE): "receive unexpected message in established state",
	// BGP_ERROR_CEASE
	NewErrorCodeSubcode(BGP_ERROR_CEASE, BGP_ERROR_SUB_MAXIMUM_NUMBER_OF_PREFIXES_REACHED): "maximum number of prefixes reached",
	NewErrorCodeSubcode(BGP_ERROR_CEASE, BGP_ERROR_SUB_ADMINISTRATIVE_SHUTDOWN):            "administrative shutdown",
	NewErrorCodeSubcode(BGP_ERROR_CEASE, BGP_ERROR_SUB_PEER_DECONFIGURED):                  "peer deconfigured",
	NewErrorCodeSubcode(BGP_ERROR_CEASE, BGP_ERROR_SUB_ADMINISTRATIVE_RESET):               "administrative reset",
	NewErrorCodeSubcode(BGP_ERROR_CEASE, BGP_ERROR_SUB_CONNECTION_REJECTED):                "connection rejected",
	NewErrorCodeSubcode(BGP_ERROR_CEASE, BGP_ERROR_SUB_OTHER_CONFIGURATION_CHANGE):         "other configuration change",
	NewErrorCodeSubcode(BGP_ERROR_CEASE, BGP_ERROR_SUB_CONNECTION_COLLISION_RESOLUTION):    "connection collision resolution",
	NewErrorCodeSubcode(BGP_ERROR_CEASE, BGP_ERROR_SUB_OUT_OF_RESOURCES):                   "out of resources",
	// BGP_ERROR_ROUTE_REFRESH_MESSAGE_ERROR
	NewErrorCodeSubcode(BGP_ERROR_ROUTE_REFRESH_MESSAGE_ERROR, BGP_ERROR_SUB_INVALID_MESSAGE_LENGTH): "invalid message length",
}

// NotificationCodeString names an error code, or returns "unknown(N)".
func NotificationCodeString(code uint8) string {
	if n, ok := notificationCodeNames[code]; ok {
		return n
	}
	return fmt.Sprintf("unknown(%d)", code)
}

// NotificationSubcodeString names a subcode within its code. Subcode 0 is
// "unspecific" for every code.
func NotificationSubcodeString(code, subcode uint8) string {
	if subcode == BGP_ERROR_SUB_UNSPECIFIC {
		return "unspecific"
	}
	if n, ok := notificationSubcodeNames[NewErrorCodeSubcode(code, subcode)]; ok {
		return n
	}
	return fmt.Sprintf("unknown(%d)", subcode)
}

func (msg *BGPNotification) String() string {
	s := fmt.Sprintf("{Code: %s, Subcode: %s", NotificationCodeString(msg.ErrorCode),
		NotificationSubcodeString(msg.ErrorCode, msg.ErrorSubcode))
	if len(msg.Data) > 0 {
		if msg.ErrorCode == BGP_ERROR_CEASE &&
			(msg.ErrorSubcode == BGP_ERROR_SUB_ADMINISTRATIVE_SHUTDOWN || msg.ErrorSubcode == BGP_ERROR_SUB_ADMINISTRATIVE_RESET) {
			if reason, err := DecodeAdministrativeCommunication(msg.Data); err == nil {
				return fmt.Sprintf("%s, Reason: %q}", s, reason)
			}
		}
		s = fmt.Sprintf("%s, Data: %x", s, msg.Data)
	}
	return s + "}"
}

// Administrative shutdown communication, RFC8203 / RFC9003
const BGP_ERROR_ADMINISTRATIVE_COMMUNICATION_MAX = 255

func NewAdministrativeCommunication(communication string) []byte {
	if len(communication) > BGP_ERROR_ADMINISTRATIVE_COMMUNICATION_MAX {
		communication = communication[:BGP_ERROR_ADMINISTRATIVE_COMMUNICATION_MAX]
	}
	data := make([]byte, 1, len(communication)+1)
	data[0] = uint8(len(communication))
	return append(data, communication...)
}

func DecodeAdministrativeCommunication(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("administrative communication is empty")
	}
	l := int(data[0])
	if len(data)-1 < l {
		return "", fmt.Errorf("administrative communication declares %d bytes, %d available", l, len(data)-1)
	}
	return string(data[1 : 1+l]), nil
}
