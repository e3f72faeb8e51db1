package httpapi

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/nfcaccess/server/internal/nfcaccess/types"
)

// Readers running on microcontrollers talk protobuf instead of JSON.  The
// messages are small and fixed, so they are encoded field by field:
//
//	SyncRequest      { 1: string nfc_card_uuid }
//	SyncResponse     { 1: bool linked, 2: string pair_token, 3: int64 user_id, 4: string message }
//	ValidateResponse { 1: bool authorized, 2: int64 user_id, 3: string name, 4: string message }
const protobufContentType = "application/x-protobuf"

func isProtobufType(v string) bool {
	mt, _, err := mime.ParseMediaType(v)
	if err != nil {
		return false
	}
	return mt == "application/x-protobuf" ||
		mt == "application/protobuf" ||
		mt == "application/octet-stream"
}

// isProtobuf reports whether the request body is protobuf.
func isProtobuf(r *http.Request) bool {
	return isProtobufType(r.Header.Get("Content-Type"))
}

// wantsProtobuf reports whether the client asked for a protobuf response,
// either explicitly via Accept or implicitly by sending protobuf.
func wantsProtobuf(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		if isProtobufType(strings.TrimSpace(part)) {
			return true
		}
	}
	return isProtobuf(r)
}

func readSyncRequest(r *http.Request) (types.SyncRequest, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		return types.SyncRequest{}, err
	}
	return unmarshalSyncRequest(body)
}

func unmarshalSyncRequest(b []byte) (types.SyncRequest, error) {
	var req types.SyncRequest
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return req, fmt.Errorf("sync request: %w", protowire.ParseError(n))
		}
		b = b[n:]

		if num == 1 && typ == protowire.BytesType {
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return req, fmt.Errorf("sync request: nfc_card_uuid: %w", protowire.ParseError(n))
			}
			req.CardUUID = v
			b = b[n:]
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return req, fmt.Errorf("sync request: field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return req, nil
}

func marshalSyncResponse(resp types.SyncResponse) []byte {
	var b []byte
	b = appendBool(b, 1, resp.Linked)
	b = appendString(b, 2, resp.PairToken)
	if resp.User != nil {
		b = appendInt64(b, 3, resp.User.ID)
	}
	b = appendString(b, 4, resp.Message)
	return b
}

func marshalValidateResponse(resp types.ValidateResponse) []byte {
	var b []byte
	b = appendBool(b, 1, resp.Authorized)
	if resp.User != nil {
		b = appendInt64(b, 2, resp.User.ID)
		b = appendString(b, 3, resp.User.Name)
	}
	b = appendString(b, 4, resp.Message)
	return b
}

// Zero values are omitted, as proto3 does.

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

func appendInt64(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func writeProto(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", protobufContentType)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
