package httpapi_test

import (
	"bytes"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

// decodeFields flattens a protobuf message into field number -> raw value.
// Varints come back as uint64, bytes fields as string.
func decodeFields(t *testing.T, b []byte) map[protowire.Number]any {
	t.Helper()

	out := make(map[protowire.Number]any)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		require.GreaterOrEqual(t, n, 0, "bad tag")
		b = b[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			require.GreaterOrEqual(t, n, 0)
			out[num] = v
			b = b[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			require.GreaterOrEqual(t, n, 0)
			out[num] = v
			b = b[n:]
		default:
			t.Fatalf("unexpected wire type %d for field %d", typ, num)
		}
	}
	return out
}

func postProto(t *testing.T, url string, body []byte) (int, map[protowire.Number]any) {
	t.Helper()

	resp, err := http.Post(url, "application/x-protobuf", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "application/x-protobuf", resp.Header.Get("Content-Type"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, decodeFields(t, raw)
}

func syncRequest(uuid string) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	return protowire.AppendString(b, uuid)
}

func TestSync_Protobuf(t *testing.T) {
	ts, _ := newTestServer(t)
	user := createUser(t, ts, "Ana", "12345678900", "ana@example.com")

	status, body := postProto(t, ts.URL+"/api/nfc/sync", syncRequest("04A1B2C3"))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Nil(t, body[1], "linked should be omitted when false")
	assert.NotEmpty(t, body[4])

	_, start := call(t, http.MethodPost, ts.URL+"/api/nfc/pair_start", object{"cpf": "12345678900"})

	// Unknown fields from newer firmware are skipped.
	req := syncRequest("04A1B2C3")
	req = protowire.AppendTag(req, 9, protowire.VarintType)
	req = protowire.AppendVarint(req, 3)

	status, body = postProto(t, ts.URL+"/api/nfc/sync", req)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, uint64(1), body[1])
	assert.Equal(t, start["pair_token"], body[2])
	assert.EqualValues(t, user["id"], body[3])

	// A second card finds no session.
	status, _ = postProto(t, ts.URL+"/api/nfc/sync", syncRequest("FFFFFFFF"))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSync_ProtobufErrorsStayProtobuf(t *testing.T) {
	ts, _ := newTestServer(t)

	status, body := postProto(t, ts.URL+"/api/nfc/sync", syncRequest(""))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body[4], "nfc_card_uuid")
}

func TestSync_MalformedProtobuf(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/nfc/sync", "application/x-protobuf", bytes.NewReader([]byte{0x0a, 0x05, 'a'}))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestValidate_Protobuf(t *testing.T) {
	ts, _ := newTestServer(t)
	user := createUser(t, ts, "Ana", "12345678900", "ana@example.com")
	call(t, http.MethodPut, ts.URL+"/api/nfc/link", object{"cpf": "12345678900", "nfc_card_uuid": "CARD-1"})

	get := func(uuid string) (int, map[protowire.Number]any) {
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/nfc/validate/"+uuid, nil)
		require.NoError(t, err)
		req.Header.Set("Accept", "application/x-protobuf")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, decodeFields(t, raw)
	}

	status, body := get("CARD-1")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, uint64(1), body[1])
	assert.EqualValues(t, user["id"], body[2])
	assert.Equal(t, "Ana", body[3])

	status, body = get("CARD-X")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Nil(t, body[1])
	assert.Nil(t, body[2])
}
