// Package wire defines the body encoding of the execute operation.
//
// Requests and successful responses are msgpack, which keeps the
// integer/float distinction of parameters and results. Errors are JSON.
package wire

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/kailas-cloud/nosqlite/internal/domain"
	"github.com/kailas-cloud/nosqlite/internal/domain/value"
)

// Route of the execute operation.
const ExecutePath = "/v1/execute"

// Content types.
const (
	ContentTypeMsgpack = "application/msgpack"
	ContentTypeJSON    = "application/json"
)

// Error codes carried in ErrorResponse.Code.
const (
	CodeBadRequest       = "bad_request"
	CodeValidationFailed = "validation_failed"
	CodeUnauthorized     = "unauthorized"
	CodeStorageError     = "storage_error"
	CodeUnavailable      = "unavailable"
	CodeTimeout          = "timeout"
	CodeInternalError    = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Statement string `json:"statement,omitempty"`
	Field     string `json:"field,omitempty"`
}

// Marshal encodes v as msgpack.
func Marshal(v any) ([]byte, error) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode msgpack: %w", err)
	}
	return b, nil
}

func unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode msgpack: %w", err)
	}
	return nil
}

// DecodeRequest decodes a request body and normalizes parameter integers.
func DecodeRequest(data []byte) (domain.Request, error) {
	var req domain.Request
	if err := unmarshal(data, &req); err != nil {
		return domain.Request{}, err
	}
	for i := range req.Commands {
		normalizeRow(req.Commands[i].Args)
		for _, row := range req.Commands[i].Rows {
			normalizeRow(row)
		}
	}
	return req, nil
}

// DecodeResponse decodes a response body and normalizes result integers.
func DecodeResponse(data []byte) (domain.Response, error) {
	var resp domain.Response
	if err := unmarshal(data, &resp); err != nil {
		return domain.Response{}, err
	}
	for _, row := range resp.Rows {
		normalizeRow(row)
	}
	return resp, nil
}

func normalizeRow(row []any) {
	for i := range row {
		row[i] = value.NormalizeInts(row[i])
	}
}
