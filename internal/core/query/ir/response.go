package ir

import (
	"encoding/json"

	"github.com/satishbabariya/prisma-engine/internal/core/coreerrors"
)

// Response is the outcome of one operation: a payload under its key, or a
// structured error.
type Response struct {
	Key  string
	Data any
	Err  *coreerrors.Error
}

// ErrorResponse builds the error response for an operation. Errors that
// were never classified are reported as execution errors.
func ErrorResponse(key string, err error) *Response {
	e, ok := coreerrors.As(err)
	if !ok {
		e = coreerrors.Executionf("", "%s", err.Error()).WithCause(err)
	}
	return &Response{Key: key, Err: e}
}

// IsError reports whether the response carries an error.
func (r *Response) IsError() bool { return r.Err != nil }

type userFacingError struct {
	IsPanic   bool           `json:"is_panic"`
	Message   string         `json:"message"`
	Meta      map[string]any `json:"meta"`
	ErrorCode string         `json:"error_code,omitempty"`
}

type errorEntry struct {
	Error           string          `json:"error"`
	UserFacingError userFacingError `json:"user_facing_error"`
}

// MarshalJSON renders {"data":{key:payload}} or {"errors":[...]}.
func (r *Response) MarshalJSON() ([]byte, error) {
	if r.Err != nil {
		meta := r.Err.Meta
		if meta == nil {
			meta = map[string]any{}
		}
		if r.Err.Model != "" {
			if _, ok := meta["modelName"]; !ok {
				meta = withKey(meta, "modelName", r.Err.Model)
			}
		}
		return json.Marshal(struct {
			Errors []errorEntry `json:"errors"`
		}{
			Errors: []errorEntry{{
				Error: r.Err.Error(),
				UserFacingError: userFacingError{
					Message:   r.Err.Message,
					Meta:      meta,
					ErrorCode: r.Err.Code,
				},
			}},
		})
	}
	data := NewObject(1)
	data.Set(r.Key, r.Data)
	return json.Marshal(struct {
		Data *Object `json:"data"`
	}{Data: data})
}

func withKey(m map[string]any, k string, v any) map[string]any {
	out := make(map[string]any, len(m)+1)
	for key, val := range m {
		out[key] = val
	}
	out[k] = v
	return out
}
