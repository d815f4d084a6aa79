package api

import (
	"encoding/json"
	"net/http"
	"reflect"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// encodeEnvelope builds the uniform response envelope. `status` is "success"
// exactly when the HTTP status is 200; data is null on error. `count` is the
// element count for lists, 1 for a non-null scalar, and 0 for null.
func encodeEnvelope(httpStatus int, data any, errMsg string) ([]byte, error) {
	var e jx.Encoder

	e.ObjStart()
	e.FieldStart("status")
	if httpStatus == http.StatusOK {
		e.Str("success")
	} else {
		e.Str("error")
	}

	count := 0
	e.FieldStart("data")
	if httpStatus == http.StatusOK && data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		e.Raw(raw)
		count = countOf(data)
	} else {
		e.Null()
	}

	e.FieldStart("error")
	if errMsg == "" {
		e.Null()
	} else {
		e.Str(errMsg)
	}

	e.FieldStart("count")
	e.Int(count)
	e.ObjEnd()

	return e.Bytes(), nil
}

func countOf(data any) int {
	v := reflect.ValueOf(data)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		return v.Len()
	default:
		return 1
	}
}

// writeEnvelope writes the envelope with the given HTTP status. Encoding
// failures degrade to a plain 500; the status line is not yet written at that
// point, so the fallback is always delivered.
func writeEnvelope(w http.ResponseWriter, r *http.Request, httpStatus int, data any, errMsg string) {
	body, err := encodeEnvelope(httpStatus, data, errMsg)
	if err != nil {
		zctx.From(r.Context()).Error("encode response envelope", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeRawEnvelope(w, httpStatus, body)
}

func writeRawEnvelope(w http.ResponseWriter, httpStatus int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_, _ = w.Write(body)
}
