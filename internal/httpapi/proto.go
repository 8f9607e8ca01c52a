package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"google.golang.org/protobuf/proto"

	"github.com/opsdesk/attendance/internal/attendance/types"
)

// maxRequestBody caps JSON request bodies. The largest request (bulk mark)
// is well under 1 KiB.
const maxRequestBody = 4096

const protobufType = "application/x-protobuf"

// wantsProtobuf reports whether the client asked for a protobuf response.
func wantsProtobuf(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		if mt == protobufType || mt == "application/protobuf" {
			return true
		}
	}
	return false
}

// respond writes payload as JSON, or as a google.protobuf.Struct when the
// client negotiated protobuf.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, payload any) {
	if !wantsProtobuf(r) {
		writeJSON(w, status, payload)
		return
	}
	msg, err := types.ToStruct(payload)
	if err != nil {
		s.logger.Printf("protobuf encode: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	writeProto(w, status, msg)
}

// writeProto marshals msg and writes it with the given HTTP status.
func writeProto(w http.ResponseWriter, status int, msg proto.Message) {
	data, err := proto.Marshal(msg)
	if err != nil {
		http.Error(w, "proto marshal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", protobufType)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// decode reads a JSON body into dst and validates it. An empty body is
// accepted when optional is set. On failure the error response has already
// been written.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil && !(optional && errors.Is(err, io.EOF)) {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", validationMessage(err))
		return false
	}
	return true
}
