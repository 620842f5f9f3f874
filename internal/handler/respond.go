package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/tripyplan/tripy-auth/internal/model"
)

const maxBodyBytes = 1 << 20 // 1MB

var errUnsupportedBody = errors.New("unsupported content type")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func errorResponse(msg string) model.MessageResponse {
	return model.MessageResponse{Message: msg}
}

// decodeBody reads a JSON or urlencoded body. JSON goes into dst; form values
// are handed to fromForm. An empty JSON body leaves dst untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, fromForm func(url.Values)) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return err
		}
		fromForm(r.PostForm)
		return nil
	case "application/json", "":
		err := json.NewDecoder(r.Body).Decode(dst)
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	default:
		return errUnsupportedBody
	}
}

// writeDecodeError answers a decodeBody failure.
func writeDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse("request body too large"))
	case errors.Is(err, errUnsupportedBody):
		writeJSON(w, http.StatusUnsupportedMediaType, errorResponse(err.Error()))
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
	}
}
