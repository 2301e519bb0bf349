// Package responseformat encodes solar results as JSON or MessagePack.
package responseformat

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/vmihailenco/msgpack/v5"
)

// Supported encodings
const (
	FormatJSON    = "json"
	FormatMsgPack = "msgpack"
)

// Formatter handles encoding and writing responses in JSON or MessagePack format
type Formatter struct {
	// Indent pretty-prints JSON output when set
	Indent bool
}

// NewFormatter creates a new response formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

// ErrorResponse is the body written for failed requests
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteResponse writes the response in the appropriate format based on the query parameter
// JSON is the default format. MessagePack is used when format=msgpack is specified
func (f *Formatter) WriteResponse(w http.ResponseWriter, req *http.Request, data any, headers map[string]string) error {
	// Set any provided headers first
	for k, v := range headers {
		w.Header().Set(k, v)
	}

	// Always set CORS header
	w.Header().Set("Access-Control-Allow-Origin", "*")

	format := FormatJSON
	if req.URL.Query().Get("format") == FormatMsgPack {
		format = FormatMsgPack
	}
	w.Header().Set("Content-Type", ContentType(format))

	return f.Encode(w, format, data)
}

// WriteError writes an ErrorResponse with the given HTTP status
func (f *Formatter) WriteError(w http.ResponseWriter, req *http.Request, status int, msg string) error {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	format := FormatJSON
	if req.URL.Query().Get("format") == FormatMsgPack {
		format = FormatMsgPack
	}
	w.Header().Set("Content-Type", ContentType(format))
	w.WriteHeader(status)

	return f.Encode(w, format, ErrorResponse{Error: msg})
}

// Encode writes data to w in the named format
func (f *Formatter) Encode(w io.Writer, format string, data any) error {
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		if f.Indent {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(data)
	case FormatMsgPack:
		encoder := msgpack.NewEncoder(w)
		encoder.SetCustomStructTag("json") // Use json tags for MessagePack
		return encoder.Encode(data)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// ContentType returns the MIME type for a format
func ContentType(format string) string {
	if format == FormatMsgPack {
		return "application/x-msgpack"
	}
	return "application/json"
}
