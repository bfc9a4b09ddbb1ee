package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"diagsvc/internal/apperr"
	"diagsvc/internal/models"
)

// Echo parses the body as JSON and returns it with the request headers and
// method. An empty body is an empty object.
func (h *SystemHandlers) Echo(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			_ = c.Error(apperr.ClientStatus(http.StatusRequestEntityTooLarge, "Request body too large", err))
			return
		}
		_ = c.Error(apperr.Internal(fmt.Errorf("read body: %w", err)))
		return
	}

	var payload any = map[string]any{}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 {
		if err := json.Unmarshal(trimmed, &payload); err != nil {
			_ = c.Error(apperr.Client("Invalid JSON", err))
			return
		}
	}

	respond(c, models.Success(gin.H{
		"echo":    payload,
		"headers": EchoHeaders(c.Request),
		"method":  c.Request.Method,
	}))
}

// cgiOnlyHeaders are exposed by CGI-style servers without the HTTP_ prefix
// and are therefore not part of the echoed header set.
var cgiOnlyHeaders = map[string]bool{
	"CONTENT_TYPE":   true,
	"CONTENT_LENGTH": true,
}

// EchoHeaders maps request headers through their CGI variable names and back
// (User-Agent -> HTTP_USER_AGENT -> User-Agent), so names are normalised the
// same way regardless of how the client cased them. Host is included.
func EchoHeaders(r *http.Request) map[string]string {
	out := make(map[string]string, len(r.Header)+1)
	if r.Host != "" {
		out["Host"] = r.Host
	}
	keys := make([]string, 0, len(r.Header))
	for k := range r.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cgi := CGIName(k)
		if cgiOnlyHeaders[cgi] {
			continue
		}
		out[HeaderFromCGI("HTTP_"+cgi)] = strings.Join(r.Header[k], ", ")
	}
	return out
}

// CGIName converts a header name to its CGI form without the prefix,
// e.g. "x-foo" -> "X_FOO".
func CGIName(header string) string {
	return strings.ToUpper(strings.ReplaceAll(header, "-", "_"))
}

// HeaderFromCGI strips the HTTP_ prefix and title-cases each word,
// e.g. "HTTP_X_FOO" -> "X-Foo".
func HeaderFromCGI(key string) string {
	parts := strings.Split(strings.ToLower(strings.TrimPrefix(key, "HTTP_")), "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "-")
}
