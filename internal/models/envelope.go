package models

import (
	"encoding/json"
	"net/http"
	"time"
)

// TimestampLayout is the format of the envelope timestamp: RFC3339 in UTC
// with second precision.
const TimestampLayout = time.RFC3339

// Envelope is the JSON wrapper shared by every enveloped endpoint. Exactly one
// of Data and ErrorMessage is meaningful, selected by Success.
type Envelope struct {
	Success      bool
	Data         any
	ErrorMessage string
	StatusCode   int
}

// successBody and failureBody fix the serialized key order. The two shapes use
// different key names on purpose; clients depend on both.
type successBody struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}

type failureBody struct {
	Error      bool   `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Timestamp  string `json:"timestamp"`
}

// Success wraps data in a 200 envelope.
func Success(data any) Envelope {
	return Envelope{Success: true, Data: data, StatusCode: http.StatusOK}
}

// Failure builds an error envelope carrying message and status.
func Failure(message string, status int) Envelope {
	return Envelope{ErrorMessage: message, StatusCode: status}
}

// now is swapped in tests.
var now = time.Now

// MarshalJSON stamps the envelope with the serialization instant.
func (e Envelope) MarshalJSON() ([]byte, error) {
	ts := now().UTC().Format(TimestampLayout)
	if e.Success {
		return json.Marshal(successBody{Success: true, Data: e.Data, Timestamp: ts})
	}
	return json.Marshal(failureBody{
		Error:      true,
		Message:    e.ErrorMessage,
		StatusCode: e.StatusCode,
		Timestamp:  ts,
	})
}
