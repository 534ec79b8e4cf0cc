package httperr

import (
	"errors"
	"net/http"
)

// The upstream service reports failures in at least two shapes: an envelope
// with a "detail" string, and a generic "message"/"statusMessage" field.
// Local validation failures are plain objects with statusCode/statusMessage.
// Normalize folds all of them into one *Error.
//
// Message precedence, first non-empty wins:
//  1. data.detail
//  2. data.statusMessage or data.message
//  3. top-level statusMessage
//  4. message (including a native error's Error())
//  5. the failure itself, when it is a plain non-empty string
//  6. the caller-supplied fallback
//
// A present-but-empty string never satisfies a rule; upstream 4xx responses
// sometimes omit a human-readable detail and an empty string must never
// surface as the user-visible error.

// extractor pulls an optional message out of a failure value. Returning ""
// means "no match, try the next one".
type extractor func(v any) string

var messageChain = []extractor{
	dataDetail,
	dataMessage,
	topStatusMessage,
	topMessage,
	literalString,
}

// Normalize maps an arbitrary failure value into a uniform *Error.
func Normalize(v any, fallback string) *Error {
	if e := asError(v); e != nil {
		if e.StatusMessage != "" {
			return e
		}
		msg := FromPayload(e.Data, fallback)
		return &Error{StatusCode: statusOf(e, 0), StatusMessage: msg, Data: e.Data, Err: e.Err}
	}

	msg := firstNonEmpty(v, messageChain...)
	if msg == "" {
		msg = fallback
	}
	out := &Error{
		StatusCode:    statusOf(v, http.StatusInternalServerError),
		StatusMessage: msg,
	}
	if data := payloadOf(v); data != nil {
		out.Data = data
	}
	if err, ok := v.(error); ok {
		out.Err = err
	}
	return out
}

// FromPayload runs the data-level extractors against a decoded upstream body.
// Used by the fetch client, which already knows the response status.
func FromPayload(payload any, fallback string) string {
	if msg := firstNonEmpty(payload, payloadDetail, payloadMessage); msg != "" {
		return msg
	}
	return fallback
}

// asError unwraps v down to a typed *Error, following error chains.
func asError(v any) *Error {
	if e, ok := v.(*Error); ok {
		return e
	}
	if err, ok := v.(error); ok {
		var e *Error
		if errors.As(err, &e) {
			return e
		}
	}
	return nil
}

func firstNonEmpty(v any, chain ...extractor) string {
	for _, ex := range chain {
		if msg := ex(v); msg != "" {
			return msg
		}
	}
	return ""
}

// dataDetail matches {data: {detail: "..."}}.
func dataDetail(v any) string {
	return payloadDetail(payloadOf(v))
}

// dataMessage matches {data: {statusMessage|message: "..."}}.
func dataMessage(v any) string {
	return payloadMessage(payloadOf(v))
}

func topStatusMessage(v any) string {
	return stringField(v, "statusMessage")
}

func topMessage(v any) string {
	if msg := stringField(v, "message"); msg != "" {
		return msg
	}
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return ""
}

func literalString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func payloadDetail(payload any) string {
	return stringField(payload, "detail")
}

func payloadMessage(payload any) string {
	if msg := stringField(payload, "statusMessage"); msg != "" {
		return msg
	}
	return stringField(payload, "message")
}

// payloadOf returns the nested structured payload of a failure value, if any.
func payloadOf(v any) any {
	switch f := v.(type) {
	case *Error:
		return f.Data
	case map[string]any:
		if data, ok := f["data"]; ok {
			return data
		}
	}
	return nil
}

func stringField(v any, key string) string {
	m, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// statusOf applies the status precedence: statusCode, else status, else def.
func statusOf(v any, def int) int {
	if e, ok := v.(*Error); ok && e.StatusCode >= 100 {
		return e.StatusCode
	}
	if m, ok := v.(map[string]any); ok {
		if code := intField(m, "statusCode"); code >= 100 {
			return code
		}
		if code := intField(m, "status"); code >= 100 {
			return code
		}
	}
	if def >= 100 {
		return def
	}
	return http.StatusInternalServerError
}

func intField(m map[string]any, key string) int {
	switch n := m[key].(type) {
	case int:
		return n
	case float64:
		// JSON numbers decode as float64.
		return int(n)
	}
	return 0
}
