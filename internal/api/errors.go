package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/url"
	"strings"

	"github.com/and161185/fastcite/internal/errs"
)

// Kind is the closed set of failure classes the views react to.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindValidation
	KindOverloaded
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindOverloaded:
		return "overloaded"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Kind    Kind
	Message string
}

func (e *APIError) Error() string { return e.Message }

// Is maps the error kind onto the shared sentinels.
func (e *APIError) Is(target error) bool {
	switch e.Kind {
	case KindUnauthorized:
		return target == errs.ErrUnauthorized
	case KindForbidden:
		return target == errs.ErrForbidden
	case KindNotFound:
		return target == errs.ErrNotFound
	case KindValidation:
		return target == errs.ErrValidation
	case KindOverloaded:
		return target == errs.ErrOverloaded
	case KindNetwork:
		return target == errs.ErrNetwork
	}
	return false
}

var sentinelKinds = []struct {
	err  error
	kind Kind
}{
	{errs.ErrUnauthorized, KindUnauthorized},
	{errs.ErrNoSession, KindUnauthorized},
	{errs.ErrForbidden, KindForbidden},
	{errs.ErrNotFound, KindNotFound},
	{errs.ErrValidation, KindValidation},
	{errs.ErrOverloaded, KindOverloaded},
	{errs.ErrNetwork, KindNetwork},
}

// KindOf classifies any error returned by the client or by a caller.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	for _, s := range sentinelKinds {
		if errors.Is(err, s.err) {
			return s.kind
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindNetwork
	}
	var ne net.Error
	var ue *url.Error
	if errors.As(err, &ne) || errors.As(err, &ue) {
		return KindNetwork
	}
	return classifyMessage(err.Error())
}

// classifyMessage is the last resort for errors that carry no status.
func classifyMessage(msg string) Kind {
	low := strings.ToLower(msg)
	switch {
	case strings.Contains(low, "overloaded"), strings.Contains(msg, "503"), strings.Contains(msg, "UNAVAILABLE"):
		return KindOverloaded
	case strings.Contains(low, "network"), strings.Contains(low, "connection refused"), strings.Contains(low, "no such host"):
		return KindNetwork
	}
	return KindUnknown
}

func kindForStatus(status int, msg string) Kind {
	switch {
	case status == 401:
		return KindUnauthorized
	case status == 403:
		return KindForbidden
	case status == 404:
		return KindNotFound
	case status == 400 || status == 422:
		return KindValidation
	case status == 503:
		return KindOverloaded
	case status >= 500:
		if classifyMessage(msg) == KindOverloaded {
			return KindOverloaded
		}
	}
	return KindUnknown
}

// errorMessage extracts a human message from the common error body shapes:
// {"detail": "..."}, {"detail": [{"msg": "..."}]}, {"error": "..."} and
// {"error": {"message": "..."}}.
func errorMessage(body []byte) string {
	var env struct {
		Detail json.RawMessage `json:"detail"`
		Error  json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &env) != nil {
		return ""
	}
	if m := rawMessage(env.Detail); m != "" {
		return m
	}
	return rawMessage(env.Error)
}

func rawMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
		Msg     string `json:"msg"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		if obj.Message != "" {
			return obj.Message
		}
		if obj.Msg != "" {
			return obj.Msg
		}
	}
	var list []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(raw, &list) == nil {
		parts := make([]string, 0, len(list))
		for _, it := range list {
			if it.Msg != "" {
				parts = append(parts, it.Msg)
			}
		}
		return strings.Join(parts, "; ")
	}
	return ""
}
