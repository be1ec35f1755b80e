// Package rpcutil holds the connect plumbing shared by the party services:
// a JSON codec for plain Go message structs, procedure naming and error mapping.
package rpcutil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizparty/go/internal/apperr"
)

// ServiceName is the fully-qualified connect service every party procedure lives under.
const ServiceName = "quizparty.v1.PartyService"

// AccountHeader carries the account id asserted by the upstream auth proxy.
const AccountHeader = "X-Account-ID"

// Procedure returns the connect path for a method of the party service.
func Procedure(method string) string {
	return "/" + ServiceName + "/" + method
}

// AccountID returns the caller's account id, or nil for anonymous callers.
func AccountID(h http.Header) *string {
	id := strings.TrimSpace(h.Get(AccountHeader))
	if id == "" {
		return nil
	}
	return &id
}

// ParseID parses a uuid field of a request payload.
func ParseID(field, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil, apperr.Invalidf("invalid "+field, err)
	}
	return id, nil
}

// Codec marshals request/response structs as JSON. It replaces connect's
// built-in "json" codec, which only accepts protobuf messages.
type Codec struct{}

var _ connect.Codec = Codec{}

func (Codec) Name() string { return "json" }

func (Codec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

// OKResponse acknowledges a mutation with no other payload.
type OKResponse struct {
	OK bool `json:"ok"`
}

// Handle registers a unary procedure on mux.
func Handle[Req, Res any](
	mux *http.ServeMux,
	method string,
	fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error),
) {
	procedure := Procedure(method)
	mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, connect.WithCodec(Codec{})))
}

// NewClient builds a client for one party procedure. Used by tests and tooling.
func NewClient[Req, Res any](httpClient connect.HTTPClient, baseURL, method string) *connect.Client[Req, Res] {
	return connect.NewClient[Req, Res](httpClient, baseURL+Procedure(method), connect.WithCodec(Codec{}))
}

// Error converts an app error into a connect error. Internal errors are
// logged here and replaced with a generic message.
func Error(procedure string, err error) error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}
	code := apperr.Code(err)
	if code == connect.CodeInternal {
		log.Error().Err(err).Str("procedure", procedure).Msg("request failed")
	}
	return connect.NewError(code, errors.New(apperr.ReasonOf(err)))
}

// WriteJSON writes v as a JSON response body with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// WriteError writes the {ok:false,error} shape used by the plain HTTP endpoints.
func WriteError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}
	WriteJSON(w, status, map[string]any{
		"ok":    false,
		"error": apperr.ReasonOf(err),
	})
}
