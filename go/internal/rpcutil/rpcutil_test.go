package rpcutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"

	"github.com/mcdev12/quizparty/go/internal/apperr"
)

func TestErrorMapsKindsAndHidesInternals(t *testing.T) {
	err := Error("/x", fmt.Errorf("failed to join: %w", apperr.Precondition("party is full")))
	var ce *connect.Error
	if !errors.As(err, &ce) {
		t.Fatalf("expected connect error, got %T", err)
	}
	if ce.Code() != connect.CodeFailedPrecondition || ce.Message() != "party is full" {
		t.Fatalf("got %v %q", ce.Code(), ce.Message())
	}

	err = Error("/x", errors.New("pq: relation does not exist"))
	if !errors.As(err, &ce) {
		t.Fatalf("expected connect error, got %T", err)
	}
	if ce.Code() != connect.CodeInternal || ce.Message() != "internal error" {
		t.Fatalf("got %v %q", ce.Code(), ce.Message())
	}
}

func TestWriteErrorShape(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, apperr.Removed())

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.OK || body.Error != "removed" {
		t.Fatalf("body = %+v", body)
	}
}

func TestCodecToleratesEmptyBody(t *testing.T) {
	var v struct{ A int }
	if err := (Codec{}).Unmarshal(nil, &v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAccountIDAndParseID(t *testing.T) {
	h := http.Header{}
	if AccountID(h) != nil {
		t.Fatal("expected anonymous caller")
	}
	h.Set(AccountHeader, " acct-1 ")
	if got := AccountID(h); got == nil || *got != "acct-1" {
		t.Fatalf("AccountID = %v", got)
	}

	if _, err := ParseID("party id", "nope"); !apperr.Is(err, apperr.KindInvalid) {
		t.Fatalf("ParseID err = %v", err)
	}
}
