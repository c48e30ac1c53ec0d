package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
)

func TestErrorHelpers(t *testing.T) {
	err := NewAlreadyExists()
	if !IsAlreadyExists(err) || !IsBadRequest(err) {
		t.Fatal("expected already exists to be a bad request")
	}

	wrapped := WrapInternal(errors.New("boom"), "ctx")
	if !IsInternal(wrapped) {
		t.Fatal("expected internal")
	}

	if !IsTokenExpired(NewTokenExpired()) || !IsUnauthorized(NewTokenExpired()) {
		t.Fatal("expected expired token to be unauthorized")
	}
}

func TestWrapStorageKeepsApplicationErrors(t *testing.T) {
	nf := NewNotFound("User with id: 1 does not exist")
	if got := WrapStorage(nf, "get"); !IsNotFound(got) || IsStorageUnavailable(got) {
		t.Fatalf("application error must pass through, got %v", got)
	}

	cause := errors.New("dial tcp: connection refused")
	got := WrapStorage(cause, "get")
	if !IsStorageUnavailable(got) || !errors.Is(got, cause) {
		t.Fatalf("expected storage error wrapping cause, got %v", got)
	}
	if WrapStorage(nil, "noop") != nil {
		t.Fatal("nil must stay nil")
	}
}

func TestRender(t *testing.T) {
	status, body := Render(NewInvalidCredentials())
	if status != http.StatusBadRequest || body.Message != MsgInvalidCredentials || body.ErrorCode != nil {
		t.Fatalf("unexpected render: %d %+v", status, body)
	}

	status, body = Render(WrapStorage(errors.New("password authentication failed for user"), "query"))
	if status != http.StatusServiceUnavailable || body.Message != MsgStorageUnavailable {
		t.Fatalf("storage errors must collapse, got %d %+v", status, body)
	}

	status, body = Render(NewInvalidFilter("unknown field \"nope\""))
	if status != http.StatusBadRequest || body.ErrorCode == nil || *body.ErrorCode != "invalid_filter" {
		t.Fatalf("unexpected render: %d %+v", status, body)
	}

	status, body = Render(errors.New("plain"))
	if status != http.StatusInternalServerError || body.Message != MsgInternal {
		t.Fatalf("unexpected render: %d %+v", status, body)
	}
}

func TestBody_NumericCodeIsAJSONNumber(t *testing.T) {
	_, body := Render(WrapStorage(errors.New("connection refused"), "query"))
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(raw); got != `{"error_code":503,"message":"`+MsgStorageUnavailable+`"}` {
		t.Fatalf("unexpected payload %s", got)
	}

	var back Body
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatal(err)
	}
	if back.ErrorCode == nil || *back.ErrorCode != "503" {
		t.Fatalf("round trip lost the code: %+v", back)
	}

	_, body = Render(NewInvalidFilter("bad"))
	raw, _ = json.Marshal(body)
	if got := string(raw); got != `{"error_code":"invalid_filter","message":"`+body.Message+`"}` {
		t.Fatalf("unexpected payload %s", got)
	}

	raw, _ = json.Marshal(Body{Message: "x"})
	if string(raw) != `{"error_code":null,"message":"x"}` {
		t.Fatalf("unexpected payload %s", raw)
	}
}
