// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestCode(t *testing.T) {
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/request-code" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if err := c.RequestCode(context.Background(), "dev@example.com"); err != nil {
		t.Fatalf("RequestCode: %v", err)
	}
	if gotBody["email"] != "dev@example.com" {
		t.Errorf("email not sent: %+v", gotBody)
	}
}

func TestRequestCodeRejectedEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"detail":"unknown address"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).RequestCode(context.Background(), "nobody@example.com")
	if !errors.Is(err, ErrEmailRejected) {
		t.Fatalf("expected ErrEmailRejected, got %v", err)
	}
}

func TestVerifyCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/verify-code" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "dev@example.com" || body["code"] != "482913" {
			t.Errorf("unexpected body: %+v", body)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"token":      "tok-abc123",
			"expires_in": 604800,
		})
	}))
	defer srv.Close()

	cred, err := NewClient(srv.URL).VerifyCode(context.Background(), "dev@example.com", "482913")
	if err != nil {
		t.Fatalf("VerifyCode: %v", err)
	}
	if cred.Token != "tok-abc123" {
		t.Errorf("token = %q", cred.Token)
	}
	if cred.ExpiresIn != 604800 {
		t.Errorf("expires_in = %d", cred.ExpiresIn)
	}
}

func TestVerifyCodeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"detail":"invalid code"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).VerifyCode(context.Background(), "dev@example.com", "000000")
	if !errors.Is(err, ErrCodeRejected) {
		t.Fatalf("expected ErrCodeRejected, got %v", err)
	}
}

func TestVerifyCodeEmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"token":"","expires_in":0}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).VerifyCode(context.Background(), "dev@example.com", "482913")
	if err == nil {
		t.Fatal("expected an error for an empty token")
	}
}

func TestVerifyCodeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).VerifyCode(context.Background(), "dev@example.com", "482913")
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if perr.Status != http.StatusInternalServerError {
		t.Errorf("status = %d", perr.Status)
	}
}
