package storage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestRemoteStoreSaveArticle(t *testing.T) {
	var gotPath, gotAuth string
	var payload articlePayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if r.Method != http.MethodPut {
			t.Errorf("method = %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	store := NewRemoteStore(srv.URL, "secret")
	defer store.Close()

	doc := sampleDoc()
	if err := store.SaveArticle(context.Background(), doc, sampleChunks(doc)); err != nil {
		t.Fatalf("SaveArticle: %v", err)
	}

	if gotPath != "/articles/Economy_of_France" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("auth = %q", gotAuth)
	}
	if payload.Document == nil || payload.Document.ArticleID != doc.ArticleID {
		t.Errorf("payload document = %+v", payload.Document)
	}
	if len(payload.Chunks) != 1 || payload.Chunks[0].ID != "abcdef0123456789" {
		t.Errorf("payload chunks = %+v", payload.Chunks)
	}
}

func TestRemoteStoreServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "db down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	store := NewRemoteStore(srv.URL, "")
	doc := sampleDoc()
	err := store.SaveArticle(context.Background(), doc, nil)
	if err == nil {
		t.Fatal("5xx response did not error")
	}
	if !IsTransient(err) {
		t.Errorf("5xx error not transient: %v", err)
	}
}

func TestRemoteStoreClientErrorIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad payload", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	store := NewRemoteStore(srv.URL, "")
	doc := sampleDoc()
	err := store.SaveArticle(context.Background(), doc, nil)
	if err == nil {
		t.Fatal("4xx response did not error")
	}
	if IsTransient(err) {
		t.Errorf("4xx error marked transient: %v", err)
	}
}

func TestRemoteStoreNetworkErrorIsTransient(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	srv.Close() // connection refused from here on

	store := NewRemoteStore(srv.URL, "")
	doc := sampleDoc()
	err := store.SaveArticle(context.Background(), doc, nil)
	if err == nil {
		t.Fatal("request to closed server succeeded")
	}
	if !IsTransient(err) {
		t.Errorf("network error not transient: %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("closed server got %d hits", hits.Load())
	}
}
