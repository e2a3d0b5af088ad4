package server

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestWatchReloadsOnChange(t *testing.T) {
	f := newFixture(t, goodDoc)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.srv.Watch(ctx) }()

	// The watcher starts asynchronously, so keep touching the file until a
	// reload lands.
	deadline := time.Now().Add(5 * time.Second)
	for f.srv.Current() == nil {
		if time.Now().After(deadline) {
			t.Fatal("document change never triggered a reload")
		}
		if err := os.WriteFile(f.docPath, []byte(goodDoc), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(200 * time.Millisecond)
	}
	if got := f.srv.Current().Len(); got != 2 {
		t.Errorf("current set has %d servers, want 2", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not stop after cancel")
	}
}

func TestWatchRejectsRemoteDocument(t *testing.T) {
	f := newFixture(t, goodDoc)
	f.srv.cfg.Document.Path = "https://example.com/mcp_config.json"

	if err := f.srv.Watch(context.Background()); err == nil {
		t.Fatal("watching a remote document should fail")
	}
}
