// Copyright 2025 Flant JSC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package watch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

type fakeWatcher struct {
	mu     sync.Mutex
	added  []string
	addErr error
	closed bool
	events chan fsnotify.Event
	errs   chan error
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{events: make(chan fsnotify.Event), errs: make(chan error)}
}

func (f *fakeWatcher) Add(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, name)
	return f.addErr
}

func (f *fakeWatcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeWatcher) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeWatcher) Events() <-chan fsnotify.Event { return f.events }
func (f *fakeWatcher) Errors() <-chan error          { return f.errs }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func useFake(t *testing.T, fake *fakeWatcher) {
	t.Helper()
	orig := newWatcher
	newWatcher = func() (watcher, error) { return fake, nil }
	t.Cleanup(func() { newWatcher = orig })
}

func TestChangesCoalescesWakeups(t *testing.T) {
	fake := newFakeWatcher()
	useFake(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := Changes(ctx, discardLogger(), "/run/precheck/events.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.added) != 1 || fake.added[0] != "/run/precheck" {
		t.Fatalf("expected directory watch, got %v", fake.added)
	}

	fake.events <- fsnotify.Event{Name: "/run/precheck/events.yaml", Op: fsnotify.Chmod}
	fake.events <- fsnotify.Event{Name: "/run/precheck/events.yaml", Op: fsnotify.Write}
	fake.events <- fsnotify.Event{Name: "/run/precheck/events.yaml", Op: fsnotify.Write}
	fake.errs <- errors.New("overflow")

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("expected a wakeup")
	}
	select {
	case <-ch:
		t.Fatalf("redundant wakeups must be dropped")
	default:
	}

	cancel()
	deadline := time.Now().Add(time.Second)
	for !fake.isClosed() {
		if time.Now().After(deadline) {
			t.Fatalf("watcher was not closed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestChangesIgnoresSiblingFiles(t *testing.T) {
	fake := newFakeWatcher()
	useFake(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := Changes(ctx, discardLogger(), "/run/precheck/./events.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fake.events <- fsnotify.Event{Name: "/run/precheck/other.log", Op: fsnotify.Write}
	fake.events <- fsnotify.Event{Name: "/run/precheck/.events.yaml.swp", Op: fsnotify.Create}
	// The loop has consumed both events once it receives the error.
	fake.errs <- errors.New("overflow")
	select {
	case <-ch:
		t.Fatalf("changes of other files must not wake")
	default:
	}

	fake.events <- fsnotify.Event{Name: "/run/precheck/events.yaml", Op: fsnotify.Create}
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("expected a wakeup")
	}
}

func TestChangesAddError(t *testing.T) {
	fake := newFakeWatcher()
	fake.addErr = errors.New("no such directory")
	useFake(t, fake)

	if _, err := Changes(context.Background(), discardLogger(), "/missing/events.yaml"); err == nil {
		t.Fatalf("expected error")
	}
	if !fake.isClosed() {
		t.Fatalf("watcher must be closed on error")
	}
}

func TestChangesWatcherError(t *testing.T) {
	orig := newWatcher
	newWatcher = func() (watcher, error) { return nil, errors.New("too many open files") }
	t.Cleanup(func() { newWatcher = orig })

	if _, err := Changes(context.Background(), discardLogger(), "events.yaml"); err == nil {
		t.Fatalf("expected error")
	}
}
