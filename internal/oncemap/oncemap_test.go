// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package oncemap

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRegisterDedup(t *testing.T) {
	m := New[string, int]()

	const n = 64
	var (
		wg      sync.WaitGroup
		winners int32
		results = make([]int, n)
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			if m.Register("foo") {
				atomic.AddInt32(&winners, 1)
				m.Done("foo", 42)
			}
			v, err := m.Wait(context.Background(), "foo")
			if err != nil {
				t.Errorf("unexpected error %s", err)
				return
			}
			results[i] = v
		}(i)
	}
	wg.Wait()

	if winners != 1 {
		t.Fatalf("expected exactly one registration to win, got %d", winners)
	}
	for i, v := range results {
		if v != 42 {
			t.Errorf("waiter %d saw %d, expected 42", i, v)
		}
	}
}

func TestWaitBeforeRegister(t *testing.T) {
	m := New[string, string]()

	got := make(chan string)
	go func() {
		v, err := m.Wait(context.Background(), "bar")
		if err != nil {
			t.Errorf("unexpected error %s", err)
		}
		got <- v
	}()

	// Give the waiter a chance to park before the key is claimed.
	time.Sleep(10 * time.Millisecond)
	if !m.Register("bar") {
		t.Fatal("waiting must not claim the key")
	}
	if m.Register("bar") {
		t.Fatal("second registration should fail")
	}
	m.Done("bar", "baz")

	select {
	case v := <-got:
		if v != "baz" {
			t.Errorf("expected baz, got %s", v)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("waiter was never released")
	}
}

func TestWaitCancelled(t *testing.T) {
	m := New[string, int]()
	m.Register("foo")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Wait(ctx, "foo"); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestGet(t *testing.T) {
	m := New[string, int]()
	if _, ok := m.Get("foo"); ok {
		t.Error("unknown key should not be found")
	}
	m.Register("foo")
	if _, ok := m.Get("foo"); ok {
		t.Error("registered but unfulfilled key should not be found")
	}
	if !m.Registered("foo") || m.Registered("bar") {
		t.Error("Registered misreports")
	}
	m.Done("foo", 7)
	if v, ok := m.Get("foo"); !ok || v != 7 {
		t.Errorf("expected 7, got %d (%t)", v, ok)
	}
	if keys := m.Keys(); len(keys) != 1 || keys[0] != "foo" {
		t.Errorf("unexpected keys %v", keys)
	}
}

func TestDoneTwicePanics(t *testing.T) {
	m := New[string, int]()
	m.Done("foo", 1)

	defer func() {
		if recover() == nil {
			t.Error("expected a panic on the second Done")
		}
	}()
	m.Done("foo", 2)
}
