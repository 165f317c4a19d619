// internal/storage/memory/memory_test.go
package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/ccviewer/navigator/internal/config"
)

func TestNew(t *testing.T) {
	b := New(config.MemoryConfig{Size: 8})

	if b == nil {
		t.Fatal("New returned nil")
	}
	if b.cfg.Size != 8 {
		t.Errorf("expected Size=8, got %d", b.cfg.Size)
	}
	if b.cache != nil {
		t.Error("cache should not be allocated before Init")
	}
}

func TestInitAndClose(t *testing.T) {
	b := New(config.MemoryConfig{})

	if err := b.Init(); err != nil {
		t.Errorf("Init failed: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestGetPut(t *testing.T) {
	b := New(config.MemoryConfig{Size: 4})
	if err := b.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	ctx := context.Background()

	if _, found, err := b.Get(ctx, "missing"); err != nil || found {
		t.Errorf("expected miss, got found=%v err=%v", found, err)
	}

	if err := b.Put(ctx, "a", []byte(`{"x":1}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	data, found, err := b.Get(ctx, "a")
	if err != nil || !found {
		t.Fatalf("expected hit, got found=%v err=%v", found, err)
	}
	if string(data) != `{"x":1}` {
		t.Errorf("unexpected data %s", data)
	}
}

func TestPutCopiesInput(t *testing.T) {
	b := New(config.MemoryConfig{Size: 4})
	_ = b.Init()
	ctx := context.Background()

	buf := []byte("abc")
	_ = b.Put(ctx, "k", buf)
	buf[0] = 'z'

	data, _, _ := b.Get(ctx, "k")
	if string(data) != "abc" {
		t.Errorf("stored value changed with caller buffer: %s", data)
	}

	data[1] = 'z'
	again, _, _ := b.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored value changed with returned buffer: %s", again)
	}
}

func TestEviction(t *testing.T) {
	b := New(config.MemoryConfig{Size: 2})
	_ = b.Init()
	ctx := context.Background()

	_ = b.Put(ctx, "a", []byte("1"))
	_ = b.Put(ctx, "b", []byte("2"))
	_, _, _ = b.Get(ctx, "a") // a is now most recently used
	_ = b.Put(ctx, "c", []byte("3"))

	if _, found, _ := b.Get(ctx, "b"); found {
		t.Error("expected b to be evicted")
	}
	if _, found, _ := b.Get(ctx, "a"); !found {
		t.Error("expected a to survive")
	}
	if b.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", b.Len())
	}
}

func TestDefaultSize(t *testing.T) {
	b := New(config.MemoryConfig{Size: 0})
	_ = b.Init()
	ctx := context.Background()

	for i := 0; i < DefaultSize+10; i++ {
		_ = b.Put(ctx, fmt.Sprintf("k%d", i), []byte("v"))
	}
	if b.Len() != DefaultSize {
		t.Errorf("expected %d entries, got %d", DefaultSize, b.Len())
	}
}

func TestUseBeforeInit(t *testing.T) {
	b := New(config.MemoryConfig{})
	ctx := context.Background()

	if _, _, err := b.Get(ctx, "k"); err == nil {
		t.Error("expected error from Get before Init")
	}
	if err := b.Put(ctx, "k", nil); err == nil {
		t.Error("expected error from Put before Init")
	}
}

func TestCloseClears(t *testing.T) {
	b := New(config.MemoryConfig{Size: 4})
	_ = b.Init()
	_ = b.Put(context.Background(), "k", []byte("v"))
	_ = b.Close()

	if b.Len() != 0 {
		t.Errorf("expected empty cache after Close, got %d", b.Len())
	}
}

func TestConcurrentAccess(t *testing.T) {
	b := New(config.MemoryConfig{Size: 16})
	_ = b.Init()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", n%5)
			_ = b.Put(ctx, key, []byte("v"))
			_, _, _ = b.Get(ctx, key)
		}(i)
	}
	wg.Wait()

	if b.Len() != 5 {
		t.Errorf("expected 5 entries, got %d", b.Len())
	}
}
