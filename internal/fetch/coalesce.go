package fetch

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

type coalescing struct {
	next  Fetcher
	group singleflight.Group

	mu     sync.Mutex
	calls  map[string]*sharedCall
	nextID uint64
}

// sharedCall is one generation of the fetch for a URL. Its context is
// cancelled once the last waiter leaves.
type sharedCall struct {
	key     string
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// WithCoalescing shares one underlying fetch between concurrent callers asking
// for the same URL. A caller whose context ends stops waiting; the shared
// fetch keeps running while at least one caller still waits for it and is
// cancelled after that.
func WithCoalescing(next Fetcher) Fetcher {
	return &coalescing{next: next, calls: make(map[string]*sharedCall)}
}

func (c *coalescing) FetchJSON(ctx context.Context, url string) ([]byte, error) {
	call := c.join(ctx, url)
	defer c.leave(url, call)

	ch := c.group.DoChan(call.key, func() (any, error) {
		return c.next.FetchJSON(call.ctx, url)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		data := res.Val.([]byte)
		if res.Shared {
			out := make([]byte, len(data))
			copy(out, data)
			return out, nil
		}
		return data, nil
	}
}

func (c *coalescing) join(ctx context.Context, url string) *sharedCall {
	c.mu.Lock()
	defer c.mu.Unlock()

	call, ok := c.calls[url]
	if !ok {
		c.nextID++
		// Values such as trace IDs still flow from the first caller.
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		call = &sharedCall{
			key:    url + "#" + strconv.FormatUint(c.nextID, 10),
			ctx:    fctx,
			cancel: cancel,
		}
		c.calls[url] = call
	}
	call.waiters++
	return call
}

func (c *coalescing) leave(url string, call *sharedCall) {
	c.mu.Lock()
	defer c.mu.Unlock()

	call.waiters--
	if call.waiters > 0 {
		return
	}
	call.cancel()
	if c.calls[url] == call {
		delete(c.calls, url)
	}
}
