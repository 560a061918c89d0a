package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func hostGenerator() *rapid.Generator[string] {
	return rapid.StringMatching(`[a-z]{3,12}\.example(:[0-9]{2,5})?`)
}

func testRateLimiter_SameKeySameLimiter(t *rapid.T) {
	rl := NewRateLimiter(DefaultConfig)
	host := hostGenerator().Draw(t, "host")
	class := rapid.SampledFrom([]Class{ClassDefault, ClassAuth}).Draw(t, "class")

	a := rl.GetLimiter(host, class)
	b := rl.GetLimiter(host, class)
	if a != b {
		t.Fatal("same key produced different limiters")
	}
	other := ClassDefault
	if class == ClassDefault {
		other = ClassAuth
	}
	if rl.GetLimiter(host, other) == a {
		t.Fatal("classes share a limiter")
	}
	if rl.Len() != 2 {
		t.Fatalf("Len = %d, want 2", rl.Len())
	}
}

func TestRateLimiter_SameKeySameLimiter(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testRateLimiter_SameKeySameLimiter)
}

func testRateLimiter_BurstAllowedThenDenied(t *rapid.T) {
	burst := rapid.IntRange(1, 50).Draw(t, "burst")
	rl := NewRateLimiter(Config{RPS: 0.001, Burst: burst})
	l := rl.GetLimiter("h", ClassDefault)
	for i := 0; i < burst; i++ {
		if !l.Allow() {
			t.Fatalf("request %d of burst %d denied", i, burst)
		}
	}
	if l.Allow() {
		t.Fatal("request beyond burst allowed")
	}
}

func TestRateLimiter_BurstAllowedThenDenied(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testRateLimiter_BurstAllowedThenDenied)
}

func TestRateLimiter_DisabledClassIsNil(t *testing.T) {
	rl := NewRateLimiter(Config{RPS: 5, Burst: 5})
	require.Nil(t, rl.GetLimiter("h", ClassAuth))
	require.NotNil(t, rl.GetLimiter("h", ClassDefault))
}

func TestClassOf(t *testing.T) {
	require.Equal(t, ClassAuth, ClassOf("/api/auth/login"))
	require.Equal(t, ClassDefault, ClassOf("/api/notes/user"))
}

func TestRateLimiter_ConcurrentAccess(t *testing.T) {
	rl := NewRateLimiter(DefaultConfig)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rl.GetLimiter("shared", ClassDefault)
		}()
	}
	wg.Wait()
	require.Equal(t, 1, rl.Len())
}

func TestTransport_WaitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	client := &http.Client{Transport: &Transport{Limiter: NewRateLimiter(Config{RPS: 0.001, Burst: 1})}}

	resp, err := client.Get(srv.URL + "/notes")
	require.NoError(t, err)
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/notes", nil)
	require.NoError(t, err)
	_, err = client.Do(req)
	require.Error(t, err)
}
