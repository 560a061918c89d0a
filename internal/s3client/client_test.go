package s3client

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestClient_PutGetListDelete(t *testing.T) {
	c := TestClient(t, "exports")
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "notes/1.html", []byte("<p>hi</p>"), "text/html"))
	require.NoError(t, c.Put(ctx, "notes/2.html", []byte("<p>yo</p>"), "text/html"))
	require.NoError(t, c.Put(ctx, "index.json", []byte("{}"), "application/json"))

	got, err := c.Get(ctx, "notes/1.html")
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", string(got))

	keys, err := c.List(ctx, "notes/")
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"notes/1.html", "notes/2.html"}, keys)

	require.NoError(t, c.Delete(ctx, "notes/1.html"))
	_, err = c.Get(ctx, "notes/1.html")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	require.NoError(t, c.Delete(ctx, "notes/1.html"))

	assert.Equal(t, "exports", c.BucketName())
	assert.Contains(t, c.URL("/index.json"), "/exports/index.json")
}

func testClient_ListSeesEveryPut(c *Client, run *int) func(*rapid.T) {
	return func(t *rapid.T) {
		*run++
		prefix := fmt.Sprintf("run%d/", *run)
		ctx := context.Background()
		n := rapid.IntRange(0, 12).Draw(t, "n")
		want := make([]string, 0, n)
		for i := 0; i < n; i++ {
			key := fmt.Sprintf("%s%03d", prefix, i)
			want = append(want, key)
			if err := c.Put(ctx, key, []byte{byte(i)}, "application/octet-stream"); err != nil {
				t.Fatalf("put: %v", err)
			}
		}
		keys, err := c.List(ctx, prefix)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		sort.Strings(keys)
		if fmt.Sprint(keys) != fmt.Sprint(want) {
			t.Fatalf("list = %v, want %v", keys, want)
		}
	}
}

func TestClient_ListSeesEveryPut(t *testing.T) {
	var run int
	rapid.Check(t, testClient_ListSeesEveryPut(TestClient(t, "prop"), &run))
}
