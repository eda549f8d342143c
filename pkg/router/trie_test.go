package router

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/marmos91/dittohttp/pkg/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tagged returns a handler whose response body identifies it.
func tagged(tag string) Handler {
	return func(req *message.Request) *message.Response {
		return message.Text(http.StatusOK, tag)
	}
}

func resolveTag(t *testing.T, trie *Trie, path string, method message.Method) string {
	t.Helper()
	h, err := trie.Resolve(path, method)
	require.NoError(t, err, "resolve %s %s", method, path)
	return h(&message.Request{Method: method, Path: path}).Body
}

func TestSplit(t *testing.T) {
	assert.Empty(t, Split("/"))
	assert.Empty(t, Split(""))
	assert.Empty(t, Split("//"))
	assert.Equal(t, []string{"a", "b"}, Split("/a/b"))
	assert.Equal(t, []string{"a", "b"}, Split("/a//b/"))
	assert.Equal(t, []string{"a", "*", "c"}, Split("a/*/c"))
}

func TestRegisterAndResolve(t *testing.T) {
	trie := New()

	routes := []struct {
		path   string
		method message.Method
	}{
		{"/", message.MethodGet},
		{"/", message.MethodPost},
		{"/users", message.MethodGet},
		{"/users", message.MethodPost},
		{"/users/admin", message.MethodGet},
		{"/users/*", message.MethodGet},
		{"/users/*", message.MethodDelete},
		{"/a/b/c/d", message.MethodPut},
	}

	for _, r := range routes {
		require.NoError(t, trie.Register(r.path, r.method, tagged(r.method.String()+" "+r.path)))
	}

	for _, r := range routes {
		assert.Equal(t, r.method.String()+" "+r.path, resolveTag(t, trie, r.path, r.method))
	}
}

func TestRegisterNormalizesSlashes(t *testing.T) {
	trie := New()
	require.NoError(t, trie.Register("/a//b/", message.MethodGet, tagged("ab")))

	assert.Equal(t, "ab", resolveTag(t, trie, "/a/b", message.MethodGet))
	assert.Equal(t, "ab", resolveTag(t, trie, "a/b/", message.MethodGet))

	err := trie.Register("/a/b", message.MethodGet, tagged("again"))
	assert.ErrorIs(t, err, ErrDuplicateRoute)
}

func TestRegisterDuplicate(t *testing.T) {
	t.Run("SamePathSameMethod", func(t *testing.T) {
		trie := New()
		require.NoError(t, trie.Register("/health", message.MethodGet, tagged("1")))

		err := trie.Register("/health", message.MethodGet, tagged("2"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDuplicateRoute)
		assert.Contains(t, err.Error(), "GET /health")

		// The first handler is untouched.
		assert.Equal(t, "1", resolveTag(t, trie, "/health", message.MethodGet))
	})

	t.Run("RootDuplicate", func(t *testing.T) {
		trie := New()
		require.NoError(t, trie.Register("/", message.MethodGet, tagged("root")))
		assert.ErrorIs(t, trie.Register("/", message.MethodGet, tagged("root2")), ErrDuplicateRoute)
	})

	t.Run("RegardlessOfOtherRegistrations", func(t *testing.T) {
		trie := New()
		require.NoError(t, trie.Register("/x/y", message.MethodPost, tagged("1")))
		require.NoError(t, trie.Register("/x", message.MethodPost, tagged("2")))
		require.NoError(t, trie.Register("/x/y/z", message.MethodPost, tagged("3")))
		require.NoError(t, trie.Register("/x/y", message.MethodGet, tagged("4")))

		assert.ErrorIs(t, trie.Register("/x/y", message.MethodPost, tagged("5")), ErrDuplicateRoute)
	})

	t.Run("WildcardDuplicate", func(t *testing.T) {
		trie := New()
		require.NoError(t, trie.Register("/files/*", message.MethodGet, tagged("1")))
		assert.ErrorIs(t, trie.Register("/files/*", message.MethodGet, tagged("2")), ErrDuplicateRoute)
	})

	t.Run("IntermediateNodeCanGainHandler", func(t *testing.T) {
		trie := New()
		require.NoError(t, trie.Register("/a/b/c", message.MethodGet, tagged("deep")))
		require.NoError(t, trie.Register("/a/b", message.MethodGet, tagged("mid")))
		assert.Equal(t, "mid", resolveTag(t, trie, "/a/b", message.MethodGet))
	})
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	trie := New()
	assert.ErrorIs(t, trie.Register("/x", message.MethodUnsupported, tagged("x")), ErrUnsupportedMethod)
	assert.ErrorIs(t, trie.Register("/x", message.MethodGet, nil), ErrNilHandler)
	assert.Zero(t, trie.Len())
}

func TestResolveWildcard(t *testing.T) {
	trie := New()
	require.NoError(t, trie.Register("/a/*/c", message.MethodGet, tagged("wild")))

	for _, seg := range []string{"X", "b", "123", "anything-at-all", "*"} {
		assert.Equal(t, "wild", resolveTag(t, trie, "/a/"+seg+"/c", message.MethodGet), "segment %q", seg)
	}

	require.NoError(t, trie.Register("/a/b/c", message.MethodGet, tagged("literal")))
	assert.Equal(t, "literal", resolveTag(t, trie, "/a/b/c", message.MethodGet))
	assert.Equal(t, "wild", resolveTag(t, trie, "/a/z/c", message.MethodGet))
}

func TestResolveDoesNotBacktrack(t *testing.T) {
	trie := New()
	require.NoError(t, trie.Register("/a/*/c", message.MethodGet, tagged("wild")))
	require.NoError(t, trie.Register("/a/b/d", message.MethodGet, tagged("literal")))

	// The literal "b" child wins at level two and has no "c" child; the
	// wildcard branch is not retried.
	_, err := trie.Resolve("/a/b/c", message.MethodGet)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveNotFound(t *testing.T) {
	trie := New()
	require.NoError(t, trie.Register("/users/list", message.MethodGet, tagged("list")))

	tests := []struct {
		name   string
		path   string
		method message.Method
	}{
		{"unknown path", "/missing", message.MethodGet},
		{"partial match", "/users", message.MethodGet},
		{"too deep", "/users/list/extra", message.MethodGet},
		{"wrong method", "/users/list", message.MethodPost},
		{"unsupported method", "/users/list", message.MethodUnsupported},
		{"root without handler", "/", message.MethodGet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := trie.Resolve(tt.path, tt.method)
			assert.Nil(t, h)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestResolveRoot(t *testing.T) {
	trie := New()
	require.NoError(t, trie.Register("/", message.MethodGet, tagged("root")))

	assert.Equal(t, "root", resolveTag(t, trie, "/", message.MethodGet))
	assert.Equal(t, "root", resolveTag(t, trie, "//", message.MethodGet))
}

func TestDistinctRegistrationsResolveExactly(t *testing.T) {
	trie := New()
	methods := message.Methods

	var registered []Route
	for i := 0; i < 20; i++ {
		path := fmt.Sprintf("/level%d/item%d", i%4, i)
		m := methods[i%len(methods)]
		require.NoError(t, trie.Register(path, m, tagged(fmt.Sprintf("%s %s", m, path))))
		registered = append(registered, Route{Method: m, Path: path})
	}

	for _, r := range registered {
		assert.Equal(t, r.String(), resolveTag(t, trie, r.Path, r.Method))
		for _, other := range methods {
			if other == r.Method {
				continue
			}
			_, err := trie.Resolve(r.Path, other)
			assert.ErrorIs(t, err, ErrNotFound)
		}
	}
	assert.Equal(t, len(registered), trie.Len())
}

func TestRoutes(t *testing.T) {
	trie := New()
	require.NoError(t, trie.Register("/kv/*", message.MethodPut, tagged("")))
	require.NoError(t, trie.Register("/kv/*", message.MethodGet, tagged("")))
	require.NoError(t, trie.Register("/health", message.MethodGet, tagged("")))
	require.NoError(t, trie.Register("/", message.MethodGet, tagged("")))
	require.NoError(t, trie.Register("/kv", message.MethodGet, tagged("")))

	var got []string
	for _, r := range trie.Routes() {
		got = append(got, r.String())
	}

	assert.Equal(t, []string{
		"GET /",
		"GET /health",
		"GET /kv",
		"GET /kv/*",
		"PUT /kv/*",
	}, got)
}

func TestLenCountsOnlyRegisteredPairs(t *testing.T) {
	trie := New()
	assert.Zero(t, trie.Len())

	// Intermediate nodes /a and /a/* carry no handlers.
	require.NoError(t, trie.Register("/a/*/c", message.MethodGet, tagged("")))
	require.NoError(t, trie.Register("/a/*/c", message.MethodDelete, tagged("")))
	require.NoError(t, trie.Register("/", message.MethodPost, tagged("")))
	assert.ErrorIs(t, trie.Register("/a/*/c", message.MethodGet, tagged("")), ErrDuplicateRoute)

	assert.Equal(t, 3, trie.Len())
	assert.Len(t, trie.Routes(), trie.Len())
}
