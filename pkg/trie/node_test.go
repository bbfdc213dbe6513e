package trie

import (
	"errors"
	"reflect"
	"testing"
)

func insert(root *Node, patterns ...string) {
	for _, p := range patterns {
		root.Insert(p, ParsePattern(p), 0)
	}
}

func search(root *Node, path string) string {
	n := root.Search(ParsePattern(path), 0)
	if n == nil {
		return ""
	}
	return n.Pattern
}

func TestParsePattern(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"/", []string{}},
		{"/users", []string{"users"}},
		{"/users/:id", []string{"users", ":id"}},
		{"//a///b/", []string{"a", "b"}},
		{"/static/*path", []string{"static", "*path"}},
		{"/static/*path/ignored", []string{"static", "*path"}},
		{"/files/a/b/c", []string{"files", "a", "b", "c"}},
	}

	for _, tt := range tests {
		got := ParsePattern(tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParsePattern(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSearchStaticAndParam(t *testing.T) {
	root := NewRoot()
	insert(root, "/", "/hello", "/users/:id", "/static/*path")

	tests := []struct {
		path string
		want string
	}{
		{"/", "/"},
		{"/hello", "/hello"},
		{"/hello/", "/hello"},
		{"/users/42", "/users/:id"},
		{"/users", ""},
		{"/users/42/extra", ""},
		{"/static/css/site.css", "/static/*path"},
		{"/static/x", "/static/*path"},
		{"/static", ""},
		{"/missing", ""},
	}

	for _, tt := range tests {
		if got := search(root, tt.path); got != tt.want {
			t.Errorf("Search(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestFirstMatchShadowsLaterLiteral(t *testing.T) {
	root := NewRoot()
	root.Insert("/users/:id", ParsePattern("/users/:id"), 0)
	old := root.Insert("/users/me", ParsePattern("/users/me"), 0)

	if old != "/users/:id" {
		t.Errorf("Expected Insert to report shadowed pattern %q, got %q", "/users/:id", old)
	}
	if got := search(root, "/users/me"); got != "/users/me" {
		t.Errorf("Expected %q, got %q", "/users/me", got)
	}
	// The literal was absorbed by the parameter node, so every id now resolves to it.
	if got := search(root, "/users/7"); got != "/users/me" {
		t.Errorf("Expected %q, got %q", "/users/me", got)
	}
	if len(root.Children[0].Children) != 1 {
		t.Errorf("Expected a single child under users, got %d", len(root.Children[0].Children))
	}
}

func TestLiteralBeforeParam(t *testing.T) {
	root := NewRoot()
	insert(root, "/users/me", "/users/:id")

	if got := search(root, "/users/me"); got != "/users/me" {
		t.Errorf("Expected %q, got %q", "/users/me", got)
	}
	if got := search(root, "/users/7"); got != "/users/:id" {
		t.Errorf("Expected %q, got %q", "/users/:id", got)
	}
}

func TestSearchBacktracks(t *testing.T) {
	root := NewRoot()
	insert(root, "/a/b/c", "/a/:x/d")

	if got := search(root, "/a/b/d"); got != "/a/:x/d" {
		t.Errorf("Expected %q, got %q", "/a/:x/d", got)
	}
	if got := search(root, "/a/b/c"); got != "/a/b/c" {
		t.Errorf("Expected %q, got %q", "/a/b/c", got)
	}
}

func TestInsertReturnsPrevious(t *testing.T) {
	root := NewRoot()
	if old := root.Insert("/x", ParsePattern("/x"), 0); old != "" {
		t.Errorf("Expected empty previous pattern, got %q", old)
	}
	if old := root.Insert("/x", ParsePattern("/x"), 0); old != "/x" {
		t.Errorf("Expected previous pattern %q, got %q", "/x", old)
	}
}

func TestWalk(t *testing.T) {
	root := NewRoot()
	insert(root, "/a", "/a/b", "/c/:id")

	var got []string
	root.Walk(func(n *Node) { got = append(got, n.Pattern) })

	want := []string{"/a", "/a/b", "/c/:id"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Walk() = %v, want %v", got, want)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		pattern string
		err     error
	}{
		{"/", nil},
		{"/users/:id", nil},
		{"/static/*path", nil},
		{"/a/:x/b/:y", nil},
		{"", ErrEmptyPattern},
		{"users", ErrPatternPrefix},
		{"/static/*path/more", ErrWildcardNotLast},
		{"/a/*x/*y", ErrWildcardNotLast},
		{"/users/:", ErrEmptyParamName},
		{"/files/*", ErrEmptyParamName},
		{"/a/:id/b/:id", ErrDuplicateParam},
		{"/a/:id/*id", ErrDuplicateParam},
	}

	for _, tt := range tests {
		err := Validate(tt.pattern)
		if tt.err == nil {
			if err != nil {
				t.Errorf("Validate(%q) returned unexpected error: %v", tt.pattern, err)
			}
			continue
		}
		if !errors.Is(err, tt.err) {
			t.Errorf("Validate(%q) = %v, want %v", tt.pattern, err, tt.err)
		}
	}
}
