// Package template resolves destination-structure templates such as
// "{year}/{created}" into relative folder paths.
package template

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sdejongh/mediasync/pkg/models"
)

// Values are the inputs a token can draw from
type Values struct {
	Created time.Time
	Name    string
	Camera  string
}

// ValuesFor extracts template values from a scanned item
func ValuesFor(item models.ScannedItem) Values {
	v := Values{Created: item.Created(), Name: item.Name}
	if item.Metadata != nil {
		v.Camera = item.Metadata.Camera
	}
	return v
}

// ValueFunc produces the text of one token
type ValueFunc func(Values) string

// Resolver maps token names to value functions
type Resolver struct {
	tokens map[string]ValueFunc
}

// NewResolver returns a resolver with the built-in tokens
func NewResolver() *Resolver {
	r := &Resolver{tokens: make(map[string]ValueFunc)}
	r.Register("year", func(v Values) string { return v.Created.Format("2006") })
	r.Register("month", func(v Values) string { return v.Created.Format("01") })
	r.Register("day", func(v Values) string { return v.Created.Format("02") })
	r.Register("created", func(v Values) string { return v.Created.Format("2006-01-02") })
	r.Register("name", func(v Values) string { return strings.TrimSuffix(v.Name, filepath.Ext(v.Name)) })
	r.Register("ext", func(v Values) string { return strings.TrimPrefix(strings.ToLower(filepath.Ext(v.Name)), ".") })
	r.Register("camera", func(v Values) string {
		if v.Camera == "" {
			return "unknown"
		}
		return v.Camera
	})
	return r
}

// Register adds or replaces a token
func (r *Resolver) Register(name string, fn ValueFunc) {
	r.tokens[name] = fn
}

// Tokens returns the registered token names, sorted
func (r *Resolver) Tokens() []string {
	names := make([]string, 0, len(r.tokens))
	for n := range r.tokens {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type segment struct {
	literal string
	token   string
}

// Template is a parsed destination structure
type Template struct {
	source   string
	segments []segment
	resolver *Resolver
}

// Parse compiles tmpl. Unknown tokens and unbalanced braces are errors.
func (r *Resolver) Parse(tmpl string) (*Template, error) {
	t := &Template{source: tmpl, resolver: r}

	rest := tmpl
	for rest != "" {
		open := strings.IndexByte(rest, '{')
		closing := strings.IndexByte(rest, '}')

		if open < 0 {
			if closing >= 0 {
				return nil, fmt.Errorf("template %q: unexpected '}'", tmpl)
			}
			t.segments = append(t.segments, segment{literal: rest})
			break
		}
		if closing >= 0 && closing < open {
			return nil, fmt.Errorf("template %q: unexpected '}'", tmpl)
		}
		if open > 0 {
			t.segments = append(t.segments, segment{literal: rest[:open]})
		}

		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return nil, fmt.Errorf("template %q: unclosed '{'", tmpl)
		}
		name := rest[open+1 : open+end]
		if _, ok := r.tokens[name]; !ok {
			return nil, fmt.Errorf("template %q: unknown token {%s}", tmpl, name)
		}
		t.segments = append(t.segments, segment{token: name})
		rest = rest[open+end+1:]
	}

	return t, nil
}

// String returns the template source
func (t *Template) String() string {
	return t.source
}

// Resolve returns the relative folder for v, using forward slashes.
// Token values never introduce extra path levels.
func (t *Template) Resolve(v Values) string {
	var b strings.Builder
	for _, s := range t.segments {
		if s.token == "" {
			b.WriteString(s.literal)
			continue
		}
		b.WriteString(sanitize(t.resolver.tokens[s.token](v)))
	}

	out := path.Clean("/" + strings.ReplaceAll(b.String(), "\\", "/"))
	return strings.TrimPrefix(out, "/")
}

// Resolve parses and resolves tmpl in one step
func (r *Resolver) Resolve(tmpl string, v Values) (string, error) {
	t, err := r.Parse(tmpl)
	if err != nil {
		return "", err
	}
	return t.Resolve(v), nil
}

func sanitize(s string) string {
	s = strings.TrimSpace(s)
	return strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(s)
}
