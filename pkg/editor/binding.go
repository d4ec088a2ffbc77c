package editor

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/aretw0/tilth/pkg/content"
)

// Affordance is the kind of inline editor a field gets.
type Affordance string

const (
	AffordanceText     Affordance = "text"
	AffordanceMarkdown Affordance = "markdown"
)

// Roots of the document shape field paths address.
const (
	RootFrontmatter = "frontmatter"
	RootBody        = "markdownBody"
)

// FieldBinding maps a dot path in the document to an editing affordance.
type FieldBinding struct {
	Path       string
	Affordance Affordance
	// Rules are evaluated when the session is saved.
	Rules []validation.Rule
}

// DefaultBindings edits the post title and body.
func DefaultBindings() []FieldBinding {
	return []FieldBinding{
		{Path: "frontmatter.title", Affordance: AffordanceText},
		{Path: "markdownBody", Affordance: AffordanceMarkdown},
	}
}

func validateBindings(bindings []FieldBinding) error {
	seen := make(map[string]bool, len(bindings))
	for _, b := range bindings {
		if b.Path == "" {
			return fmt.Errorf("%w: empty path", ErrInvalidBinding)
		}
		for _, seg := range strings.Split(b.Path, ".") {
			if seg == "" {
				return fmt.Errorf("%w: empty segment in %q", ErrInvalidBinding, b.Path)
			}
		}
		if seen[b.Path] {
			return fmt.Errorf("%w: duplicate path %q", ErrInvalidBinding, b.Path)
		}
		seen[b.Path] = true

		switch b.Affordance {
		case AffordanceText, AffordanceMarkdown:
		default:
			return fmt.Errorf("%w: unknown affordance %q for %q", ErrInvalidBinding, b.Affordance, b.Path)
		}
	}
	return nil
}

// lookup resolves path in post. Missing keys, paths through scalars and
// roots outside the document shape do not resolve.
func lookup(post content.Post, path string) (any, bool) {
	segs := strings.Split(path, ".")
	switch segs[0] {
	case RootBody:
		if len(segs) != 1 {
			return nil, false
		}
		return post.MarkdownBody, true
	case RootFrontmatter:
		var cur any = post.Frontmatter
		for _, seg := range segs[1:] {
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			if cur, ok = m[seg]; !ok {
				return nil, false
			}
		}
		if len(segs) == 1 {
			return nil, false
		}
		return cur, true
	}
	return nil, false
}

// writable reports whether assign can store a value at path in post: the
// body itself, or a frontmatter key whose existing ancestors are all maps.
func writable(post content.Post, path string) bool {
	segs := strings.Split(path, ".")
	switch segs[0] {
	case RootBody:
		return len(segs) == 1
	case RootFrontmatter:
		if len(segs) < 2 {
			return false
		}
		var cur any = post.Frontmatter
		for _, seg := range segs[1 : len(segs)-1] {
			m, ok := cur.(map[string]any)
			if !ok {
				return false
			}
			next, ok := m[seg]
			if !ok {
				return true
			}
			cur = next
		}
		_, ok := cur.(map[string]any)
		return ok || cur == nil
	}
	return false
}

// assign stores value at path, creating intermediate maps. The caller
// checks writable first.
func assign(post *content.Post, path string, value any) {
	segs := strings.Split(path, ".")
	if segs[0] == RootBody {
		post.MarkdownBody = toString(value)
		return
	}
	if post.Frontmatter == nil {
		post.Frontmatter = map[string]any{}
	}
	cur := post.Frontmatter
	for _, seg := range segs[1 : len(segs)-1] {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[seg] = next
		}
		cur = next
	}
	cur[segs[len(segs)-1]] = value
}

func toString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

// initialValue is what a field shows before any edit.
func initialValue(post content.Post, path string) any {
	if v, ok := lookup(post, path); ok {
		return v
	}
	return ""
}

// compose applies values on top of a copy of base. Fields that do not
// resolve in base and still hold the empty value are left out, so an
// untouched missing key is not created.
func compose(base content.Post, bindings []FieldBinding, values map[string]any) content.Post {
	out := base.Clone()
	for _, b := range bindings {
		if !writable(out, b.Path) {
			continue
		}
		v := values[b.Path]
		if _, ok := lookup(base, b.Path); !ok && (v == nil || v == "") {
			continue
		}
		assign(&out, b.Path, v)
	}
	return out
}

// matchNumber converts a float64 (as decoded from JSON) to the integer type
// of like when it holds a whole number that fits. Other values pass through.
func matchNumber(value, like any) any {
	f, ok := value.(float64)
	if !ok || like == nil || f != math.Trunc(f) {
		return value
	}
	target := reflect.TypeOf(like)
	switch target.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if f < math.MinInt64 || f >= math.MaxInt64 || reflect.Zero(target).OverflowInt(int64(f)) {
			return value
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if f < 0 || f >= math.MaxUint64 || reflect.Zero(target).OverflowUint(uint64(f)) {
			return value
		}
	default:
		return value
	}
	return reflect.ValueOf(f).Convert(target).Interface()
}
