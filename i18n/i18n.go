// Package i18n implements sdk.Translator over YAML message catalogs.
//
// Catalogs are nested YAML maps flattened to dotted keys ("cart.item_added").
// Placeholders use the platform's ":name" form.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/trickstertwo/xlog"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/trickstertwo/xtheme/sdk"
)

//go:embed locales/*.yaml
var builtin embed.FS

var _ sdk.Translator = (*Translator)(nil)

// Translator resolves keys for the active locale, falling back to the
// default locale and finally to the key itself.
type Translator struct {
	logger   *xlog.Logger
	fallback language.Tag

	mu       sync.RWMutex
	catalogs map[string]map[string]string // by tag string
	tags     []language.Tag
	matcher  language.Matcher
	active   language.Tag
}

// Option configures a Translator.
type Option func(*Translator)

// WithLogger sets the logger.
func WithLogger(l *xlog.Logger) Option {
	return func(t *Translator) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithFallback sets the locale used when a key is missing (default: en).
func WithFallback(tag language.Tag) Option {
	return func(t *Translator) { t.fallback = tag }
}

// New loads the built-in catalogs and selects locale.
func New(locale string, opts ...Option) (*Translator, error) {
	t := &Translator{
		logger:   xlog.Default(),
		fallback: language.English,
		catalogs: make(map[string]map[string]string),
	}
	for _, o := range opts {
		o(t)
	}
	if err := t.loadFS(builtin, "locales"); err != nil {
		return nil, err
	}
	t.SetLocale(locale)
	return t, nil
}

// Locale returns the active locale.
func (t *Translator) Locale() language.Tag {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active
}

// Locales returns every loaded locale.
func (t *Translator) Locales() []language.Tag {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]language.Tag(nil), t.tags...)
}

// SetLocale selects the closest loaded catalog to locale.
func (t *Translator) SetLocale(locale string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = t.match(locale)
}

// Dir returns the text direction of the active locale.
func (t *Translator) Dir() string {
	base, _ := t.Locale().Base()
	switch base.String() {
	case "ar", "he", "fa", "ur":
		return "rtl"
	}
	return "ltr"
}

// Trans resolves key and substitutes vars.
func (t *Translator) Trans(key string, vars map[string]any) string {
	t.mu.RLock()
	msg, ok := t.catalogs[t.active.String()][key]
	if !ok {
		msg, ok = t.catalogs[t.fallback.String()][key]
	}
	t.mu.RUnlock()
	if !ok {
		t.logger.Debug().Str("key", key).Msg("i18n: missing translation")
		return key
	}
	return interpolate(msg, vars)
}

// LoadDir merges every <locale>.yaml file of dir over the loaded catalogs.
func (t *Translator) LoadDir(dir string) error {
	return t.loadFS(os.DirFS(dir), ".")
}

func (t *Translator) loadFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("i18n: read %s: %w", dir, err)
	}
	loaded := make(map[string]map[string]string)
	for _, e := range entries {
		if e.IsDir() || !isCatalog(e.Name()) {
			continue
		}
		tag, err := language.Parse(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
		if err != nil {
			t.logger.Warn().Err(err).Str("file", e.Name()).Msg("i18n: skipping catalog with unknown locale")
			continue
		}
		raw, err := fs.ReadFile(fsys, pathJoin(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("i18n: read %s: %w", e.Name(), err)
		}
		msgs, err := parseCatalog(raw)
		if err != nil {
			return fmt.Errorf("i18n: parse %s: %w", e.Name(), err)
		}
		loaded[tag.String()] = msgs
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for tag, msgs := range loaded {
		cat, ok := t.catalogs[tag]
		if !ok {
			cat = make(map[string]string, len(msgs))
			t.catalogs[tag] = cat
		}
		for k, v := range msgs {
			cat[k] = v
		}
	}
	t.rebuildMatcher()
	return nil
}

// rebuildMatcher must be called with mu held.
func (t *Translator) rebuildMatcher() {
	fb := t.fallback.String()
	tags := make([]language.Tag, 0, len(t.catalogs))
	if _, ok := t.catalogs[fb]; ok {
		tags = append(tags, t.fallback)
	}
	rest := make([]string, 0, len(t.catalogs))
	for tag := range t.catalogs {
		if tag != fb {
			rest = append(rest, tag)
		}
	}
	sort.Strings(rest)
	for _, tag := range rest {
		tags = append(tags, language.Make(tag))
	}
	t.tags = tags
	t.matcher = language.NewMatcher(t.tags)
}

// match must be called with mu held.
func (t *Translator) match(locale string) language.Tag {
	if len(t.tags) == 0 {
		return t.fallback
	}
	desired, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(desired) == 0 {
		return t.tags[0]
	}
	_, idx, _ := t.matcher.Match(desired...)
	return t.tags[idx]
}

func parseCatalog(raw []byte) (map[string]string, error) {
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}
	out := make(map[string]string)
	flatten("", tree, out)
	return out, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case nil:
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// interpolate replaces ":name" placeholders, longest names first.
func interpolate(msg string, vars map[string]any) string {
	if len(vars) == 0 || !strings.Contains(msg, ":") {
		return msg
	}
	names := make([]string, 0, len(vars))
	for k := range vars {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	pairs := make([]string, 0, 2*len(names))
	for _, k := range names {
		pairs = append(pairs, ":"+k, fmt.Sprint(vars[k]))
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

func isCatalog(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}

func pathJoin(dir, name string) string {
	if dir == "." || dir == "" {
		return name
	}
	return dir + "/" + name
}
