package language

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	dg "github.com/bwmarrin/discordgo"
	"github.com/graxinc/errutil"
	"github.com/pelletier/go-toml/v2"
)

//go:embed locales/*.toml
var locales embed.FS

type dictionary struct {
	Names        map[string]string `toml:"names"`
	Descriptions map[string]string `toml:"descriptions"`
	Strings      map[string]string `toml:"strings"`
}

// Language is the dictionary of a single locale. Lookups that miss fall back
// to the registry's default locale and then to the key itself.
type Language struct {
	Locale dg.Locale

	dict     dictionary
	keys     map[string]string
	fallback *Language
}

// Registry holds every loaded locale. It is built once and read-only after.
type Registry struct {
	fallback  dg.Locale
	languages map[dg.Locale]*Language
}

// NewRegistry loads the locale dictionaries compiled into the binary.
func NewRegistry(fallback dg.Locale) (*Registry, error) {
	sub, err := fs.Sub(locales, "locales")
	if err != nil {
		return nil, errutil.With(err)
	}
	return Load(sub, fallback)
}

// Load reads every <locale>.toml file at the root of fsys.
func Load(fsys fs.FS, fallback dg.Locale) (*Registry, error) {
	files, err := fs.Glob(fsys, "*.toml")
	if err != nil {
		return nil, errutil.With(err)
	}

	r := Registry{
		fallback:  fallback,
		languages: make(map[dg.Locale]*Language, len(files)),
	}

	for _, f := range files {
		raw, err := fs.ReadFile(fsys, f)
		if err != nil {
			return nil, errutil.With(err)
		}

		var d dictionary
		if err := toml.Unmarshal(raw, &d); err != nil {
			return nil, errutil.With(fmt.Errorf("parsing %s: %w", f, err))
		}

		locale := dg.Locale(strings.TrimSuffix(path.Base(f), ".toml"))
		l := &Language{Locale: locale, dict: d, keys: make(map[string]string, len(d.Names))}
		for key, name := range d.Names {
			l.keys[name] = key
		}
		r.languages[locale] = l
	}

	def, ok := r.languages[fallback]
	if !ok {
		return nil, errutil.With(fmt.Errorf("missing dictionary for default locale %q", fallback))
	}
	for locale, l := range r.languages {
		if locale != fallback {
			l.fallback = def
		}
	}

	return &r, nil
}

// Get returns the language for locale, or the default language.
func (r *Registry) Get(locale dg.Locale) *Language {
	if l, ok := r.languages[locale]; ok {
		return l
	}
	return r.languages[r.fallback]
}

// Default returns the default language.
func (r *Registry) Default() *Language {
	return r.languages[r.fallback]
}

// Locales returns every loaded locale, sorted.
func (r *Registry) Locales() []dg.Locale {
	out := make([]dg.Locale, 0, len(r.languages))
	for l := range r.languages {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// KeyFor maps a name as Discord delivered it in locale back to its canonical
// key. Names that are not localized map to themselves.
func (r *Registry) KeyFor(locale dg.Locale, name string) string {
	if l, ok := r.languages[locale]; ok {
		if key, ok := l.keys[name]; ok {
			return key
		}
	}
	if key, ok := r.languages[r.fallback].keys[name]; ok {
		return key
	}
	return name
}

// NameLocalizations builds the per-locale name map for a registration payload.
func (r *Registry) NameLocalizations(key string) map[dg.Locale]string {
	return r.localizations(func(d dictionary) map[string]string { return d.Names }, key)
}

// DescriptionLocalizations builds the per-locale description map for a
// registration payload.
func (r *Registry) DescriptionLocalizations(key string) map[dg.Locale]string {
	return r.localizations(func(d dictionary) map[string]string { return d.Descriptions }, key)
}

func (r *Registry) localizations(table func(dictionary) map[string]string, key string) map[dg.Locale]string {
	out := make(map[dg.Locale]string)
	for locale, l := range r.languages {
		if v, ok := table(l.dict)[key]; ok {
			out[locale] = v
		}
	}
	return out
}

// Get returns the string for key with {{name}} placeholders replaced.
func (l *Language) Get(key string, subs map[string]any) string {
	s, ok := l.lookup(key)
	if !ok {
		return key
	}
	if len(subs) == 0 {
		return s
	}

	pairs := make([]string, 0, len(subs)*2)
	for k, v := range subs {
		pairs = append(pairs, "{{"+k+"}}", fmt.Sprint(v))
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

// Has reports whether key resolves in this language or its fallback.
func (l *Language) Has(key string) bool {
	_, ok := l.lookup(key)
	return ok
}

// Name returns the localized command or option name for key.
func (l *Language) Name(key string) string {
	for cur := l; cur != nil; cur = cur.fallback {
		if v, ok := cur.dict.Names[key]; ok {
			return v
		}
	}
	return key
}

// Description returns the localized description for key.
func (l *Language) Description(key string) string {
	for cur := l; cur != nil; cur = cur.fallback {
		if v, ok := cur.dict.Descriptions[key]; ok {
			return v
		}
	}
	return key
}

func (l *Language) lookup(key string) (string, bool) {
	for cur := l; cur != nil; cur = cur.fallback {
		if v, ok := cur.dict.Strings[key]; ok {
			return v, true
		}
	}
	return "", false
}
