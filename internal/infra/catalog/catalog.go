// Package catalog provides the read-only lesson registry.
// Lessons are grouped under "<Language>-English" pair keys, the layout the
// lesson files have always used; lookups accept either the bare language
// ("Spanish") or the full pair key.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lingoleap/lingoleap/internal/domain"
)

// PairSuffix is appended to a language name to form its catalog key.
const PairSuffix = "-English"

//go:embed lessons.json
var builtinLessons []byte

// Catalog is an immutable lesson registry. Safe for concurrent use.
type Catalog struct {
	byLang map[string][]domain.Lesson // canonical language -> lessons sorted by id
	folded map[string]string          // lower-case language -> canonical
}

var _ domain.LessonCatalog = (*Catalog)(nil)

// Default returns the built-in catalog shipped with the binary.
func Default(defaultGems int64) *Catalog {
	c, err := Parse(builtinLessons, "json", defaultGems)
	if err != nil {
		panic(fmt.Sprintf("builtin lessons: %v", err))
	}
	return c
}

// Load reads a catalog file. The format is chosen by extension:
// .yaml/.yml use YAML, anything else JSON.
func Load(path string, defaultGems int64) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lessons file: %w", err)
	}
	format := "json"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	}
	return Parse(data, format, defaultGems)
}

// lessonDoc is one lesson as written in a catalog file. Rewards are pointers
// so an explicit 0 is kept apart from an omitted value.
type lessonDoc struct {
	ID        int              `json:"lesson" yaml:"lesson"`
	Title     string           `json:"title" yaml:"title"`
	XP        *int64           `json:"xp" yaml:"xp"`
	Gems      *int64           `json:"gems" yaml:"gems"`
	Questions []map[string]any `json:"questions" yaml:"questions"`
}

// Parse decodes a catalog document ("json" or "yaml").
// Lessons that omit xp get domain.DefaultLessonXP; lessons that omit gems
// get defaultGems. An explicit 0 is kept.
func Parse(data []byte, format string, defaultGems int64) (*Catalog, error) {
	raw := map[string][]lessonDoc{}
	var err error
	switch format {
	case "yaml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s catalog: %w", format, err)
	}

	pairs := make(map[string][]domain.Lesson, len(raw))
	for key, docs := range raw {
		lessons := make([]domain.Lesson, 0, len(docs))
		for _, d := range docs {
			l := domain.Lesson{
				ID:        d.ID,
				Title:     d.Title,
				XP:        domain.DefaultLessonXP,
				Gems:      defaultGems,
				Questions: d.Questions,
			}
			if d.XP != nil {
				l.XP = *d.XP
			}
			if d.Gems != nil {
				l.Gems = *d.Gems
			}
			lessons = append(lessons, l)
		}
		pairs[key] = lessons
	}
	return New(pairs)
}

// New builds a catalog from pair-keyed lesson lists. Rewards are used as given.
func New(pairs map[string][]domain.Lesson) (*Catalog, error) {
	c := &Catalog{
		byLang: make(map[string][]domain.Lesson, len(pairs)),
		folded: make(map[string]string, len(pairs)),
	}
	for key, lessons := range pairs {
		lang := LanguageOf(key)
		if lang == "" {
			return nil, fmt.Errorf("catalog key %q: empty language", key)
		}
		if _, dup := c.folded[strings.ToLower(lang)]; dup {
			return nil, fmt.Errorf("catalog key %q: duplicate language", key)
		}

		seen := make(map[int]bool, len(lessons))
		list := make([]domain.Lesson, 0, len(lessons))
		for _, l := range lessons {
			if l.ID <= 0 {
				return nil, fmt.Errorf("%s: lesson id must be positive, got %d", key, l.ID)
			}
			if seen[l.ID] {
				return nil, fmt.Errorf("%s: duplicate lesson %d", key, l.ID)
			}
			if l.XP < 0 || l.Gems < 0 {
				return nil, fmt.Errorf("%s: lesson %d has a negative reward", key, l.ID)
			}
			seen[l.ID] = true
			l.Language = lang
			list = append(list, l)
		}
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

		c.byLang[lang] = list
		c.folded[strings.ToLower(lang)] = lang
	}
	return c, nil
}

// LanguageOf strips the pair suffix: "Spanish-English" -> "Spanish".
func LanguageOf(key string) string {
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(key), PairSuffix))
}

// Resolve returns the canonical language name for lang, or ErrInvalidLanguage.
func (c *Catalog) Resolve(lang string) (string, error) {
	canonical, ok := c.folded[strings.ToLower(LanguageOf(lang))]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidLanguage, lang)
	}
	return canonical, nil
}

// Languages returns every language in the catalog, sorted.
func (c *Catalog) Languages() []string {
	out := make([]string, 0, len(c.byLang))
	for lang := range c.byLang {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Lessons returns a copy of one language's lessons, ordered by id.
func (c *Catalog) Lessons(lang string) ([]domain.Lesson, error) {
	canonical, err := c.Resolve(lang)
	if err != nil {
		return nil, err
	}
	return append([]domain.Lesson(nil), c.byLang[canonical]...), nil
}

// Lesson finds one lesson.
func (c *Catalog) Lesson(lang string, id int) (domain.Lesson, error) {
	canonical, err := c.Resolve(lang)
	if err != nil {
		return domain.Lesson{}, err
	}
	list := c.byLang[canonical]
	i := sort.Search(len(list), func(i int) bool { return list[i].ID >= id })
	if i == len(list) || list[i].ID != id {
		return domain.Lesson{}, fmt.Errorf("%w: %s lesson %d", domain.ErrLessonNotFound, canonical, id)
	}
	return list[i], nil
}

// Len returns the total number of lessons across all languages.
func (c *Catalog) Len() int {
	n := 0
	for _, list := range c.byLang {
		n += len(list)
	}
	return n
}
