package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lingoleap/lingoleap/internal/domain"
)

func TestDefault_HasAllLanguages(t *testing.T) {
	c := Default(1)
	want := []string{"French", "German", "Japanese", "Spanish"}
	got := c.Languages()
	if len(got) != len(want) {
		t.Fatalf("Languages() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Languages()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if c.Len() == 0 {
		t.Error("builtin catalog is empty")
	}
}

func TestLesson_Lookup(t *testing.T) {
	c := Default(1)
	tests := []struct {
		lang    string
		id      int
		wantErr error
	}{
		{"Spanish", 1, nil},
		{"Spanish-English", 2, nil},
		{"spanish", 3, nil},
		{"Spanish", 99, domain.ErrLessonNotFound},
		{"Klingon", 1, domain.ErrInvalidLanguage},
		{"", 1, domain.ErrInvalidLanguage},
	}
	for _, tt := range tests {
		l, err := c.Lesson(tt.lang, tt.id)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Lesson(%q, %d) err = %v, want %v", tt.lang, tt.id, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("Lesson(%q, %d) error: %v", tt.lang, tt.id, err)
			continue
		}
		if l.ID != tt.id || l.Language != "Spanish" {
			t.Errorf("Lesson(%q, %d) = %+v", tt.lang, tt.id, l)
		}
	}
}

func TestParse_Defaults(t *testing.T) {
	doc := `{"Italian-English": [{"lesson": 2, "title": "Due"}, {"lesson": 1, "title": "Uno", "xp": 25, "gems": 3}]}`
	c, err := Parse([]byte(doc), "json", 2)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	lessons, err := c.Lessons("Italian")
	if err != nil {
		t.Fatalf("Lessons() error: %v", err)
	}
	if len(lessons) != 2 || lessons[0].ID != 1 || lessons[1].ID != 2 {
		t.Fatalf("lessons not sorted by id: %+v", lessons)
	}
	if lessons[0].XP != 25 || lessons[0].Gems != 3 {
		t.Errorf("explicit rewards lost: %+v", lessons[0])
	}
	if lessons[1].XP != domain.DefaultLessonXP || lessons[1].Gems != 2 {
		t.Errorf("defaults not applied: %+v", lessons[1])
	}
}

func TestParse_ExplicitZeroRewardKept(t *testing.T) {
	tests := []struct {
		format, doc string
	}{
		{"json", `{"Italian-English": [{"lesson": 1, "title": "Ripasso", "xp": 0, "gems": 0}]}`},
		{"yaml", "Italian-English:\n  - lesson: 1\n    title: Ripasso\n    xp: 0\n    gems: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			c, err := Parse([]byte(tt.doc), tt.format, 2)
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			l, err := c.Lesson("Italian", 1)
			if err != nil {
				t.Fatalf("Lesson() error: %v", err)
			}
			if l.XP != 0 || l.Gems != 0 {
				t.Errorf("explicit zero rewards replaced by defaults: %+v", l)
			}
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := map[string]string{
		"zero id":        `{"Italian-English": [{"lesson": 0}]}`,
		"duplicate id":   `{"Italian-English": [{"lesson": 1}, {"lesson": 1}]}`,
		"negative xp":    `{"Italian-English": [{"lesson": 1, "xp": -5}]}`,
		"duplicate lang": `{"Italian-English": [], "Italian": []}`,
		"malformed":      `{"Italian-English": [`,
	}
	for name, doc := range tests {
		if _, err := Parse([]byte(doc), "json", 1); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lessons.yaml")
	doc := `
Portuguese-English:
  - lesson: 1
    title: Olá
    xp: 12
    questions:
      - type: translate
        question: Translate "hello"
        answer: olá
`
	if err := os.WriteFile(path, []byte(doc), 0600); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path, 1)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	l, err := c.Lesson("Portuguese", 1)
	if err != nil {
		t.Fatalf("Lesson() error: %v", err)
	}
	if l.Title != "Olá" || l.XP != 12 || len(l.Questions) != 1 {
		t.Errorf("Lesson() = %+v", l)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json"), 1); err == nil {
		t.Fatal("expected error for missing file")
	}
}
