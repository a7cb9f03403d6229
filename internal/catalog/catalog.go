// Package catalog holds the static entity catalog: the set of known
// projects the chat can talk about, each identified by its canonical
// repository key plus a set of match keywords. The catalog is loaded
// once at startup and never mutated at runtime.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	// ErrEmptyCatalog is returned when the projects file contains no entries.
	ErrEmptyCatalog = errors.New("catalog: no projects defined")

	// ErrUnknownEntity is returned when a lookup key matches no entity.
	ErrUnknownEntity = errors.New("catalog: unknown entity")
)

// Entity is a known project. Key is the canonical repository name used
// for retrieval filters and session state; Keywords are the lowercase
// terms that count as an explicit mention in a user message.
type Entity struct {
	Key          string
	Title        string
	Description  string
	Technologies []string
	Keywords     []string
}

// project mirrors one entry of the projects.json data file.
type project struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
	GitHubLink   string   `json:"githubLink,omitempty"`
	Link         string   `json:"link,omitempty"`
	WebsiteLink  string   `json:"websiteLink,omitempty"`
}

// Catalog is an immutable set of entities with keyword matching.
type Catalog struct {
	entities []Entity
	byKey    map[string]*Entity
}

// selfEntity describes the portfolio site itself, so questions like
// "how is this website built" resolve without naming a repository.
func selfEntity(owner string) Entity {
	return Entity{
		Key:         "folio",
		Title:       "Portfolio",
		Description: fmt.Sprintf("%s's personal portfolio website, the site this assistant runs on.", owner),
		Keywords:    []string{"portfolio", "this website", "this app", "this site"},
	}
}

// Load reads the projects data file and builds the catalog. The owner
// name is only used for the portfolio self-entry description.
func Load(path, owner string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read projects file: %w", err)
	}

	var projects []project
	if err := json.Unmarshal(data, &projects); err != nil {
		return nil, fmt.Errorf("parse projects file %s: %w", path, err)
	}

	if len(projects) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyCatalog, path)
	}

	entities := make([]Entity, 0, len(projects)+1)
	for _, p := range projects {
		key := repoFromURL(p.GitHubLink)
		if key == "" {
			key = p.Title
		}

		keywords := make([]string, 0, len(p.Technologies)+1)
		keywords = append(keywords, strings.ToLower(p.Title))
		for _, tech := range p.Technologies {
			keywords = append(keywords, strings.ToLower(tech))
		}

		entities = append(entities, Entity{
			Key:          key,
			Title:        p.Title,
			Description:  p.Description,
			Technologies: p.Technologies,
			Keywords:     keywords,
		})
	}

	entities = append(entities, selfEntity(owner))

	return New(entities), nil
}

// New builds a catalog from a fixed entity list. Used directly in tests
// and by Load after parsing the data file.
func New(entities []Entity) *Catalog {
	byKey := make(map[string]*Entity, len(entities))
	for i := range entities {
		byKey[entities[i].Key] = &entities[i]
	}
	return &Catalog{entities: entities, byKey: byKey}
}

// Match scans the message for an explicit mention of any entity. A
// mention is a case-insensitive occurrence of the entity's title or its
// canonical key. The first matching entity in catalog order wins.
func (c *Catalog) Match(message string) (Entity, bool) {
	msg := strings.ToLower(message)
	for _, e := range c.entities {
		if strings.Contains(msg, strings.ToLower(e.Title)) || strings.Contains(msg, strings.ToLower(e.Key)) {
			return e, true
		}
	}
	return Entity{}, false
}

// Get returns the entity for a canonical key.
func (c *Catalog) Get(key string) (Entity, error) {
	e, ok := c.byKey[key]
	if !ok {
		return Entity{}, fmt.Errorf("%w: %q", ErrUnknownEntity, key)
	}
	return *e, nil
}

// Summary renders the prompt block for an active entity. Returns ""
// for an empty or unknown key, which callers treat as "no active
// project context".
func (c *Catalog) Summary(key string) string {
	if key == "" {
		return ""
	}
	e, ok := c.byKey[key]
	if !ok {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Project: %s\n", e.Title)
	fmt.Fprintf(&b, "Description: %s", e.Description)
	if len(e.Technologies) > 0 {
		fmt.Fprintf(&b, "\nTech Stack: %s", strings.Join(e.Technologies, ", "))
	}
	return b.String()
}

// All returns the entities in catalog order.
func (c *Catalog) All() []Entity {
	return c.entities
}

// repoFromURL extracts the repository name from a GitHub URL, so
// "https://github.com/me/chess-engine.git" yields "chess-engine".
func repoFromURL(url string) string {
	if url == "" {
		return ""
	}
	url = strings.TrimSuffix(url, "/")
	idx := strings.LastIndex(url, "/")
	if idx < 0 || idx == len(url)-1 {
		return ""
	}
	return strings.TrimSuffix(url[idx+1:], ".git")
}
