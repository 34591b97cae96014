package publisher

import (
	"fmt"
	"os"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// EditorProfile describes one target editor: where its authenticated area
// lives and how its composer is reached and filled. Interactive controls are
// located by visible label, not structural selector, because framework
// generated class names churn between deployments.
type EditorProfile struct {
	// Name identifies the profile in logs.
	Name string `yaml:"name"`

	// HomeURL is opened when no authenticated tab exists yet.
	HomeURL string `yaml:"home_url"`

	// AuthURLSubstring marks URLs inside the authenticated area. Used to
	// find an already-authenticated tab worth reusing.
	AuthURLSubstring string `yaml:"auth_url_substring"`

	// AuthURLPattern is a glob the current URL must match to count as
	// logged in. Empty means "*<AuthURLSubstring>*".
	AuthURLPattern string `yaml:"auth_url_pattern"`

	// ComposerLabel is the visible text of the control that opens the
	// composer in a new tab.
	ComposerLabel string `yaml:"composer_label"`

	// ComposerURLSubstring identifies the composer tab once it opens.
	ComposerURLSubstring string `yaml:"composer_url_substring"`

	// TitleSelector, AuthorSelector and SummarySelector locate the
	// metadata fields inside the composer.
	TitleSelector   string `yaml:"title_selector"`
	AuthorSelector  string `yaml:"author_selector"`
	SummarySelector string `yaml:"summary_selector"`

	// EditorSelector locates the rich-text editing region.
	EditorSelector string `yaml:"editor_selector"`

	// SubmitLabel is the visible text of the save control.
	SubmitLabel string `yaml:"submit_label"`

	// ConfirmText is body text whose appearance confirms the save.
	ConfirmText string `yaml:"confirm_text"`
}

// DefaultProfile targets a generic article editor; real deployments load
// their own profile from YAML.
func DefaultProfile() EditorProfile {
	return EditorProfile{
		Name:                 "default",
		HomeURL:              "https://editor.example/home",
		AuthURLSubstring:     "/cgi-bin/home",
		ComposerLabel:        "New article",
		ComposerURLSubstring: "/compose",
		TitleSelector:        "#title",
		AuthorSelector:       "#author",
		SummarySelector:      "#summary",
		EditorSelector:       ".editor-content",
		SubmitLabel:          "Save draft",
		ConfirmText:          "Saved",
	}
}

// LoadProfile reads an EditorProfile from a YAML file, filling gaps from
// the default profile.
func LoadProfile(path string) (EditorProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return EditorProfile{}, fmt.Errorf("publisher: read profile: %w", err)
	}

	profile := DefaultProfile()
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return EditorProfile{}, fmt.Errorf("publisher: parse profile %s: %w", path, err)
	}
	if err := profile.Validate(); err != nil {
		return EditorProfile{}, err
	}
	return profile, nil
}

// Validate rejects profiles missing the fields every run depends on.
func (p EditorProfile) Validate() error {
	switch {
	case p.HomeURL == "":
		return fmt.Errorf("publisher: profile %q: home_url is required", p.Name)
	case p.AuthURLSubstring == "":
		return fmt.Errorf("publisher: profile %q: auth_url_substring is required", p.Name)
	case p.ComposerLabel == "":
		return fmt.Errorf("publisher: profile %q: composer_label is required", p.Name)
	case p.ComposerURLSubstring == "":
		return fmt.Errorf("publisher: profile %q: composer_url_substring is required", p.Name)
	case p.EditorSelector == "":
		return fmt.Errorf("publisher: profile %q: editor_selector is required", p.Name)
	case p.SubmitLabel == "":
		return fmt.Errorf("publisher: profile %q: submit_label is required", p.Name)
	}
	return nil
}

// AuthMatcher compiles the logged-in URL check.
func (p EditorProfile) AuthMatcher() (func(string) bool, error) {
	pattern := p.AuthURLPattern
	if pattern == "" {
		pattern = "*" + p.AuthURLSubstring + "*"
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("publisher: profile %q: bad auth_url_pattern %q: %w", p.Name, pattern, err)
	}
	return g.Match, nil
}
