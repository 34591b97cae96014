package publisher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProfileFillsGapsFromDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: corp-editor
home_url: https://cms.corp.example/
auth_url_substring: /workspace
composer_label: Write
composer_url_substring: /workspace/editor
submit_label: Publish draft
confirm_text: Draft saved
`), 0o600))

	profile, err := LoadProfile(path)
	require.NoError(t, err)

	assert.Equal(t, "corp-editor", profile.Name)
	assert.Equal(t, "Write", profile.ComposerLabel)
	assert.Equal(t, "Publish draft", profile.SubmitLabel)
	// Unset fields keep the default profile's values.
	assert.Equal(t, DefaultProfile().EditorSelector, profile.EditorSelector)
	assert.Equal(t, DefaultProfile().TitleSelector, profile.TitleSelector)
}

func TestLoadProfileRejectsIncomplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: broken
home_url: ""
`), 0o600))

	_, err := LoadProfile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "home_url")
}

func TestLoadProfileMissingFile(t *testing.T) {
	_, err := LoadProfile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestAuthMatcherDefaultsToSubstring(t *testing.T) {
	p := DefaultProfile()
	p.AuthURLSubstring = "/cgi-bin/home"
	p.AuthURLPattern = ""

	match, err := p.AuthMatcher()
	require.NoError(t, err)
	assert.True(t, match("https://editor.example/cgi-bin/home?lang=en"))
	assert.False(t, match("https://editor.example/login"))
}

func TestAuthMatcherExplicitGlob(t *testing.T) {
	p := DefaultProfile()
	p.AuthURLPattern = "https://*.example/app/*"

	match, err := p.AuthMatcher()
	require.NoError(t, err)
	assert.True(t, match("https://cms.example/app/dashboard"))
	assert.False(t, match("https://cms.example/login"))
}

func TestValidateRequiresSubmitLabel(t *testing.T) {
	p := DefaultProfile()
	p.SubmitLabel = ""
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "submit_label")
}
