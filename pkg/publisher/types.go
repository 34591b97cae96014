package publisher

// ImageInfo ties one placeholder token to the image file it stands for.
// Entries arrive in document order and are consumed one at a time.
type ImageInfo struct {
	// Placeholder is the unique token standing in for the image during
	// text transfer. Tokens are boundary-checked on lookup, so no token
	// may be a literal prefix of another followed by more digits.
	Placeholder string

	// LocalPath is the absolute path of the image file to paste.
	LocalPath string

	// OriginalPath is the reference the source document used, kept for
	// diagnostics.
	OriginalPath string
}

// PublishRequest describes one publish run. It is immutable for the
// duration of the run.
type PublishRequest struct {
	Title   string
	Author  string
	Summary string

	// HTMLPath selects the rich-HTML path: the rendered document to
	// transfer. Mutually exclusive with PlainContent.
	HTMLPath string

	// PlainContent selects the plain path: text typed into the composer
	// keystroke by keystroke.
	PlainContent string

	// Images are the placeholder descriptors, in document order.
	Images []ImageInfo

	// Submit presses the save control at the end of the run. When false
	// the filled composer is left open untouched.
	Submit bool
}

// Result reports what a run achieved.
type Result struct {
	// State is the terminal state, Done or Failed.
	State State

	// Confirmed is true when the post-save confirmation indicator was
	// observed, false for a "likely succeeded, unconfirmed" save.
	Confirmed bool

	// ImagesInserted counts placeholders successfully replaced.
	ImagesInserted int

	// SkippedPlaceholders lists tokens that could not be located; the run
	// continued with a gap for each.
	SkippedPlaceholders []string

	// LaunchedBrowser is true when the run started its own browser rather
	// than attaching to a running one.
	LaunchedBrowser bool
}
