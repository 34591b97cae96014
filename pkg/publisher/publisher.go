package publisher

import (
	"errors"
	"fmt"
	"time"

	"github.com/inkpress/inkpress/pkg/browser"
	"github.com/inkpress/inkpress/pkg/cdp"
	"github.com/inkpress/inkpress/pkg/clipboard"
	"github.com/inkpress/inkpress/pkg/logging"
)

// State is one step of the publishing flow.
type State int

const (
	StateInit State = iota
	StateConnect
	StateEnsureLoggedIn
	StateOpenComposer
	StateFillMetadata
	StateInjectBody
	StateInsertImages
	StateSave
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateInit:           "Init",
	StateConnect:        "Connect",
	StateEnsureLoggedIn: "EnsureLoggedIn",
	StateOpenComposer:   "OpenComposer",
	StateFillMetadata:   "FillMetadata",
	StateInjectBody:     "InjectBody",
	StateInsertImages:   "InsertImages",
	StateSave:           "Save",
	StateDone:           "Done",
	StateFailed:         "Failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Default deadlines for the flow.
const (
	DefaultLoginTimeout    = 120 * time.Second
	DefaultNewTabTimeout   = 30 * time.Second
	DefaultSaveConfirmWait = 10 * time.Second

	// stepThrottle spaces state transitions apart. A courtesy to the
	// editor's own event handling, layered on top of polling, never a
	// substitute for it.
	stepThrottle = 500 * time.Millisecond
)

// Options configures a Publisher.
type Options struct {
	// Profile describes the target editor.
	Profile EditorProfile

	// Bridge is the clipboard strategy for this run, selected once by
	// platform detection.
	Bridge clipboard.Bridge

	// Attach configures how the browser is found or started.
	Attach browser.AttachOptions

	// LoginTimeout bounds EnsureLoggedIn. Zero means the default.
	LoginTimeout time.Duration

	// NewTabTimeout bounds the wait for the composer tab. Zero means the
	// default.
	NewTabTimeout time.Duration

	// SaveConfirmWait bounds the wait for the save confirmation indicator
	// before the run settles for "likely succeeded, unconfirmed". Zero
	// means the default.
	SaveConfirmWait time.Duration

	// Logger receives the run's diagnostics. Nil means a fresh one.
	Logger *logging.Logger
}

// Publisher runs one publish at a time. A fresh Publisher per run keeps the
// extracted markup and session handles private to that run, so several runs
// in one process never share state.
type Publisher struct {
	profile  EditorProfile
	bridge   clipboard.Bridge
	attach   browser.AttachOptions
	deadline struct {
		login       time.Duration
		newTab      time.Duration
		saveConfirm time.Duration
	}
	log *logging.Logger

	state    State
	conn     *cdp.Conn
	home     *browser.Session
	composer *browser.Session
	result   Result
}

// New validates options and prepares a run.
func New(opts Options) (*Publisher, error) {
	if opts.Bridge == nil {
		return nil, errors.New("publisher: a clipboard bridge is required")
	}
	if err := opts.Profile.Validate(); err != nil {
		return nil, err
	}

	p := &Publisher{
		profile: opts.Profile,
		bridge:  opts.Bridge,
		attach:  opts.Attach,
		log:     opts.Logger,
		state:   StateInit,
	}
	p.deadline.login = opts.LoginTimeout
	if p.deadline.login == 0 {
		p.deadline.login = DefaultLoginTimeout
	}
	p.deadline.newTab = opts.NewTabTimeout
	if p.deadline.newTab == 0 {
		p.deadline.newTab = DefaultNewTabTimeout
	}
	p.deadline.saveConfirm = opts.SaveConfirmWait
	if p.deadline.saveConfirm == 0 {
		p.deadline.saveConfirm = DefaultSaveConfirmWait
	}
	if p.log == nil {
		p.log = logging.New("publisher")
	}
	return p, nil
}

// Run executes the flow for one request. On error the terminal state is
// Failed and the browser window stays open for inspection; it also stays
// open on success so the human can review the draft.
func (p *Publisher) Run(req PublishRequest) (*Result, error) {
	if req.HTMLPath != "" && req.PlainContent != "" {
		return p.fail(errors.New("publisher: request carries both an HTML document and plain content"))
	}
	if req.HTMLPath == "" && req.PlainContent == "" {
		return p.fail(errors.New("publisher: request carries no content"))
	}

	if err := p.connect(); err != nil {
		return p.fail(err)
	}
	if err := p.ensureLoggedIn(); err != nil {
		return p.fail(err)
	}
	if err := p.openComposer(); err != nil {
		return p.fail(err)
	}
	p.fillMetadata(req)

	images, err := p.injectBody(req)
	if err != nil {
		return p.fail(err)
	}
	if err := p.insertImages(images); err != nil {
		return p.fail(err)
	}
	if err := p.save(req); err != nil {
		return p.fail(err)
	}

	p.transition(StateDone)
	p.result.State = StateDone
	res := p.result
	return &res, nil
}

func (p *Publisher) transition(next State) {
	p.log.Infof("state %s -> %s", p.state, next)
	p.state = next
}

func (p *Publisher) fail(err error) (*Result, error) {
	p.log.Errorf("run failed in state %s: %v", p.state, err)
	p.state = StateFailed
	p.result.State = StateFailed
	res := p.result
	return &res, err
}

// connect prefers a tab that is already inside the authenticated area, so a
// prior login keeps paying off; only when none exists does it open the home
// page, attaching to a running browser or launching a fresh one.
func (p *Publisher) connect() error {
	p.transition(StateConnect)

	conn, launched, err := browser.AttachOrLaunch(p.attach)
	if err != nil {
		return fmt.Errorf("publisher: no browser available: %w", err)
	}
	p.conn = conn
	p.result.LaunchedBrowser = launched
	if launched {
		p.log.Infof("launched a new browser; it stays open after the run")
	}

	session, err := browser.PageSession(conn, p.profile.AuthURLSubstring)
	if err != nil {
		return err
	}
	if session != nil {
		p.log.Infof("reusing authenticated tab %s", session.TargetID)
		p.home = session
		return nil
	}

	p.log.Infof("no authenticated tab; opening %s", p.profile.HomeURL)
	session, err = browser.CreateTarget(conn, p.profile.HomeURL)
	if err != nil {
		return err
	}
	if err := session.EnableDomains(); err != nil {
		return err
	}
	p.home = session
	return nil
}

// ensureLoggedIn polls until the tab's URL sits inside the authenticated
// area. The deadline failing is fatal: only a human can finish a login.
func (p *Publisher) ensureLoggedIn() error {
	p.transition(StateEnsureLoggedIn)

	matches, err := p.profile.AuthMatcher()
	if err != nil {
		return err
	}

	if url, err := p.home.CurrentURL(); err == nil && matches(url) {
		return nil
	}

	p.log.Infof("waiting up to %s for login to complete in the browser", p.deadline.login)
	if !p.home.WaitForURL(matches, p.deadline.login) {
		return &LoginTimeoutError{Deadline: p.deadline.login}
	}
	return nil
}

// openComposer clicks the composer entry by its visible label and adopts
// the tab that opens.
func (p *Publisher) openComposer() error {
	p.transition(StateOpenComposer)

	known, err := browser.KnownTargetIDs(p.conn)
	if err != nil {
		return err
	}
	if err := p.home.ClickLabel(p.profile.ComposerLabel); err != nil {
		// A missing composer entry blocks everything downstream.
		return fmt.Errorf("publisher: open composer: %w", err)
	}

	composer, err := browser.WaitForNewTab(p.conn, known, p.profile.ComposerURLSubstring, p.deadline.newTab)
	if err != nil {
		return fmt.Errorf("publisher: composer tab: %w", err)
	}
	if err := composer.EnableDomains(); err != nil {
		return err
	}
	p.composer = composer
	time.Sleep(stepThrottle)
	return nil
}

// save activates the submit control and watches for the confirmation
// indicator. An absent indicator downgrades to "likely succeeded,
// unconfirmed" rather than failure; polling first gives the stronger signal
// whenever the editor provides one.
func (p *Publisher) save(req PublishRequest) error {
	p.transition(StateSave)

	if !req.Submit {
		p.log.Infof("submit disabled; draft left open in the composer")
		return nil
	}

	if err := p.composer.ClickLabel(p.profile.SubmitLabel); err != nil {
		return fmt.Errorf("publisher: save: %w", err)
	}

	if p.profile.ConfirmText != "" {
		confirmed := p.composer.WaitFor(containsTextExpr(p.profile.ConfirmText), p.deadline.saveConfirm)
		if confirmed {
			p.result.Confirmed = true
			p.log.Infof("save confirmed")
			return nil
		}
	} else {
		time.Sleep(p.deadline.saveConfirm)
	}

	p.log.Warnf("no save confirmation observed within %s; treating as likely succeeded", p.deadline.saveConfirm)
	return nil
}

// containsTextExpr builds the body-text probe used for save confirmation.
func containsTextExpr(text string) string {
	return fmt.Sprintf("document.body ? document.body.innerText.includes(%q) : false", text)
}
