// Package pinlock implements the local 4-digit PIN gate that protects the
// journal and prayer room, independent of account authentication.
package pinlock

import (
	"errors"
	"sync"
	"time"
)

// PINLength is the exact number of digits in a PIN.
const PINLength = 4

// Stage is a state of the gate.
type Stage string

const (
	StageNoPin        Stage = "no_pin"
	StageSetupFirst   Stage = "setup_first"
	StageSetupConfirm Stage = "setup_confirm"
	StageLocked       Stage = "locked"
	StageUnlocked     Stage = "unlocked"
)

// Mode is the presentation mode of the keypad.
type Mode string

const (
	ModeEnter   Mode = "enter"
	ModeSetup   Mode = "setup"
	ModeConfirm Mode = "confirm"
)

var (
	ErrIncorrectPIN = errors.New("Incorrect PIN")
	ErrPINMismatch  = errors.New("PINs do not match. Try again.")
	ErrInvalidDigit = errors.New("PIN digits must be 0-9")
	ErrInvalidPIN   = errors.New("PIN must be exactly 4 digits")
	ErrCoolingDown  = errors.New("Too many incorrect attempts. Please wait and try again.")
	ErrUnlocked     = errors.New("already unlocked")
)

// ValidPIN reports whether s is exactly four ASCII digits.
func ValidPIN(s string) bool {
	if len(s) != PINLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Options configure a Gate. Persist is called with a newly confirmed PIN
// before the gate unlocks; a Persist error keeps the gate in setup.
//
// Throttle, when set, is shared with earlier and later gates of the same
// owner. Otherwise the gate builds its own from MaxAttempts and Cooldown.
type Options struct {
	Persist     func(pin string) error
	OnUnlock    func()
	MaxAttempts int           // consecutive wrong PINs before cooldown; 0 disables
	Cooldown    time.Duration // how long input is refused after MaxAttempts
	Throttle    *Throttle
	Now         func() time.Time
}

// Throttle counts consecutive wrong PINs and refuses input for a cooldown
// once the limit is reached. It is safe for concurrent use.
type Throttle struct {
	maxAttempts int
	cooldown    time.Duration
	now         func() time.Time

	mu        sync.Mutex
	failures  int
	coolUntil time.Time
}

// NewThrottle returns a throttle; maxAttempts or cooldown of 0 disables it.
func NewThrottle(maxAttempts int, cooldown time.Duration, now func() time.Time) *Throttle {
	if now == nil {
		now = time.Now
	}
	return &Throttle{maxAttempts: maxAttempts, cooldown: cooldown, now: now}
}

// CoolingDown returns the end of the running cooldown, if any.
func (t *Throttle) CoolingDown() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.now().Before(t.coolUntil) {
		return t.coolUntil, true
	}
	return time.Time{}, false
}

// Fail records a wrong PIN and starts the cooldown on the last allowed one.
func (t *Throttle) Fail() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.maxAttempts <= 0 || t.cooldown <= 0 {
		return
	}
	t.failures++
	if t.failures >= t.maxAttempts {
		t.coolUntil = t.now().Add(t.cooldown)
		t.failures = 0
	}
}

// Reset clears the failure count after a correct PIN.
func (t *Throttle) Reset() {
	t.mu.Lock()
	t.failures = 0
	t.mu.Unlock()
}

// Idle reports whether the throttle holds no state worth keeping.
func (t *Throttle) Idle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failures == 0 && !t.now().Before(t.coolUntil)
}

// State is a snapshot of the gate for presentation. Entered is the number of
// buffered digits; digits themselves are never exposed.
type State struct {
	Stage         Stage     `json:"stage"`
	Mode          Mode      `json:"mode"`
	Entered       int       `json:"entered"`
	Unlocked      bool      `json:"unlocked"`
	Error         string    `json:"error,omitempty"`
	CooldownUntil time.Time `json:"cooldown_until,omitempty"`
}

// Gate is the PIN state machine. It is not safe for concurrent use; callers
// serialise access per session.
type Gate struct {
	opts      Options
	stored    string
	stage     Stage
	buf       []byte
	confirm   string
	lastErr   error
	throttle  *Throttle
}

// New derives the start state from the stored PIN: Locked when one exists,
// otherwise NoPin, whose entry action moves straight to setup.
func New(storedPIN string, opts Options) *Gate {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	g := &Gate{opts: opts, buf: make([]byte, 0, PINLength), throttle: opts.Throttle}
	if g.throttle == nil {
		g.throttle = NewThrottle(opts.MaxAttempts, opts.Cooldown, opts.Now)
	}
	if ValidPIN(storedPIN) {
		g.stored = storedPIN
		g.stage = StageLocked
	} else {
		g.stage = StageNoPin
		g.enter(StageSetupFirst)
	}
	return g
}

func (g *Gate) enter(s Stage) {
	g.stage = s
	g.buf = g.buf[:0]
}

// Stage returns the current stage.
func (g *Gate) Stage() Stage { return g.stage }

// Unlocked reports whether the gate has been opened this session.
func (g *Gate) Unlocked() bool { return g.stage == StageUnlocked }

// Mode maps the stage to the keypad mode.
func (g *Gate) Mode() Mode {
	switch g.stage {
	case StageSetupFirst, StageNoPin:
		return ModeSetup
	case StageSetupConfirm:
		return ModeConfirm
	default:
		return ModeEnter
	}
}

// State returns a presentation snapshot.
func (g *Gate) State() State {
	st := State{
		Stage:    g.stage,
		Mode:     g.Mode(),
		Entered:  len(g.buf),
		Unlocked: g.Unlocked(),
	}
	if g.lastErr != nil {
		st.Error = g.lastErr.Error()
	}
	if until, ok := g.throttle.CoolingDown(); ok {
		st.CooldownUntil = until
	}
	return st
}

// Delete removes the last buffered digit.
func (g *Gate) Delete() {
	if len(g.buf) > 0 {
		g.buf = g.buf[:len(g.buf)-1]
	}
	g.lastErr = nil
}

// Push appends one digit. When the buffer reaches four digits the current
// stage is evaluated; the returned error is the one shown to the user
// (incorrect PIN, mismatch) or an input rejection.
func (g *Gate) Push(digit byte) error {
	if g.stage == StageUnlocked {
		return ErrUnlocked
	}
	if digit < '0' || digit > '9' {
		return ErrInvalidDigit
	}
	if _, ok := g.throttle.CoolingDown(); ok {
		return ErrCoolingDown
	}
	if len(g.buf) >= PINLength {
		return nil
	}
	g.lastErr = nil
	g.buf = append(g.buf, digit)
	if len(g.buf) < PINLength {
		return nil
	}
	return g.submit()
}

// Enter pushes every digit of pin in turn, stopping at the first error.
func (g *Gate) Enter(pin string) error {
	for i := 0; i < len(pin); i++ {
		if err := g.Push(pin[i]); err != nil {
			return err
		}
	}
	return nil
}

func (g *Gate) submit() error {
	entered := string(g.buf)
	switch g.stage {
	case StageSetupFirst:
		g.confirm = entered
		g.enter(StageSetupConfirm)
		return nil

	case StageSetupConfirm:
		if entered != g.confirm {
			g.confirm = ""
			g.enter(StageSetupFirst)
			return g.fail(ErrPINMismatch)
		}
		if g.opts.Persist != nil {
			if err := g.opts.Persist(entered); err != nil {
				g.confirm = ""
				g.enter(StageSetupFirst)
				return g.fail(err)
			}
		}
		g.stored = entered
		g.confirm = ""
		g.unlock()
		return nil

	case StageLocked:
		if entered != g.stored {
			g.enter(StageLocked)
			g.throttle.Fail()
			return g.fail(ErrIncorrectPIN)
		}
		g.throttle.Reset()
		g.unlock()
		return nil
	}
	return nil
}

func (g *Gate) unlock() {
	g.enter(StageUnlocked)
	g.lastErr = nil
	if g.opts.OnUnlock != nil {
		g.opts.OnUnlock()
	}
}

func (g *Gate) fail(err error) error {
	g.lastErr = err
	return err
}
