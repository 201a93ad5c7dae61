package camconfig

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"air-firmware/pkg/globals"
	"air-firmware/pkg/platform"
	"air-firmware/pkg/system"
)

const (
	StateIdle     = "idle"
	StateApplying = "applying"
	StateApplied  = "applied"

	eventApply     = "apply"
	eventPersisted = "persisted"

	defaultSettleDelay = 3 * time.Second
)

var (
	// ErrNoOp is informational, the requested configuration is already active
	ErrNoOp = errors.New("camera configuration already active")
	// ErrAlreadyChanged rejects every change after the first one until reboot
	ErrAlreadyChanged = errors.New("camera configuration already changed, reboot pending")
	// ErrResourceMissing aborts an apply without touching anything
	ErrResourceMissing = errors.New("resource missing")
	// ErrPersistence is a failed write of the boot config or the selection
	ErrPersistence = errors.New("persistence failure")
)

// Result is published once the apply procedure has finished or aborted
type Result struct {
	Config CamConfig
	Err    error
}

type Options struct {
	FS       afero.Fs
	Platform platform.Platform
	Store    *Store
	Rebooter system.Rebooter
	Log      *zap.SugaredLogger

	BootConfigPath string
	BackupPath     string
	FragmentsDir   string
	// SettleDelay is waited between persisting and the reboot request
	SettleDelay time.Duration
}

// Handler accepts camera configuration changes. Admission is synchronous,
// the change itself and the reboot happen in the background.
type Handler struct {
	mu       sync.Mutex
	fsm      *fsm.FSM
	fs       afero.Fs
	platform platform.Platform
	store    *Store
	rebooter system.Rebooter
	log      *zap.SugaredLogger

	bootConfigPath string
	backupPath     string
	fragmentsDir   string
	settleDelay    time.Duration

	done chan Result
}

func NewHandler(opts Options) *Handler {
	h := &Handler{
		fs:             opts.FS,
		platform:       opts.Platform,
		store:          opts.Store,
		rebooter:       opts.Rebooter,
		log:            opts.Log,
		bootConfigPath: opts.BootConfigPath,
		backupPath:     opts.BackupPath,
		fragmentsDir:   opts.FragmentsDir,
		settleDelay:    opts.SettleDelay,
		done:           make(chan Result, 1),
	}
	if h.fs == nil {
		h.fs = afero.NewOsFs()
	}
	if h.log == nil {
		h.log = zap.NewNop().Sugar()
	}
	if h.store == nil {
		h.store = NewStore(h.fs, globals.CamConfigPath, h.log)
	}
	if h.rebooter == nil {
		h.rebooter = system.SystemdRebooter{}
	}
	if h.bootConfigPath == "" {
		h.bootConfigPath = globals.BootConfigPath
	}
	if h.backupPath == "" {
		h.backupPath = globals.BootConfigBackupPath
	}
	if h.fragmentsDir == "" {
		h.fragmentsDir = globals.CamConfigFragmentsDir
	}
	if h.settleDelay == 0 {
		h.settleDelay = defaultSettleDelay
	}

	// No way back to idle, the host reboots once a change went through
	h.fsm = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventApply, Src: []string{StateIdle}, Dst: StateApplying},
			{Name: eventPersisted, Src: []string{StateApplying}, Dst: StateApplied},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				h.log.Debugf("Cam config session %s -> %s", e.Src, e.Dst)
			},
		},
	)
	return h
}

// RequestChange is the request surface: true if the value was accepted or
// is already active, false if it was rejected.
func (h *Handler) RequestChange(value int) bool {
	err := h.Submit(value)
	return err == nil || errors.Is(err, ErrNoOp)
}

// Submit decides whether value is accepted. A nil error means the apply
// procedure was launched; ErrNoOp means nothing needs to change.
func (h *Handler) Submit(value int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	next, err := FromInt(value)
	if err != nil {
		ChangeRequestsTotal.WithLabelValues("invalid").Inc()
		return err
	}

	current := h.store.Load()
	if next == current {
		h.log.Warnf("Not changing cam config, already at %s", current)
		ChangeRequestsTotal.WithLabelValues("noop").Inc()
		return ErrNoOp
	}

	if err := h.fsm.Event(context.Background(), eventApply); err != nil {
		ChangeRequestsTotal.WithLabelValues("rejected").Inc()
		return fmt.Errorf("%w (session %s)", ErrAlreadyChanged, h.fsm.Current())
	}

	ChangeRequestsTotal.WithLabelValues("accepted").Inc()
	h.log.Infof("Changing cam config %s -> %s", current, next)
	go h.apply(next)
	return nil
}

// Current returns the persisted configuration
func (h *Handler) Current() CamConfig {
	return h.store.Load()
}

func (h *Handler) State() string {
	return h.fsm.Current()
}

// Done yields the result of the only apply procedure this handler will run
func (h *Handler) Done() <-chan Result {
	return h.done
}

func (h *Handler) apply(c CamConfig) {
	err := h.applyAndSave(c)
	switch {
	case err == nil:
		ApplyTotal.WithLabelValues("applied").Inc()
		h.log.Infof("Applied cam config %s, rebooting in %s", c, h.settleDelay)
		time.Sleep(h.settleDelay)
		h.rebooter.Reboot()
	case errors.Is(err, ErrResourceMissing):
		ApplyTotal.WithLabelValues("aborted").Inc()
		h.log.Warnf("Cannot apply cam config %s: %v", c, err)
	default:
		ApplyTotal.WithLabelValues("failed").Inc()
		h.log.Errorf("Applying cam config %s failed: %v", c, err)
	}
	h.done <- Result{Config: c, Err: err}
}

// applyAndSave rewrites the dynamic part of the boot config and persists c.
// Nothing is modified unless the fragment, the boot config and its marker exist.
func (h *Handler) applyAndSave(c CamConfig) error {
	h.log.Debugf("Begin apply cam config %s", c)

	fragmentPath := FragmentPath(h.fragmentsDir, h.platform, c)
	fragment, err := afero.ReadFile(h.fs, fragmentPath)
	if err != nil {
		return fmt.Errorf("%w: fragment %s: %w", ErrResourceMissing, fragmentPath, err)
	}

	original, err := afero.ReadFile(h.fs, h.bootConfigPath)
	if err != nil {
		return fmt.Errorf("%w: boot config %s: %w", ErrResourceMissing, h.bootConfigPath, err)
	}

	patched, err := Patch(SplitLines(string(original)), IsMarker, SplitLines(string(fragment)))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrResourceMissing, h.bootConfigPath, err)
	}

	if err := afero.WriteFile(h.fs, h.backupPath, original, 0644); err != nil {
		h.log.Warnf("Cannot write boot config backup %s: %v", h.backupPath, err)
	}

	if err := afero.WriteFile(h.fs, h.bootConfigPath, []byte(JoinLines(patched)), 0644); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPersistence, h.bootConfigPath, err)
	}

	// From here until Save returns config.txt and the stored selection disagree
	if err := h.store.Save(c); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if err := h.fsm.Event(context.Background(), eventPersisted); err != nil {
		return fmt.Errorf("session transition: %w", err)
	}

	h.log.Debugf("End apply cam config %s", c)
	return nil
}
