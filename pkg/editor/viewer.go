package editor

import "sync/atomic"

// Control is an editing action offered to the viewer.
type Control string

const (
	ControlSave  Control = "save"
	ControlReset Control = "reset"
)

// Viewer carries the editing-enabled flag of whoever looks at a page. It only
// decides which controls are shown; sessions do not consult it.
type Viewer struct {
	enabled atomic.Bool
}

// NewViewer creates a viewer with editing enabled or not.
func NewViewer(enabled bool) *Viewer {
	v := &Viewer{}
	v.enabled.Store(enabled)
	return v
}

func (v *Viewer) Enable()  { v.enabled.Store(true) }
func (v *Viewer) Disable() { v.enabled.Store(false) }

// Toggle flips the flag and returns the new value.
func (v *Viewer) Toggle() bool {
	for {
		old := v.enabled.Load()
		if v.enabled.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Enabled reports whether editing is enabled.
func (v *Viewer) Enabled() bool { return v.enabled.Load() }

// Can reports whether c should be offered.
func (v *Viewer) Can(c Control) bool {
	switch c {
	case ControlSave, ControlReset:
		return v.Enabled()
	}
	return false
}

// Controls lists the controls to offer.
func (v *Viewer) Controls() []Control {
	var out []Control
	for _, c := range []Control{ControlSave, ControlReset} {
		if v.Can(c) {
			out = append(out, c)
		}
	}
	return out
}
