package refresh

const (
	// MountPoint is where the backing image is attached on the Pi
	MountPoint = "/mnt/usb_drive"
	// ImagePath is the loopback image exported over USB
	ImagePath = "/home/bob/usb_drive.img"
	// MountOptions makes every file on the image writable by the panel user
	MountOptions = "loop,umask=000,fmask=111,dmask=000"
	// GadgetModule is the kernel module emulating a USB mass-storage device
	GadgetModule = "g_mass_storage"
	// PauseSeconds is how long to wait between unloading and reloading the gadget
	PauseSeconds = "1"
)

// Policy decides what a step failure does to the rest of the sequence
type Policy int

const (
	// Strict failures abort the sequence and are reported
	Strict Policy = iota
	// Tolerant failures are ignored
	Tolerant
)

func (p Policy) String() string {
	switch p {
	case Strict:
		return "strict"
	case Tolerant:
		return "tolerant"
	default:
		return "unknown"
	}
}

// Step names
const (
	StepUnmount      = "unmount"
	StepMount        = "mount"
	StepGadgetUnload = "gadget-unload"
	StepPause        = "pause"
	StepGadgetLoad   = "gadget-load"
)

// Step describes one external operation of the refresh sequence
type Step struct {
	Name    string
	Command string
	Args    []string
	Policy  Policy
}

// GadgetParams are the module parameters pointing the gadget at the image
func GadgetParams() []string {
	return []string{"file=" + ImagePath, "removable=1", "ro=0", "stall=0"}
}

// DefaultSteps returns the fixed refresh sequence.
// The device may already be unmounted and the module may not be loaded,
// so those two steps are tolerant. The pause is kept strict.
func DefaultSteps() []Step {
	return []Step{
		{
			Name:    StepUnmount,
			Command: "sudo",
			Args:    []string{"umount", MountPoint},
			Policy:  Tolerant,
		},
		{
			Name:    StepMount,
			Command: "sudo",
			Args:    []string{"mount", "-o", MountOptions, ImagePath, MountPoint},
			Policy:  Strict,
		},
		{
			Name:    StepGadgetUnload,
			Command: "sudo",
			Args:    []string{"modprobe", "-r", GadgetModule},
			Policy:  Tolerant,
		},
		{
			Name:    StepPause,
			Command: "sleep",
			Args:    []string{PauseSeconds},
			Policy:  Strict,
		},
		{
			Name:    StepGadgetLoad,
			Command: "sudo",
			Args:    append([]string{"modprobe", GadgetModule}, GadgetParams()...),
			Policy:  Strict,
		},
	}
}

// Programs returns the distinct programs the steps invoke, in first-use order
func Programs(steps []Step) []string {
	seen := make(map[string]bool)
	var programs []string
	for _, step := range steps {
		if !seen[step.Command] {
			seen[step.Command] = true
			programs = append(programs, step.Command)
		}
	}
	return programs
}
