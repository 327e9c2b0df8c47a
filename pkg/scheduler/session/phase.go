package session

// Phase is the state of an optimization session.
type Phase int

const (
	Uninitialized Phase = iota
	Populated
	Evaluated
	Selected
	Terminated
)

func (p Phase) String() string {
	switch p {
	case Uninitialized:
		return "Uninitialized"
	case Populated:
		return "Populated"
	case Evaluated:
		return "Evaluated"
	case Selected:
		return "Selected"
	case Terminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}
