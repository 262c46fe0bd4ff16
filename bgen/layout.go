package bgen

// Layout is a versioned variant structure outlined by the BGEN format. The value
// is the one stored in bits 2-5 of the header flags.
type Layout uint32

const (
	Layout1 Layout = 1 // BGEN v1.1
	Layout2 Layout = 2 // BGEN v1.2 and v1.3
)

func (l Layout) String() string {
	switch l {
	case Layout1:
		return "Layout1"
	case Layout2:
		return "Layout2"

	default:
		return "Illegal selection"
	}
}
