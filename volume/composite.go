package volume

import "fmt"

// OverflowPolicy decides what Composite does when a sum exceeds 255.
type OverflowPolicy uint8

const (
	// OverflowWrap keeps the low 8 bits of the sum, as fixed-width uint8 arithmetic does.
	OverflowWrap OverflowPolicy = iota

	// OverflowSaturate clamps sums at 255.
	OverflowSaturate
)

func (p OverflowPolicy) String() string {
	switch p {
	case OverflowWrap:
		return "wrap"
	case OverflowSaturate:
		return "saturate"
	default:
		return fmt.Sprintf("OverflowPolicy(%d)", uint8(p))
	}
}

// ParseOverflowPolicy converts a configuration string into a policy.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch s {
	case "", "wrap":
		return OverflowWrap, nil
	case "saturate", "clamp":
		return OverflowSaturate, nil
	}
	return OverflowWrap, fmt.Errorf("unknown overflow policy %q", s)
}

// ApplyMask multiplies v element-wise by mask.  The mask must have the same spatial
// shape and either the same number of channels or a single channel, which is applied
// to every channel.  Products follow uint8 arithmetic, so a 0/1 mask zeroes or keeps.
func ApplyMask(v, mask *Volume) (*Volume, error) {
	if err := compatible(v, mask); err != nil {
		return nil, fmt.Errorf("apply mask: %w", err)
	}
	out := &Volume{Shape: v.Shape, Data: make([]uint8, len(v.Data))}
	nc := v.Shape[3]
	if mask.Shape[3] == nc {
		for i, b := range v.Data {
			out.Data[i] = b * mask.Data[i]
		}
		return out, nil
	}
	for vi, m := range mask.Data {
		base := vi * nc
		for c := 0; c < nc; c++ {
			out.Data[base+c] = v.Data[base+c] * m
		}
	}
	return out, nil
}

// Composite adds atlas to v element-wise.  A single-channel atlas is added to every
// channel.  Overflow is handled according to policy.
func Composite(v, atlas *Volume, policy OverflowPolicy) (*Volume, error) {
	if err := compatible(v, atlas); err != nil {
		return nil, fmt.Errorf("composite: %w", err)
	}
	var add func(a, b uint8) uint8
	switch policy {
	case OverflowWrap:
		add = func(a, b uint8) uint8 { return a + b }
	case OverflowSaturate:
		add = func(a, b uint8) uint8 {
			if s := uint16(a) + uint16(b); s < 255 {
				return uint8(s)
			}
			return 255
		}
	default:
		return nil, fmt.Errorf("composite: unknown overflow policy %s", policy)
	}

	out := &Volume{Shape: v.Shape, Data: make([]uint8, len(v.Data))}
	nc := v.Shape[3]
	if atlas.Shape[3] == nc {
		for i, b := range v.Data {
			out.Data[i] = add(b, atlas.Data[i])
		}
		return out, nil
	}
	for vi, a := range atlas.Data {
		base := vi * nc
		for c := 0; c < nc; c++ {
			out.Data[base+c] = add(v.Data[base+c], a)
		}
	}
	return out, nil
}
