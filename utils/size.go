package utils

import "fmt"

// DataSize is a byte count printed with binary units
type DataSize float64

const (
	KiB DataSize = 1 << (10 * (iota + 1))
	MiB
	GiB
	TiB
)

func (d DataSize) String() string {
	switch {
	case d >= TiB:
		return fmt.Sprintf("%.2f TiB", d/TiB)
	case d >= GiB:
		return fmt.Sprintf("%.2f GiB", d/GiB)
	case d >= MiB:
		return fmt.Sprintf("%.2f MiB", d/MiB)
	case d >= KiB:
		return fmt.Sprintf("%.2f KiB", d/KiB)
	}
	return fmt.Sprintf("%.0f B", float64(d))
}
