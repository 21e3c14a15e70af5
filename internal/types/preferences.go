package types

type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// DefaultBaseCurrency is the quote currency used before the user picks one.
const DefaultBaseCurrency = "EUR"

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	switch t {
	case ThemeDark, ThemeLight:
		return true
	default:
		return false
	}
}

// Preferences are the user settings persisted next to the instruments.
type Preferences struct {
	Theme  Theme  `json:"theme" yaml:"theme" validate:"omitempty,oneof=dark light"`
	Base   string `json:"base" yaml:"base" validate:"omitempty,len=3,alpha"`
	Player string `json:"player" yaml:"player" validate:"max=64"`
}
