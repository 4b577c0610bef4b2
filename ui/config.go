package ui

// Config contains terminal output settings.
type Config struct {
	GlamourStyle string `env:"GLAMOUR_STYLE" envDefault:"auto"`
	Width        uint

	// Progress disables the interactive progress view when false.
	Progress bool `env:"DUBSYNC_PROGRESS" envDefault:"true"`
}
