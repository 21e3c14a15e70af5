package version

// Version is the current version of the trading desk.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/rxtech-lab/trading-desk/internal/version.Version=1.2.3"
// The default value "main" indicates a development build.
var Version = "main"

// SchemaVersion is the version of the persisted state layout written by this build.
const SchemaVersion = "1.0.0"

// GetVersion returns the current version of the desk.
func GetVersion() string {
	return Version
}
