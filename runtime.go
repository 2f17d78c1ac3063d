package buildtrace

import (
	"fmt"
	"runtime/debug"
)

// Version is the host tool version.
// Set via -ldflags "-X github.com/nevindra/buildtrace.Version=..."
var Version = "dev"

// RuntimeInformation describes the host build tool.
type RuntimeInformation interface {
	// ToolName is the host tool name, reported as service.name.
	ToolName() string
	// VersionString is the host tool version, reported as service.version.
	VersionString() (string, error)
}

// StaticRuntime reports fixed values.
type StaticRuntime struct {
	Name    string
	Version string
}

func (r StaticRuntime) ToolName() string { return r.Name }

func (r StaticRuntime) VersionString() (string, error) {
	if r.Version == "" {
		return "", fmt.Errorf("%w: %s: empty version", ErrVersionUnavailable, r.Name)
	}
	return r.Version, nil
}

// HostRuntime reconstructs the version of the running binary. The link-time
// Version wins; otherwise the main module version recorded in the build info is
// used. Neither is guaranteed to match what the host itself reports.
type HostRuntime struct {
	Name string

	// readBuildInfo is swapped in tests.
	readBuildInfo func() (*debug.BuildInfo, bool)
}

func (r HostRuntime) ToolName() string { return r.Name }

func (r HostRuntime) VersionString() (string, error) {
	if Version != "" && Version != "dev" {
		return Version, nil
	}
	read := r.readBuildInfo
	if read == nil {
		read = debug.ReadBuildInfo
	}
	info, ok := read()
	if !ok || info == nil {
		return "", fmt.Errorf("%w: %s: no build info", ErrVersionUnavailable, r.Name)
	}
	v := info.Main.Version
	if v == "" || v == "(devel)" {
		return "", fmt.Errorf("%w: %s: development build", ErrVersionUnavailable, r.Name)
	}
	return v, nil
}

var (
	_ RuntimeInformation = StaticRuntime{}
	_ RuntimeInformation = HostRuntime{}
)
