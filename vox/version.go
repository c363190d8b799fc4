package vox

//go:generate go run ../cmd/gen-version -o version_git.go

// gitVersion is set by version_git.go when it has been generated.
var gitVersion = "unknown"

// Version returns the git description of the source the binary was built from.
func Version() string {
	return gitVersion
}
