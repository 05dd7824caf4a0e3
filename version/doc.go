// Package version reports build metadata for the wfs binaries.
//
// Release builds set Version, Commit and Date with the linker:
//
//	-ldflags "-X github.com/dendrascience/wfs/version.Version=v1.0.0 -X github.com/dendrascience/wfs/version.Commit=abc1234"
//
// Otherwise the module version and VCS stamps recorded by the go tool are
// used, falling back to "development".
package version
