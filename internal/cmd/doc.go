// Package cmd provides the command-line interface implementation for wfs.
//
// Each subcommand lives in its own file with a constructor returning a
// *cobra.Command; NewRootCmd wires them together. The root binary runs them
// through fang, and the standalone mkfs.wfs, mount.wfs and fsck.wfs
// binaries each run a single one.
//
// Commands print results to the command's output stream and return errors
// to cobra rather than exiting, so they can be driven from tests.
package cmd
