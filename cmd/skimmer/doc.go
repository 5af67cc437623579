// Command skimmer is the CLI entry point for the digest pipeline. Each
// subcommand is one independently schedulable stage.
package main
