// Command forged is the CLI entrypoint for the orchestration engine
// (spec.md §4.I): a cobra command tree wrapping init, run, and status.
package main

func main() {
	Execute()
}
