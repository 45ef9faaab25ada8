// Command evalrun runs one script and prints its completion value as JSON.
//
//	evalrun [-mode this|new] [-sandbox seed.yaml] [-out json|yaml|toml] [-display-errors] file.js
//	evalrun -e 'n * 2' -sandbox seed.json
//
// In the default new mode the script runs in a fresh sandbox, optionally
// seeded from a JSON, YAML or TOML document; -out prints the sandbox after
// the run. Console output goes to stdout ahead of the value.
//
// Exit status is 3 for syntax errors, 4 for uncaught exceptions and 2 for
// usage errors.
package main
