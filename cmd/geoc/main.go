// Command geoc is the geocomplete command-line tool.
//
// Usage:
//
//	geoc search <term...>        Batch autocomplete queries
//	geoc simulate <input...>     Drive the engine with scripted keystrokes
//	geoc history                 Committed selections
//	geoc events                  JSONL event log viewer
//	geoc config init|show        Manage ~/.geocomplete/config.toml
package main

func main() {
	Execute()
}
