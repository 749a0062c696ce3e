package cmd

import "strings"

// invocation holds the meta flags shared by create-block and create-workflow.
// Everything else is passed on in rest, in order.
type invocation struct {
	target string
	dryRun bool
	list   bool
	help   bool
	json   bool
	rest   []string
}

// parseInvocation pulls the meta flags out of tokens. name is the long flag
// selecting the target ("block" or "workflow") and short its one-letter
// alias. A bare "--" is ignored wherever it appears.
func parseInvocation(tokens []string, name, short string) invocation {
	var inv invocation
	long := "--" + name

	for i := 0; i < len(tokens); i++ {
		token := tokens[i]
		switch {
		case token == "--":
		case token == "--help" || token == "-h":
			inv.help = true
		case token == "--list":
			inv.list = true
		case token == "--json":
			inv.json = true
		case token == "--dry-run":
			inv.dryRun = true
		case token == long || token == "-"+short:
			if i+1 < len(tokens) {
				inv.target = tokens[i+1]
				i++
			}
		case strings.HasPrefix(token, long+"="):
			inv.target = strings.TrimPrefix(token, long+"=")
		default:
			inv.rest = append(inv.rest, token)
		}
	}
	return inv
}
