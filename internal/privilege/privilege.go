// Package privilege answers whether the process may change the driver store
// and scopes the extra rights used while scanning it.
package privilege

// mutatingCommands are CLI commands that change the driver store.
var mutatingCommands = map[string]bool{
	"delete": true,
	"prune":  true,
	"add":    true,
}

// RequiresElevation returns true if the command needs administrator rights.
func RequiresElevation(command string) bool {
	return mutatingCommands[command]
}
