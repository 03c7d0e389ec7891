// Package policy provides allow/block rules deciding which pipeline commands
// may run. A nil *Policy allows every command.
package policy
