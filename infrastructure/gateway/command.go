package gateway

import (
	"fmt"
	"strings"
)

// Command is an executable stdio launch line.
type Command struct {
	Name string
	Args []string
}

// String renders the launch line for logging.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// StdioCommand builds the launch command for a stdio package. A runtime
// hint from the registry overrides the per-ecosystem default; unknown
// registries fall back to npx.
func StdioCommand(registryType, identifier, runtimeHint string) Command {
	if runtimeHint != "" {
		return Command{Name: runtimeHint, Args: []string{identifier}}
	}
	switch registryType {
	case "npm":
		return Command{Name: "npx", Args: []string{"-y", "--quiet", identifier}}
	case "pypi":
		return Command{Name: "uvx", Args: []string{"--quiet", identifier}}
	case "oci":
		return Command{Name: "docker", Args: []string{"run", "--rm", "-i", identifier}}
	default:
		return Command{Name: "npx", Args: []string{"-y", "--quiet", identifier}}
	}
}

// shellCommand wraps a command so it runs inside workingDir. The stdio
// transport has no working-directory knob, so local sources go through
// the shell.
func shellCommand(workingDir string, cmd Command) Command {
	quoted := make([]string, 0, len(cmd.Args)+1)
	quoted = append(quoted, shellQuote(cmd.Name))
	for _, arg := range cmd.Args {
		quoted = append(quoted, shellQuote(arg))
	}
	line := fmt.Sprintf("cd %s && exec %s", shellQuote(workingDir), strings.Join(quoted, " "))
	return Command{Name: "/bin/sh", Args: []string{"-c", line}}
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t'\"\\$&;|<>(){}*?#~`") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
