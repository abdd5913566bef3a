// Shell execution behind an allowlist. The allowlist refusal is the
// environment-restriction error class: the agent reports it once and never
// retries it, since the restriction is permanent for the session.

package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// EnvRestrictionPrefix marks errors from permanently blocked operations.
// The agent excludes results carrying it from the retry budget.
const EnvRestrictionPrefix = "command not allowed"

// IsEnvRestriction reports whether a result error belongs to the
// environment-restriction class.
func IsEnvRestriction(r Result) bool {
	return !r.Ok && strings.HasPrefix(r.Error, EnvRestrictionPrefix)
}

const maxShellOutput = 200_000

var shellOperators = []string{"&&", ";", "|", ">", "<"}

func (tb *Toolbox) shellSpecs() []Spec {
	return []Spec{
		{
			Name:        "shell.exec",
			Description: "Executar um comando do sistema (lista permitida)",
			Params:      map[string]string{"cmd": "list[str]"},
			Func:        tb.shellExec,
		},
	}
}

func (tb *Toolbox) shellExec(ctx context.Context, args map[string]any) Result {
	cmd, err := commandList(args["cmd"])
	if err != nil {
		return Fail("%v", err)
	}
	if len(cmd) == 0 {
		return Fail("empty cmd")
	}

	root := cmd[0]
	if !tb.shellAllow["*"] && !tb.shellAllow[root] {
		return Fail("%s: %s", EnvRestrictionPrefix, root)
	}
	// Even fully open allowlists refuse the classic footgun.
	if tb.shellAllow["*"] && root == "rm" && hasRecursiveForce(cmd) && contains(cmd, "/") {
		return Fail("dangerous rm detected (blocked)")
	}

	runCtx, cancel := context.WithTimeout(ctx, tb.limits.Timeout)
	defer cancel()

	var out bytes.Buffer
	c := exec.CommandContext(runCtx, cmd[0], cmd[1:]...)
	c.Dir = tb.policy.Root
	c.Stdout = &out
	c.Stderr = &out

	if err := c.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return Result{
				Error: "exit status " + fmt.Sprint(exitErr.ExitCode()),
				Extra: map[string]any{
					"code":   exitErr.ExitCode(),
					"output": truncate(out.String(), maxShellOutput),
				},
			}
		}
		return Fail("%v", err)
	}
	return OK(map[string]any{"stdout": truncate(out.String(), maxShellOutput)})
}

// commandList accepts either a list of strings or a single flat string.
// Strings containing shell operators are refused; one command per call.
func commandList(v any) ([]string, error) {
	switch cmd := v.(type) {
	case []any:
		out := make([]string, 0, len(cmd))
		for _, item := range cmd {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("o parâmetro 'cmd' deve ser uma lista de strings")
			}
			out = append(out, s)
		}
		return out, nil
	case []string:
		return cmd, nil
	case string:
		fields := strings.Fields(cmd)
		for _, f := range fields {
			for _, op := range shellOperators {
				if f == op {
					return nil, fmt.Errorf("comandos complexos com operadores de shell não são permitidos; execute um comando por vez")
				}
			}
		}
		return fields, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("o parâmetro 'cmd' deve ser uma lista de strings")
	}
}

func hasRecursiveForce(cmd []string) bool {
	return contains(cmd, "-rf") || contains(cmd, "-fr")
}

func contains(list []string, want string) bool {
	for _, item := range list {
		if item == want {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
