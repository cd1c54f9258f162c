package router

import (
	"sort"
	"strings"
	"unicode"

	"pingu/internal/transport"
)

// sanitizeTelegramCommand maps s onto Telegram's [a-z0-9_]{1,32} command alphabet.
func sanitizeTelegramCommand(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastUnderscore = false
		case r == '_' || r == '-' || r == '/' || unicode.IsSpace(r):
			if b.Len() > 0 && !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "_")
	if out != "" && out[0] >= '0' && out[0] <= '9' {
		out = "cmd_" + out
	}
	if len(out) > 32 {
		out = strings.TrimRight(out[:32], "_")
	}
	return out
}

func telegramCommandNameFromRoute(route []string) (string, bool) {
	out := sanitizeTelegramCommand(strings.Join(route, "_"))
	return out, out != ""
}

// buildTelegramMenuCommands lists top-level commands first, then /a_b shortcuts
// for multi-token routes.
func buildTelegramMenuCommands(root *cmdNode, leafCmds []Command) []transport.BotCommand {
	out := make([]transport.BotCommand, 0, len(root.children)+len(leafCmds))
	seen := map[string]bool{}
	add := func(cmd, desc string, lock bool) {
		cmd = sanitizeTelegramCommand(cmd)
		if cmd == "" || seen[cmd] || len(out) >= 100 {
			return
		}
		seen[cmd] = true
		desc = strings.ReplaceAll(strings.TrimSpace(desc), "\n", " ")
		if desc == "" {
			desc = cmd
		}
		if lock {
			desc = "🔒 " + desc
		}
		out = append(out, transport.BotCommand{Command: cmd, Description: desc})
	}

	for _, name := range root.childNames() {
		n, _ := root.child(name)
		add(name, n.summary(), n.ownerOnly())
	}

	multi := make([]Command, 0, len(leafCmds))
	for _, c := range leafCmds {
		if len(splitRoute(c.Route)) > 1 {
			multi = append(multi, c)
		}
	}
	sort.Slice(multi, func(i, j int) bool { return multi[i].Route < multi[j].Route })
	for _, c := range multi {
		desc := c.Description
		if desc == "" {
			desc = c.Route
		}
		add(strings.Join(splitRoute(c.Route), "_"), desc, c.Access == AccessOwnerOnly)
	}
	return out
}
