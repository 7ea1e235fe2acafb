package session

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// TerminalID derives a session id from the parent process, which is the
// shell the CLI runs in: "<name>-<ppid>-<YYYYmmddHHMMSS>".
func TerminalID(now time.Time) string {
	stamp := now.Format("20060102150405")
	ppid := os.Getppid()
	if ppid <= 1 {
		return "unknown-terminal-" + stamp
	}
	comm, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", ppid))
	if err != nil {
		return "unknown-terminal-" + stamp
	}
	name := strings.TrimSpace(string(comm))
	if name == "" {
		return "unknown-terminal-" + stamp
	}
	return fmt.Sprintf("%s-%d-%s", name, ppid, stamp)
}
