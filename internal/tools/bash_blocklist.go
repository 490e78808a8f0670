package tools

import (
	"fmt"
	"regexp"
	"strings"
)

// destructivePatterns block commands that would damage the host regardless
// of what the user approved. These run before any approval prompt.
var destructivePatterns = []string{
	"rm -rf /",
	"rm -rf /*",
	"mkfs.",
	"dd if=/dev/",
	":(){:|:&};:",
	"> /dev/sd",
	"shutdown",
	"reboot",
	"init 0",
	"init 6",
	"find / -delete",
	"find / -exec rm",
}

// exfilPatterns block raw-socket data exfiltration. Checked case-sensitive
// because the /dev paths are.
var exfilPatterns = []string{
	"/dev/tcp/",
	"/dev/udp/",
}

// encodedExecPatterns catch commands that decode a payload and pipe it into
// a shell, which would sidestep the plain-text pattern checks above.
var encodedExecPatterns = []*regexp.Regexp{
	regexp.MustCompile(`base64\s+(-d|--decode)`),
	regexp.MustCompile(`xxd\s+-r.*\|\s*(bash|sh|zsh|exec)`),
	regexp.MustCompile(`printf\s+.*\\x[0-9a-fA-F].*\|\s*(bash|sh|zsh|exec)`),
	regexp.MustCompile(`(curl|wget)\s+.*\|\s*(bash|sh|zsh|exec)`),
	regexp.MustCompile(`python[23]?\s+-c\s+.*__(import|eval|exec)__`),
	regexp.MustCompile(`perl\s+-e\s+.*system\s*\(`),
}

// smugglingPatterns catch blocklist evasion through backslash insertion,
// hex-escaped strings, or command substitution.
var smugglingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`r\\m\s`),
	regexp.MustCompile(`s\\hutdown`),
	regexp.MustCompile(`re\\boot`),
	regexp.MustCompile(`mk\\fs`),
	regexp.MustCompile(`\$'\\x[0-9a-fA-F]{2}`),
	regexp.MustCompile(`eval\s+.*\$`),
	regexp.MustCompile(`\$\(.*\brm\b.*-rf\b`),
	regexp.MustCompile("`.*(\\brm\\b.*-rf\\b)"),
}

// CheckCommandSafety vets a shell command against every blocklist layer.
// Returns nil when the command may run.
func CheckCommandSafety(command string) error {
	lowerCmd := strings.ToLower(strings.TrimSpace(command))

	for _, pattern := range destructivePatterns {
		if strings.Contains(lowerCmd, pattern) {
			return fmt.Errorf("command blocked: contains dangerous pattern %q", pattern)
		}
	}
	for _, pattern := range exfilPatterns {
		if strings.Contains(command, pattern) {
			return fmt.Errorf("command blocked: contains network exfiltration pattern %q", pattern)
		}
	}
	for _, re := range encodedExecPatterns {
		if re.MatchString(command) {
			return fmt.Errorf("command blocked: contains encoded command execution pattern")
		}
	}
	for _, re := range smugglingPatterns {
		if re.MatchString(command) {
			return fmt.Errorf("command blocked: contains command evasion pattern")
		}
	}
	return nil
}
