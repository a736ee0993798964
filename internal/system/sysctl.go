package system

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// sysctlKnobs is the ordered table of knobs §4.4(a) requires.
var sysctlKnobs = []struct {
	key   string
	value string
}{
	{"net/ipv4/ip_forward", "1"},
	{"net/ipv6/conf/default/forwarding", "1"},
	{"net/ipv6/conf/all/forwarding", "1"},
	{"net/ipv4/icmp_echo_ignore_broadcasts", "1"},
	{"net/ipv4/icmp_ignore_bogus_error_responses", "1"},
	{"net/ipv4/icmp_echo_ignore_all", "0"},
	{"net/ipv4/conf/all/log_martians", "0"},
	{"net/ipv4/conf/default/log_martians", "0"},
}

const procSysRoot = "/proc/sys"

// ApplySysctls sets every required knob if running as root; otherwise it
// logs a warning and returns nil, per the non-root boundary case in §8.
func ApplySysctls(logger *zap.SugaredLogger) error {
	if os.Geteuid() != 0 {
		logger.Warnw("skipping sysctl setup: not running as root")
		return nil
	}

	for _, knob := range sysctlKnobs {
		path := filepath.Join(procSysRoot, knob.key)
		if err := os.WriteFile(path, []byte(knob.value), 0644); err != nil {
			return errors.Wrapf(err, "sysctl %s=%s", knob.key, knob.value)
		}
	}
	return nil
}
