package collectors

import (
	"context"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// The firmware tool prints single key=value lines:
//
//	temp=48.3'C
//	throttled=0x50005
//	volt=0.8563V
//
// Parsing is kept in isolated functions returning typed results so a
// format change in the vendor tool stays contained in this file.

var (
	tempRe      = regexp.MustCompile(`temp=([0-9.]+)'C`)
	throttledRe = regexp.MustCompile(`throttled=0x([0-9a-fA-F]+)`)
	voltRe      = regexp.MustCompile(`volt=([0-9.]+)V`)
)

// runCommand abstracts subprocess invocation so tests can substitute
// canned output for the firmware tool.
type runCommand func(ctx context.Context, name string, args ...string) (string, error)

func execCommand(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", errors.Wrapf(err, "running %s %s", name, strings.Join(args, " "))
	}
	return strings.TrimSpace(string(out)), nil
}

func parseTemp(out string) (float64, error) {
	m := tempRe.FindStringSubmatch(out)
	if m == nil {
		return 0, errors.Errorf("unparsable measure_temp output %q", out)
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, errors.Wrapf(err, "temperature %q", m[1])
	}
	return v, nil
}

func parseThrottled(out string) (uint64, error) {
	m := throttledRe.FindStringSubmatch(out)
	if m == nil {
		return 0, errors.Errorf("unparsable get_throttled output %q", out)
	}
	v, err := strconv.ParseUint(m[1], 16, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "throttle mask %q", m[1])
	}
	return v, nil
}

func parseVolts(out string) (float64, error) {
	m := voltRe.FindStringSubmatch(out)
	if m == nil {
		return 0, errors.Errorf("unparsable measure_volts output %q", out)
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, errors.Wrapf(err, "voltage %q", m[1])
	}
	return v, nil
}
