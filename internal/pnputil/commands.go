package pnputil

import (
	"fmt"
	"regexp"
)

// DefaultExecutable is resolved through PATH.
const DefaultExecutable = "pnputil.exe"

// validPublishedName matches store-assigned names such as "oem12.inf".
var validPublishedName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.\-]{0,250}\.[Ii][Nn][Ff]$`)

// EnumerateArgs lists every third-party package.
func EnumerateArgs() []string {
	return []string{"-e"}
}

// DeleteArgs removes a package; force also removes it from devices using it.
func DeleteArgs(publishedName string, force bool) ([]string, error) {
	if !validPublishedName.MatchString(publishedName) {
		return nil, fmt.Errorf("invalid published name: %q", publishedName)
	}
	if force {
		return []string{"-f", "-d", publishedName}, nil
	}
	return []string{"-d", publishedName}, nil
}

// AddArgs stages a package; install also installs it on matching devices.
func AddArgs(infPath string, install bool) ([]string, error) {
	if infPath == "" {
		return nil, fmt.Errorf("inf path is required")
	}
	if install {
		return []string{"-i", "-a", infPath}, nil
	}
	return []string{"-a", infPath}, nil
}
