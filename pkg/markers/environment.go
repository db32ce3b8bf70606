package markers

import (
	"runtime"
	"strings"
)

// Environment maps marker variable names to their values for one target
// platform and interpreter.
type Environment map[string]string

// With returns a copy of env with key set to value.
func (env Environment) With(key, value string) Environment {
	out := make(Environment, len(env)+1)
	for k, v := range env {
		out[k] = v
	}
	out[key] = value
	return out
}

// DefaultEnvironment describes a CPython interpreter of the given version
// running on the current host. pythonVersion may be "3.11" or "3.11.4".
func DefaultEnvironment(pythonVersion string) Environment {
	return NewEnvironment(runtime.GOOS, runtime.GOARCH, pythonVersion)
}

// NewEnvironment describes a CPython interpreter on the given GOOS/GOARCH.
func NewEnvironment(goos, goarch, pythonVersion string) Environment {
	full := pythonVersion
	parts := strings.Split(pythonVersion, ".")
	short := pythonVersion
	if len(parts) >= 2 {
		short = parts[0] + "." + parts[1]
	}
	if len(parts) == 2 {
		full = pythonVersion + ".0"
	}

	env := Environment{
		"python_version":                 short,
		"python_full_version":            full,
		"implementation_name":            "cpython",
		"implementation_version":         full,
		"platform_python_implementation": "CPython",
		"platform_release":               "",
		"platform_version":               "",
	}
	switch goos {
	case "windows":
		env["os_name"], env["sys_platform"], env["platform_system"] = "nt", "win32", "Windows"
	case "darwin":
		env["os_name"], env["sys_platform"], env["platform_system"] = "posix", "darwin", "Darwin"
	default:
		env["os_name"], env["sys_platform"], env["platform_system"] = "posix", goos, titleCase(goos)
	}
	env["platform_machine"] = machine(goos, goarch)
	return env
}

func machine(goos, goarch string) string {
	switch goarch {
	case "amd64":
		if goos == "windows" {
			return "AMD64"
		}
		return "x86_64"
	case "arm64":
		if goos == "linux" {
			return "aarch64"
		}
		return "arm64"
	case "386":
		return "i686"
	}
	return goarch
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
