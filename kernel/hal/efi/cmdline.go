package efi

import "strings"

// ParseCmdLine splits the image load options into key-value pairs. Options
// are separated by whitespace and have the form "key=value" or "flag"; bare
// flags map to themselves.
func ParseCmdLine(cmdLine string) map[string]string {
	kv := make(map[string]string)

	for _, pair := range strings.Fields(cmdLine) {
		key, value, found := strings.Cut(pair, "=")
		switch {
		case !found:
			kv[key] = key
		case key != "":
			kv[key] = value
		}
	}

	return kv
}
